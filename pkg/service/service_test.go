package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/repayplan/pkg/cache"
	"github.com/mcclellann/repayplan/pkg/ledger"
	"github.com/mcclellann/repayplan/pkg/models"
	"github.com/mcclellann/repayplan/pkg/product"
	"github.com/mcclellann/repayplan/pkg/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockStore is a simple in-memory implementation of the Storage interface for testing.
type MockStore struct {
	products    map[uuid.UUID]*models.ProductRecord
	investments map[uuid.UUID]*models.InvestmentRecord
}

func NewMockStore() *MockStore {
	return &MockStore{
		products:    make(map[uuid.UUID]*models.ProductRecord),
		investments: make(map[uuid.UUID]*models.InvestmentRecord),
	}
}

func (m *MockStore) CreateProduct(p *models.ProductRecord) error {
	m.products[p.ID] = p
	return nil
}

func (m *MockStore) GetProduct(id uuid.UUID) (*models.ProductRecord, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (m *MockStore) GetAllProducts() ([]*models.ProductRecord, error) {
	products := []*models.ProductRecord{}
	for _, p := range m.products {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].CreatedAt.Before(products[j].CreatedAt) })
	return products, nil
}

func (m *MockStore) DeleteProduct(id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return store.ErrNotFound
	}
	for invID, inv := range m.investments {
		if inv.ProductID == id {
			delete(m.investments, invID)
		}
	}
	delete(m.products, id)
	return nil
}

func (m *MockStore) CreateInvestment(inv *models.InvestmentRecord) error {
	if _, ok := m.products[inv.ProductID]; !ok {
		return store.ErrNotFound
	}
	m.investments[inv.ID] = inv
	return nil
}

func (m *MockStore) GetInvestment(id uuid.UUID) (*models.InvestmentRecord, error) {
	inv, ok := m.investments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return inv, nil
}

func (m *MockStore) GetInvestmentsForProduct(productID uuid.UUID) ([]*models.InvestmentRecord, error) {
	out := []*models.InvestmentRecord{}
	for _, inv := range m.investments {
		if inv.ProductID == productID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *MockStore) Close() error { return nil }

type countingMetrics struct {
	computed, memoHits, hits, misses int
}

func (c *countingMetrics) ScheduleComputed() { c.computed++ }
func (c *countingMetrics) ScheduleCacheHit() { c.memoHits++ }
func (c *countingMetrics) CacheHit()         { c.hits++ }
func (c *countingMetrics) CacheMiss()        { c.misses++ }

// brokenCache fails every call.
type brokenCache struct{}

var errCacheDown = errors.New("cache down")

func (brokenCache) Get(context.Context, string) (string, bool, error) { return "", false, errCacheDown }
func (brokenCache) Set(context.Context, string, string, time.Duration) error {
	return errCacheDown
}
func (brokenCache) Delete(context.Context, ...string) error { return errCacheDown }
func (brokenCache) Close() error                            { return nil }

func quarterlyRecord() models.ProductRecord {
	return models.ProductRecord{
		Name:            "two year quarterly",
		Rate:            decimal.NewFromInt(8),
		LoanTerm:        24,
		TermUnit:        product.TermUnitMonth,
		RepayMode:       product.RepayModeNaturalQuarter,
		FoundDate:       time.Date(2019, time.July, 8, 0, 0, 0, 0, time.UTC),
		RepayDay:        20,
		RepayMonth:      6,
		AdvanceInterest: true,
		DelayDays:       1,
		DaysOfYear:      365,
	}
}

var subscribedAt = time.Date(2019, time.July, 5, 12, 0, 0, 0, time.UTC)

func TestCreateProduct(t *testing.T) {
	ctx := context.Background()
	ms := NewMockStore()
	svc := New(ms, cache.NewMemoryCache())

	rec, err := svc.CreateProduct(ctx, quarterlyRecord())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, product.AdvanceInterestPlain, rec.AdvanceInterestType)

	stored, err := svc.GetProduct(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Name, stored.Name)

	all, err := svc.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateProduct_NormalizesFoundDate(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)
	rec := quarterlyRecord()
	rec.FoundDate = time.Date(2019, time.July, 8, 6, 30, 0, 0, shanghai)

	created, err := New(NewMockStore(), cache.NewMemoryCache()).CreateProduct(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, time.July, 8, 0, 0, 0, 0, time.UTC), created.FoundDate)
}

func TestCreateProduct_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *models.ProductRecord)
	}{
		{"negative rate", func(r *models.ProductRecord) { r.Rate = decimal.NewFromInt(-1) }},
		{"zero term", func(r *models.ProductRecord) { r.LoanTerm = 0 }},
		{"unknown mode", func(r *models.ProductRecord) { r.RepayMode = 7 }},
		{"days of year", func(r *models.ProductRecord) { r.DaysOfYear = 360 }},
		{"bad holiday", func(r *models.ProductRecord) { r.Holidays = []string{"2019-13-01"} }},
		{"missing found date", func(r *models.ProductRecord) { r.FoundDate = time.Time{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := NewMockStore()
			rec := quarterlyRecord()
			tt.mutate(&rec)

			_, err := New(ms, cache.NewMemoryCache()).CreateProduct(context.Background(), rec)
			assert.ErrorIs(t, err, product.ErrInvalidArgument)
			assert.Empty(t, ms.products)
		})
	}
}

func TestProductTimeline(t *testing.T) {
	ctx := context.Background()
	svc := New(NewMockStore(), cache.NewMemoryCache())
	rec, err := svc.CreateProduct(ctx, quarterlyRecord())
	require.NoError(t, err)

	timeline, err := svc.ProductTimeline(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, timeline, 9)
	assert.Equal(t, time.Date(2019, time.September, 20, 0, 0, 0, 0, time.UTC), timeline[0])
	assert.Equal(t, time.Date(2021, time.July, 8, 0, 0, 0, 0, time.UTC), timeline[8])

	_, err = svc.ProductTimeline(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateInvestment(t *testing.T) {
	ctx := context.Background()
	ms := NewMockStore()
	svc := New(ms, cache.NewMemoryCache())
	p, err := svc.CreateProduct(ctx, quarterlyRecord())
	require.NoError(t, err)

	inv, err := svc.CreateInvestment(ctx, p.ID, subscribedAt, 10000, map[string]string{"order": "A-1"})
	require.NoError(t, err)
	assert.Equal(t, p.ID, inv.ProductID)
	assert.Equal(t, "A-1", inv.Extra["order"])

	list, err := svc.ListInvestments(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	t.Run("on found date", func(t *testing.T) {
		_, err := svc.CreateInvestment(ctx, p.ID, p.FoundDate, 10000, nil)
		assert.ErrorIs(t, err, product.ErrInvalidArgument)
	})
	t.Run("after found date", func(t *testing.T) {
		_, err := svc.CreateInvestment(ctx, p.ID, p.FoundDate.AddDate(0, 0, 3), 10000, nil)
		assert.ErrorIs(t, err, product.ErrInvalidArgument)
	})
	t.Run("non positive amount", func(t *testing.T) {
		_, err := svc.CreateInvestment(ctx, p.ID, subscribedAt, 0, nil)
		assert.ErrorIs(t, err, ledger.ErrInvalidArgument)
	})
	t.Run("unknown product", func(t *testing.T) {
		_, err := svc.CreateInvestment(ctx, uuid.New(), subscribedAt, 10000, nil)
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = svc.ListInvestments(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	assert.Len(t, ms.investments, 1)
}

func TestRepaymentSchedule(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	metrics := &countingMetrics{}
	svc := New(NewMockStore(), mc, WithMetrics(metrics), WithCacheTTL(time.Minute))
	p, err := svc.CreateProduct(ctx, quarterlyRecord())
	require.NoError(t, err)
	inv, err := svc.CreateInvestment(ctx, p.ID, subscribedAt, 10000, nil)
	require.NoError(t, err)

	list, err := svc.RepaymentList(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, list, 9)
	assert.Equal(t, 74, list[0].Days)
	assert.Equal(t, 2, list[0].ExtraDays)
	assert.True(t, list[0].TotalRepaymentAmount.Equal(decimal.RequireFromString("166.57")))
	assert.True(t, list[8].TotalRepaymentAmount.Equal(decimal.RequireFromString("10039.45")))
	assert.Equal(t, 1, metrics.misses)
	assert.Equal(t, 1, metrics.computed)
	assert.Equal(t, 1, metrics.memoHits, "one calculator event per schedule request")

	_, ok, err := mc.Get(ctx, "schedule:"+p.ID.String()+":literal:2019-07-05-10000")
	require.NoError(t, err)
	assert.True(t, ok)

	summary, err := svc.RepaymentSummary(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, summary.TotalInterest.Equal(decimal.RequireFromString("1606.55")), "got %s", summary.TotalInterest)
	assert.True(t, summary.TotalAmount.Equal(summary.TotalInterest))
	assert.Equal(t, time.Date(2021, time.July, 8, 0, 0, 0, 0, time.UTC), summary.EndDate.UTC())
	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 1, metrics.computed)
	assert.Equal(t, 1, metrics.memoHits)

	_, err = svc.RepaymentList(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRepaymentSchedule_CacheFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	svc := New(NewMockStore(), brokenCache{}, WithTotals(ledger.TotalsWithPrincipal))
	p, err := svc.CreateProduct(ctx, quarterlyRecord())
	require.NoError(t, err)
	inv, err := svc.CreateInvestment(ctx, p.ID, subscribedAt, 10000, nil)
	require.NoError(t, err)

	summary, err := svc.RepaymentSummary(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, summary.TotalAmount.Equal(decimal.RequireFromString("11606.55")))

	// eviction errors are logged, not returned
	assert.NoError(t, svc.DeleteProduct(ctx, p.ID))
}

func TestRepaymentSchedule_SharedCacheKeepsPoliciesApart(t *testing.T) {
	ctx := context.Background()
	ms := NewMockStore()
	mc := cache.NewMemoryCache()
	literal := New(ms, mc)
	withPrincipal := New(ms, mc, WithTotals(ledger.TotalsWithPrincipal))

	p, err := literal.CreateProduct(ctx, quarterlyRecord())
	require.NoError(t, err)
	inv, err := literal.CreateInvestment(ctx, p.ID, subscribedAt, 10000, nil)
	require.NoError(t, err)

	summary, err := literal.RepaymentSummary(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, summary.TotalAmount.Equal(decimal.RequireFromString("1606.55")))

	summary, err = withPrincipal.RepaymentSummary(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, summary.TotalAmount.Equal(decimal.RequireFromString("11606.55")), "got %s", summary.TotalAmount)
	assert.Equal(t, 2, mc.Len())

	require.NoError(t, withPrincipal.DeleteProduct(ctx, p.ID))
	assert.Equal(t, 1, mc.Len(), "eviction covers the deleting service's own policy")
}

func TestDeleteProduct(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	svc := New(NewMockStore(), mc)
	p, err := svc.CreateProduct(ctx, quarterlyRecord())
	require.NoError(t, err)
	inv, err := svc.CreateInvestment(ctx, p.ID, subscribedAt, 10000, nil)
	require.NoError(t, err)
	_, err = svc.RepaymentList(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, 1, mc.Len())

	require.NoError(t, svc.DeleteProduct(ctx, p.ID))
	assert.Equal(t, 0, mc.Len())

	_, err = svc.GetInvestment(ctx, inv.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.ProductTimeline(ctx, p.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteProduct(ctx, p.ID), store.ErrNotFound)
}

func TestQuote(t *testing.T) {
	ctx := context.Background()
	ms := NewMockStore()
	svc := New(ms, cache.NewMemoryCache())

	q, err := svc.Quote(ctx, quarterlyRecord(), subscribedAt, 10000)
	require.NoError(t, err)
	assert.Len(t, q.Timeline, 9)
	assert.Len(t, q.Repayments, 9)
	assert.Equal(t, 731, q.LoanTermDays)
	assert.True(t, q.Summary.TotalInterest.Equal(decimal.RequireFromString("1606.55")))
	assert.Empty(t, ms.products)

	_, err = svc.Quote(ctx, quarterlyRecord(), time.Date(2019, time.August, 1, 0, 0, 0, 0, time.UTC), 10000)
	assert.ErrorIs(t, err, product.ErrInvalidArgument)

	_, err = svc.Quote(ctx, quarterlyRecord(), subscribedAt, -5)
	assert.ErrorIs(t, err, product.ErrInvalidArgument)
}
