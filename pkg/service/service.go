package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/repayplan/pkg/cache"
	"github.com/mcclellann/repayplan/pkg/calendar"
	"github.com/mcclellann/repayplan/pkg/ledger"
	"github.com/mcclellann/repayplan/pkg/models"
	"github.com/mcclellann/repayplan/pkg/product"
	"github.com/mcclellann/repayplan/pkg/store"
)

// Metrics receives calculator and schedule cache events.
type Metrics interface {
	ledger.Observer
	CacheHit()
	CacheMiss()
}

type nopMetrics struct{}

func (nopMetrics) ScheduleComputed() {}
func (nopMetrics) ScheduleCacheHit() {}
func (nopMetrics) CacheHit()         {}
func (nopMetrics) CacheMiss()        {}

// Option configures a Service.
type Option func(*Service)

// WithTotals sets how summary totals are reported.
func WithTotals(policy ledger.TotalsPolicy) Option {
	return func(s *Service) { s.totals = policy }
}

// WithCacheTTL sets how long cached schedules live; zero keeps them until evicted.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) { s.cacheTTL = ttl }
}

// WithMetrics routes calculator and cache events to m. A nil m is ignored.
func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// Service handles products, investments and their repayment schedules.
type Service struct {
	storage  store.Storage
	cache    cache.Repository
	cacheTTL time.Duration
	totals   ledger.TotalsPolicy
	metrics  Metrics
	now      func() time.Time

	mu          sync.Mutex
	calculators map[uuid.UUID]*ledger.Calculator
}

// New creates a Service over the given storage and schedule cache.
func New(s store.Storage, c cache.Repository, opts ...Option) *Service {
	svc := &Service{
		storage:     s,
		cache:       c,
		totals:      ledger.TotalsLiteral,
		metrics:     nopMetrics{},
		now:         time.Now,
		calculators: make(map[uuid.UUID]*ledger.Calculator),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Schedule is the rendered repayment plan of one investment.
type Schedule struct {
	Repayments []ledger.Repayment `json:"repayments"`
	Summary    ledger.Summary     `json:"summary"`
}

// Quote is a schedule computed for a product that is not stored.
type Quote struct {
	EndDate      time.Time   `json:"end_date"`
	LoanTermDays int         `json:"loan_term_days"`
	Timeline     []time.Time `json:"timeline"`
	Schedule
}

// CreateProduct validates rec and stores it under a fresh ID.
func (s *Service) CreateProduct(ctx context.Context, rec models.ProductRecord) (*models.ProductRecord, error) {
	rec.ID = uuid.New()
	rec.FoundDate = civilUTC(rec.FoundDate)
	rec.CreatedAt = s.now().UTC()

	p, err := buildProduct(&rec)
	if err != nil {
		return nil, err
	}
	// Validation fills the defaults the stored record should carry.
	rec.AdvanceInterestType = p.AdvanceInterestType()

	if err := s.storage.CreateProduct(&rec); err != nil {
		return nil, fmt.Errorf("failed to store product: %w", err)
	}
	slog.InfoContext(ctx, "product created",
		"product_id", rec.ID, "repay_mode", p.RepayModeName(), "end_date", calendar.Format(p.EndDate()))
	return &rec, nil
}

// GetProduct returns a stored product.
func (s *Service) GetProduct(_ context.Context, id uuid.UUID) (*models.ProductRecord, error) {
	return s.storage.GetProduct(id)
}

// ListProducts returns every stored product.
func (s *Service) ListProducts(_ context.Context) ([]*models.ProductRecord, error) {
	return s.storage.GetAllProducts()
}

// DeleteProduct removes the product, its investments and their cached schedules.
func (s *Service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	investments, err := s.storage.GetInvestmentsForProduct(id)
	if err != nil {
		return fmt.Errorf("failed to list investments: %w", err)
	}
	if err := s.storage.DeleteProduct(id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.calculators, id)
	s.mu.Unlock()

	keys := make([]string, 0, len(investments))
	for _, rec := range investments {
		inv, err := toInvestment(rec)
		if err != nil {
			continue
		}
		keys = append(keys, s.scheduleKey(id, inv))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		slog.WarnContext(ctx, "failed to evict schedules", "product_id", id, "error", err)
	}
	return nil
}

// ProductTimeline returns the repayment dates of a stored product.
func (s *Service) ProductTimeline(_ context.Context, id uuid.UUID) ([]time.Time, error) {
	calc, err := s.calculatorFor(id)
	if err != nil {
		return nil, err
	}
	return calc.Timeline(), nil
}

// CreateInvestment records a subscription to a stored product. The
// subscription must precede the product's found date.
func (s *Service) CreateInvestment(ctx context.Context, productID uuid.UUID, at time.Time, amount int64, extra map[string]string) (*models.InvestmentRecord, error) {
	calc, err := s.calculatorFor(productID)
	if err != nil {
		return nil, err
	}

	rec := &models.InvestmentRecord{
		ID:             uuid.New(),
		ProductID:      productID,
		InvestDateTime: at,
		Amount:         amount,
		Extra:          extra,
		CreatedAt:      s.now().UTC(),
	}
	inv, err := toInvestment(rec)
	if err != nil {
		return nil, err
	}
	if _, err := calc.RepaymentList(inv); err != nil {
		return nil, err
	}

	if err := s.storage.CreateInvestment(rec); err != nil {
		return nil, fmt.Errorf("failed to store investment: %w", err)
	}
	slog.InfoContext(ctx, "investment created",
		"investment_id", rec.ID, "product_id", productID, "amount", amount)
	return rec, nil
}

// GetInvestment returns a stored investment.
func (s *Service) GetInvestment(_ context.Context, id uuid.UUID) (*models.InvestmentRecord, error) {
	return s.storage.GetInvestment(id)
}

// ListInvestments returns the investments of a stored product.
func (s *Service) ListInvestments(_ context.Context, productID uuid.UUID) ([]*models.InvestmentRecord, error) {
	if _, err := s.storage.GetProduct(productID); err != nil {
		return nil, err
	}
	return s.storage.GetInvestmentsForProduct(productID)
}

// RepaymentList returns the repayment lines of a stored investment.
func (s *Service) RepaymentList(ctx context.Context, investmentID uuid.UUID) ([]ledger.Repayment, error) {
	sch, err := s.schedule(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	return sch.Repayments, nil
}

// RepaymentSummary returns the totals of a stored investment.
func (s *Service) RepaymentSummary(ctx context.Context, investmentID uuid.UUID) (ledger.Summary, error) {
	sch, err := s.schedule(ctx, investmentID)
	if err != nil {
		return ledger.Summary{}, err
	}
	return sch.Summary, nil
}

// Quote computes the schedule of one subscription to an unsaved product.
func (s *Service) Quote(_ context.Context, rec models.ProductRecord, at time.Time, amount int64) (*Quote, error) {
	rec.FoundDate = civilUTC(rec.FoundDate)
	p, err := buildProduct(&rec)
	if err != nil {
		return nil, err
	}
	calc, err := ledger.NewCalculator(p, ledger.WithTotals(s.totals), ledger.WithObserver(s.metrics))
	if err != nil {
		return nil, err
	}
	inv, err := ledger.NewInvestment(at, amount)
	if err != nil {
		return nil, err
	}
	sch, err := compute(calc, inv)
	if err != nil {
		return nil, err
	}
	return &Quote{
		EndDate:      p.EndDate(),
		LoanTermDays: p.LoanTermDays(),
		Timeline:     calc.Timeline(),
		Schedule:     *sch,
	}, nil
}

func (s *Service) schedule(ctx context.Context, investmentID uuid.UUID) (*Schedule, error) {
	rec, err := s.storage.GetInvestment(investmentID)
	if err != nil {
		return nil, err
	}
	inv, err := toInvestment(rec)
	if err != nil {
		return nil, err
	}
	key := s.scheduleKey(rec.ProductID, inv)

	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		slog.WarnContext(ctx, "schedule cache read failed", "key", key, "error", err)
	} else if ok {
		var sch Schedule
		if err := json.Unmarshal([]byte(raw), &sch); err == nil {
			s.metrics.CacheHit()
			return &sch, nil
		}
		slog.WarnContext(ctx, "discarding malformed cached schedule", "key", key)
	}
	s.metrics.CacheMiss()

	calc, err := s.calculatorFor(rec.ProductID)
	if err != nil {
		return nil, err
	}
	sch, err := compute(calc, inv)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(sch); err == nil {
		if err := s.cache.Set(ctx, key, string(data), s.cacheTTL); err != nil {
			slog.WarnContext(ctx, "schedule cache write failed", "key", key, "error", err)
		}
	}
	return sch, nil
}

// calculatorFor returns the shared calculator of a stored product, building
// it on first use.
func (s *Service) calculatorFor(productID uuid.UUID) (*ledger.Calculator, error) {
	s.mu.Lock()
	calc, ok := s.calculators[productID]
	s.mu.Unlock()
	if ok {
		return calc, nil
	}

	rec, err := s.storage.GetProduct(productID)
	if err != nil {
		return nil, err
	}
	p, err := buildProduct(rec)
	if err != nil {
		return nil, err
	}
	calc, err = ledger.NewCalculator(p, ledger.WithTotals(s.totals), ledger.WithObserver(s.metrics))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.calculators[productID]; ok {
		return existing, nil
	}
	s.calculators[productID] = calc
	return calc, nil
}

func compute(calc *ledger.Calculator, inv *ledger.Investment) (*Schedule, error) {
	list, summary, err := calc.Schedule(inv)
	if err != nil {
		return nil, err
	}
	return &Schedule{Repayments: list, Summary: summary}, nil
}

func buildProduct(rec *models.ProductRecord) (*product.Product, error) {
	cfg, err := rec.Config()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", product.ErrInvalidArgument, err)
	}
	return product.New(cfg)
}

func toInvestment(rec *models.InvestmentRecord) (*ledger.Investment, error) {
	inv, err := ledger.NewInvestment(rec.InvestDateTime, rec.Amount)
	if err != nil {
		return nil, err
	}
	for k, v := range rec.Extra {
		inv.SetExtra(k, v)
	}
	return inv, nil
}

// scheduleKey includes the totals policy since it shapes the cached summary.
func (s *Service) scheduleKey(productID uuid.UUID, inv *ledger.Investment) string {
	return fmt.Sprintf("schedule:%s:%s:%s", productID, s.totals, inv.Fingerprint())
}

// civilUTC keeps the calendar date of t at UTC midnight.
func civilUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
