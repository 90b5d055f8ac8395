package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/mcclellann/repayplan/pkg/calendar"
	"github.com/mcclellann/repayplan/pkg/product"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

var hundred = decimal.NewFromInt(100)

// Observer is notified about schedule computations and cache hits.
type Observer interface {
	ScheduleComputed()
	ScheduleCacheHit()
}

type nopObserver struct{}

func (nopObserver) ScheduleComputed() {}
func (nopObserver) ScheduleCacheHit() {}

// Option configures a Calculator.
type Option func(*Calculator)

// WithTotals selects how Summary.TotalAmount is computed.
func WithTotals(policy TotalsPolicy) Option {
	return func(c *Calculator) { c.totals = policy }
}

// WithObserver installs an Observer.
func WithObserver(o Observer) Option {
	return func(c *Calculator) {
		if o != nil {
			c.observer = o
		}
	}
}

// Calculator projects the repayment schedule of investments in one product.
// It is safe for concurrent use; each distinct investment is computed once.
type Calculator struct {
	product  *product.Product
	timeline []time.Time
	totals   TotalsPolicy
	observer Observer

	mu        sync.Mutex
	lists     map[string][]Repayment
	summaries map[string]Summary
	flight    singleflight.Group
}

// NewCalculator binds a calculator to a validated product.
func NewCalculator(p *product.Product, opts ...Option) (*Calculator, error) {
	if p == nil {
		return nil, product.ErrUninitialized
	}
	if err := p.Validate(false); err != nil {
		return nil, err
	}
	c := &Calculator{
		product:   p,
		timeline:  p.Timeline(),
		totals:    TotalsLiteral,
		observer:  nopObserver{},
		lists:     make(map[string][]Repayment),
		summaries: make(map[string]Summary),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Calculator) Product() *product.Product { return c.product }

// Timeline returns a copy of the product timeline.
func (c *Calculator) Timeline() []time.Time {
	out := make([]time.Time, len(c.timeline))
	copy(out, c.timeline)
	return out
}

// CalcInterest returns amount × rate / 100 / daysOfYear × days rounded half-up to cents.
func (c *Calculator) CalcInterest(days int, amount int64) decimal.Decimal {
	numerator := decimal.NewFromInt(amount).Mul(c.product.Rate()).Mul(decimal.NewFromInt(int64(days)))
	denominator := hundred.Mul(decimal.NewFromInt(int64(c.product.DaysOfYear())))
	return numerator.Div(denominator).Round(2)
}

// RepaymentList returns one line per timeline date. The investment must be
// dated before the product's found date.
func (c *Calculator) RepaymentList(inv *Investment) ([]Repayment, error) {
	if inv == nil {
		return nil, fmt.Errorf("%w: investment is required", ErrInvalidArgument)
	}
	list, cached, err := c.repaymentList(inv.Fingerprint(), inv)
	if err != nil {
		return nil, err
	}
	if cached {
		c.observer.ScheduleCacheHit()
	}
	return copyRepayments(list), nil
}

// repaymentList returns the memoised list for key, building it at most once.
// It reports ScheduleComputed itself; cache hits are left to the caller so a
// public call records one event.
func (c *Calculator) repaymentList(key string, inv *Investment) ([]Repayment, bool, error) {
	c.mu.Lock()
	cached, ok := c.lists[key]
	c.mu.Unlock()
	if ok {
		return cached, true, nil
	}

	v, err, _ := c.flight.Do("list:"+key, func() (any, error) {
		c.mu.Lock()
		if cached, ok := c.lists[key]; ok {
			c.mu.Unlock()
			return cached, nil
		}
		c.mu.Unlock()

		list, err := c.buildRepaymentList(inv)
		if err != nil {
			return nil, err
		}
		c.observer.ScheduleComputed()

		c.mu.Lock()
		c.lists[key] = list
		c.mu.Unlock()
		return list, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]Repayment), false, nil
}

func (c *Calculator) buildRepaymentList(inv *Investment) ([]Repayment, error) {
	foundDate := c.product.FoundDate()
	if !inv.InvestDateTime().Before(foundDate) {
		return nil, fmt.Errorf("%w: subscription date %s must precede found date %s",
			ErrInvalidArgument, calendar.Format(inv.InvestDateTime()), calendar.Format(foundDate))
	}

	amount := inv.Amount()
	principal := decimal.NewFromInt(amount)
	last := len(c.timeline) - 1
	repayments := make([]Repayment, 0, len(c.timeline))

	cursor := foundDate
	for i, point := range c.timeline {
		extraDays := 0
		extraInterest := decimal.Zero
		if i == 0 && c.product.AdvanceInterest() {
			extraDays = c.AdvanceFoundDays(inv)
			extraInterest = c.CalcInterest(extraDays, amount)
		}

		repaid := decimal.Zero
		if i == last {
			repaid = principal
		}

		days := calendar.DaysBetween(cursor, point)
		interest := c.CalcInterest(days, amount)

		repayments = append(repayments, NewRepayment(point, days, interest, extraDays, extraInterest, repaid))
		cursor = point
	}
	return repayments, nil
}

// RepaymentSummary folds the repayment list of inv into a Summary.
func (c *Calculator) RepaymentSummary(inv *Investment) (Summary, error) {
	if inv == nil {
		return Summary{}, fmt.Errorf("%w: investment is required", ErrInvalidArgument)
	}
	key := inv.Fingerprint()

	c.mu.Lock()
	cached, ok := c.summaries[key]
	c.mu.Unlock()
	if ok {
		c.observer.ScheduleCacheHit()
		return cached, nil
	}

	v, err, _ := c.flight.Do("summary:"+key, func() (any, error) {
		list, listCached, err := c.repaymentList(key, inv)
		if err != nil {
			return nil, err
		}
		if listCached {
			c.observer.ScheduleCacheHit()
		}
		return c.summaryOf(key, list), nil
	})
	if err != nil {
		return Summary{}, err
	}
	return v.(Summary), nil
}

// Schedule returns the repayment list and summary of inv together, recording
// a single computation or cache hit.
func (c *Calculator) Schedule(inv *Investment) ([]Repayment, Summary, error) {
	if inv == nil {
		return nil, Summary{}, fmt.Errorf("%w: investment is required", ErrInvalidArgument)
	}
	key := inv.Fingerprint()

	list, cached, err := c.repaymentList(key, inv)
	if err != nil {
		return nil, Summary{}, err
	}
	if cached {
		c.observer.ScheduleCacheHit()
	}
	return copyRepayments(list), c.summaryOf(key, list), nil
}

// summaryOf returns the memoised summary for key, folding list on first use.
func (c *Calculator) summaryOf(key string, list []Repayment) Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.summaries[key]; ok {
		return s
	}
	s := newSummary(c.product.EndDate(), list, c.totals)
	c.summaries[key] = s
	return s
}

// AdvanceFoundDate is the day the investor starts accruing: the subscription
// date plus the product's delay days, moved past holidays when the product
// skips them. Holiday skipping never moves past the found date.
func (c *Calculator) AdvanceFoundDate(inv *Investment) time.Time {
	foundDate := c.product.FoundDate()
	start := calendar.AddDays(calendar.StartOfDay(inv.InvestDateTime()), c.product.DelayDays())

	if c.product.AdvanceInterestType() == product.AdvanceInterestSkipHoliday {
		holidays := c.product.Holidays()
		for !start.After(foundDate) && holidays.IsHoliday(start) {
			start = calendar.AddDays(start, 1)
		}
	}
	return start
}

// AdvanceFoundDays counts the whole days between the advance start and the
// found date in either direction.
func (c *Calculator) AdvanceFoundDays(inv *Investment) int {
	return calendar.DaysBetween(c.AdvanceFoundDate(inv), c.product.FoundDate())
}

func copyRepayments(in []Repayment) []Repayment {
	out := make([]Repayment, len(in))
	copy(out, in)
	return out
}
