package product

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mcclellann/repayplan/pkg/calendar"
	"github.com/shopspring/decimal"
)

var (
	// ErrUninitialized is returned when a product is used before a successful Init.
	ErrUninitialized = errors.New("product parameters not initialized")
	// ErrInvalidArgument wraps every validation failure.
	ErrInvalidArgument = errors.New("invalid argument")
)

var (
	minRate = decimal.Zero
	maxRate = decimal.NewFromInt(100)
)

// Config holds the raw product parameters. Use NewConfig for the defaults.
type Config struct {
	Rate                decimal.Decimal // expected annual rate, percent
	LoanTerm            int
	TermUnit            TermUnit
	RepayMode           RepayMode
	FoundDate           time.Time
	RepayDay            int
	RepayMonth          int
	AdvanceInterest     bool
	AdvanceInterestType AdvanceInterestType
	DelayDays           int
	DaysOfYear          int
	Holidays            calendar.HolidaySet
}

// NewConfig returns a Config with the default term unit (day), T+1 interest
// start and a 365 day year.
func NewConfig(rate decimal.Decimal, loanTerm int, mode RepayMode, foundDate time.Time) Config {
	return Config{
		Rate:                rate,
		LoanTerm:            loanTerm,
		TermUnit:            TermUnitDay,
		RepayMode:           mode,
		FoundDate:           foundDate,
		AdvanceInterestType: AdvanceInterestPlain,
		DelayDays:           1,
		DaysOfYear:          365,
	}
}

// Product is a validated fixed-term product. The zero value is uninitialized.
type Product struct {
	cfg         Config
	initialized bool

	endDate      time.Time
	loanTermDays int

	mu       sync.Mutex
	timeline []time.Time
}

// New builds and validates a product.
func New(cfg Config) (*Product, error) {
	p := &Product{}
	if err := p.Init(cfg); err != nil {
		return nil, err
	}
	return p, nil
}

// Init stores the raw parameters and validates them. On failure the product
// is left uninitialized. Init is serialized with Validate and Timeline; the
// plain accessors are not, so re-initialise only a product no other
// goroutine is reading.
func (p *Product) Init(cfg Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cfg = cfg
	p.initialized = false
	if err := p.validate(); err != nil {
		return err
	}
	p.initialized = true
	return nil
}

// Validate checks the key attributes and computes the derived ones. Without
// force it only reports whether Init has succeeded.
func (p *Product) Validate(force bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !force {
		if p.initialized {
			return nil
		}
		return ErrUninitialized
	}
	return p.validate()
}

// validate requires p.mu.
func (p *Product) validate() error {
	c := &p.cfg
	if c.Rate.LessThan(minRate) || c.Rate.GreaterThan(maxRate) {
		return invalid("annual rate %s must be within [0, 100]", c.Rate)
	}
	if !c.TermUnit.Valid() {
		return invalid("term unit %q not supported", c.TermUnit)
	}
	if c.LoanTerm <= 0 {
		return invalid("loan term %d must be positive", c.LoanTerm)
	}
	if !c.RepayMode.Valid() {
		return invalid("repay mode %d not supported", c.RepayMode)
	}
	if c.FoundDate.IsZero() {
		return invalid("found date is required")
	}
	c.FoundDate = calendar.StartOfDay(c.FoundDate)
	if c.RepayDay < 0 || c.RepayDay > 31 {
		return invalid("repay day %d must be within [0, 31]", c.RepayDay)
	}
	if c.RepayMode == RepayModeCustomDate && (c.RepayMonth < 1 || c.RepayMonth > 12) {
		return invalid("repay month %d must be within [1, 12]", c.RepayMonth)
	}
	if c.DaysOfYear != 365 && c.DaysOfYear != 366 {
		return invalid("days of year %d must be 365 or 366", c.DaysOfYear)
	}
	if c.DelayDays < 0 {
		return invalid("delay days %d must not be negative", c.DelayDays)
	}
	if c.AdvanceInterestType == "" {
		c.AdvanceInterestType = AdvanceInterestPlain
	}
	if !c.AdvanceInterestType.Valid() {
		return invalid("advance interest type %q not supported", c.AdvanceInterestType)
	}
	if c.Holidays == nil {
		c.Holidays = calendar.NoHolidays
	}

	switch c.TermUnit {
	case TermUnitDay:
		p.endDate = calendar.AddDays(c.FoundDate, c.LoanTerm)
	case TermUnitMonth:
		p.endDate = calendar.AddMonths(c.FoundDate, c.LoanTerm)
	case TermUnitYear:
		p.endDate = calendar.AddYears(c.FoundDate, c.LoanTerm)
	}
	p.loanTermDays = calendar.DaysBetween(c.FoundDate, p.endDate)

	switch c.RepayMode.Family() {
	case FamilyNatural, FamilyCustomDate:
		if c.RepayDay == 0 {
			c.RepayDay = c.FoundDate.Day()
		}
	default:
		c.RepayDay = c.FoundDate.Day()
	}
	if c.RepayMode != RepayModeCustomDate {
		c.RepayMonth = 0
	}

	p.timeline = nil
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Config returns the normalized parameters.
func (p *Product) Config() Config { return p.cfg }

func (p *Product) Rate() decimal.Decimal                    { return p.cfg.Rate }
func (p *Product) LoanTerm() int                            { return p.cfg.LoanTerm }
func (p *Product) TermUnit() TermUnit                       { return p.cfg.TermUnit }
func (p *Product) RepayMode() RepayMode                     { return p.cfg.RepayMode }
func (p *Product) RepayModeName() string                    { return p.cfg.RepayMode.Label() }
func (p *Product) FoundDate() time.Time                     { return p.cfg.FoundDate }
func (p *Product) RepayDay() int                            { return p.cfg.RepayDay }
func (p *Product) RepayMonth() int                          { return p.cfg.RepayMonth }
func (p *Product) AdvanceInterest() bool                    { return p.cfg.AdvanceInterest }
func (p *Product) AdvanceInterestType() AdvanceInterestType { return p.cfg.AdvanceInterestType }
func (p *Product) DelayDays() int                           { return p.cfg.DelayDays }
func (p *Product) DaysOfYear() int                          { return p.cfg.DaysOfYear }
func (p *Product) Holidays() calendar.HolidaySet            { return p.cfg.Holidays }
func (p *Product) EndDate() time.Time                       { return p.endDate }
func (p *Product) LoanTermDays() int                        { return p.loanTermDays }

// DaysOfYearFor returns 366 for leap years and the configured basis otherwise.
func (p *Product) DaysOfYearFor(year int) int {
	if year == 0 {
		return p.cfg.DaysOfYear
	}
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 366
	}
	return p.cfg.DaysOfYear
}
