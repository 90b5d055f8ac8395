package product

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func quarterlyConfig() Config {
	cfg := NewConfig(decimal.NewFromFloat(8.0), 24, RepayModeNaturalQuarter, date(2019, time.July, 8))
	cfg.TermUnit = TermUnitMonth
	cfg.RepayDay = 20
	cfg.RepayMonth = 6
	return cfg
}

func TestNew_DerivedAttributes(t *testing.T) {
	p, err := New(quarterlyConfig())
	require.NoError(t, err)

	assert.Equal(t, date(2021, time.July, 8), p.EndDate())
	assert.Equal(t, 731, p.LoanTermDays())
	assert.Equal(t, 20, p.RepayDay())
	assert.Equal(t, 0, p.RepayMonth(), "repay month only applies to custom date mode")
	assert.Equal(t, 1, p.DelayDays())
	assert.Equal(t, 365, p.DaysOfYear())
	assert.Equal(t, AdvanceInterestPlain, p.AdvanceInterestType())
	assert.Equal(t, "Natural quarterly interest, principal at maturity", p.RepayModeName())
}

func TestNew_NormalizesFoundDate(t *testing.T) {
	cfg := quarterlyConfig()
	cfg.FoundDate = time.Date(2019, time.July, 8, 15, 4, 5, 0, time.UTC)

	p, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, date(2019, time.July, 8), p.FoundDate())
}

func TestNew_TermUnits(t *testing.T) {
	found := date(2020, time.February, 29)
	cases := []struct {
		unit TermUnit
		term int
		end  time.Time
	}{
		{TermUnitDay, 30, date(2020, time.March, 30)},
		{TermUnitMonth, 12, date(2021, time.March, 1)},
		{TermUnitYear, 4, date(2024, time.February, 29)},
	}
	for _, tc := range cases {
		t.Run(string(tc.unit), func(t *testing.T) {
			cfg := NewConfig(decimal.NewFromInt(5), tc.term, RepayModeEndDate, found)
			cfg.TermUnit = tc.unit

			p, err := New(cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.end, p.EndDate())
		})
	}
}

func TestNew_VeryLongTerm(t *testing.T) {
	cfg := NewConfig(decimal.NewFromInt(3), 300, RepayModeEndDate, date(2019, time.July, 8))
	cfg.TermUnit = TermUnitYear
	p, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, date(2319, time.July, 8), p.EndDate())
	assert.Equal(t, 109572, p.LoanTermDays())
	assert.Equal(t, []time.Time{date(2319, time.July, 8)}, p.Timeline())
}

func TestNew_RepayDayDefaults(t *testing.T) {
	natural := NewConfig(decimal.NewFromInt(6), 12, RepayModeNaturalMonth, date(2019, time.March, 14))
	p, err := New(natural)
	require.NoError(t, err)
	assert.Equal(t, 14, p.RepayDay(), "natural mode without a repay day uses the found day")

	rolling := NewConfig(decimal.NewFromInt(6), 12, RepayModeMonth, date(2019, time.March, 14))
	rolling.RepayDay = 20
	rolling.RepayMonth = 4
	p, err = New(rolling)
	require.NoError(t, err)
	assert.Equal(t, 14, p.RepayDay(), "rolling modes always pay on the found day")
	assert.Equal(t, 0, p.RepayMonth())

	custom := NewConfig(decimal.NewFromInt(6), 12, RepayModeCustomDate, date(2019, time.March, 14))
	custom.RepayMonth = 12
	p, err = New(custom)
	require.NoError(t, err)
	assert.Equal(t, 14, p.RepayDay())
	assert.Equal(t, 12, p.RepayMonth())
}

func TestValidate_Uninitialized(t *testing.T) {
	var p Product

	err := p.Validate(false)

	assert.ErrorIs(t, err, ErrUninitialized)
	assert.Empty(t, p.Timeline())
}

func TestValidate_AlreadyInitializedIsNoop(t *testing.T) {
	p, err := New(quarterlyConfig())
	require.NoError(t, err)

	assert.NoError(t, p.Validate(false))
	assert.NoError(t, p.Validate(true))
	assert.Equal(t, 731, p.LoanTermDays())
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"rate below zero", func(c *Config) { c.Rate = decimal.NewFromInt(-1) }, "annual rate"},
		{"rate above hundred", func(c *Config) { c.Rate = decimal.NewFromFloat(100.01) }, "annual rate"},
		{"term unit", func(c *Config) { c.TermUnit = "week" }, "term unit"},
		{"loan term", func(c *Config) { c.LoanTerm = 0 }, "loan term"},
		{"repay mode", func(c *Config) { c.RepayMode = 4 }, "repay mode"},
		{"found date", func(c *Config) { c.FoundDate = time.Time{} }, "found date"},
		{"repay day", func(c *Config) { c.RepayDay = 32 }, "repay day"},
		{"repay month", func(c *Config) { c.RepayMode = RepayModeCustomDate; c.RepayMonth = 13 }, "repay month"},
		{"days of year", func(c *Config) { c.DaysOfYear = 360 }, "days of year"},
		{"delay days", func(c *Config) { c.DelayDays = -1 }, "delay days"},
		{"advance interest type", func(c *Config) { c.AdvanceInterestType = "weekend" }, "advance interest type"},
		{"first violation wins", func(c *Config) { c.Rate = decimal.NewFromInt(101); c.DaysOfYear = 1 }, "annual rate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := quarterlyConfig()
			tc.mutate(&cfg)

			p, err := New(cfg)

			assert.Nil(t, p)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidArgument))
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestInit_FailureLeavesProductUninitialized(t *testing.T) {
	p := &Product{}
	cfg := quarterlyConfig()
	cfg.DaysOfYear = 364

	require.Error(t, p.Init(cfg))
	assert.ErrorIs(t, p.Validate(false), ErrUninitialized)
}

func TestRepayModeProperties(t *testing.T) {
	assert.Equal(t, []time.Month{3, 6, 9, 12}, RepayModeNaturalQuarter.BoundaryMonths())
	assert.Nil(t, RepayModeQuarter.BoundaryMonths())
	assert.Equal(t, 6, RepayModeHalfYear.StepMonths())
	assert.Equal(t, 0, RepayModeEndDate.StepMonths())
	assert.Equal(t, FamilyCustomDate, RepayModeCustomDate.Family())
	assert.False(t, RepayMode(99).Valid())
	assert.Equal(t, FamilyUnknown, RepayMode(99).Family())
}

func TestDaysOfYearFor(t *testing.T) {
	p, err := New(quarterlyConfig())
	require.NoError(t, err)

	assert.Equal(t, 365, p.DaysOfYearFor(0))
	assert.Equal(t, 366, p.DaysOfYearFor(2020))
	assert.Equal(t, 365, p.DaysOfYearFor(2100))
	assert.Equal(t, 366, p.DaysOfYearFor(2000))
	assert.Equal(t, 365, p.DaysOfYearFor(2019))
}
