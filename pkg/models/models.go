package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/mcclellann/repayplan/pkg/calendar"
	"github.com/mcclellann/repayplan/pkg/product"
	"github.com/shopspring/decimal"
)

// ProductRecord is the stored form of a product configuration.
type ProductRecord struct {
	ID                  uuid.UUID                   `json:"id"`
	Name                string                      `json:"name"`
	Rate                decimal.Decimal             `json:"rate"` // annual percent
	LoanTerm            int                         `json:"loan_term"`
	TermUnit            product.TermUnit            `json:"term_unit"`
	RepayMode           product.RepayMode           `json:"repay_mode"`
	FoundDate           time.Time                   `json:"found_date"`
	RepayDay            int                         `json:"repay_day"`
	RepayMonth          int                         `json:"repay_month"`
	AdvanceInterest     bool                        `json:"advance_interest"`
	AdvanceInterestType product.AdvanceInterestType `json:"advance_interest_type"`
	DelayDays           int                         `json:"delay_days"`
	DaysOfYear          int                         `json:"days_of_year"`
	Holidays            []string                    `json:"holidays,omitempty"` // YYYY-MM-DD
	CreatedAt           time.Time                   `json:"created_at"`
}

// Config converts the record into product parameters.
func (r *ProductRecord) Config() (product.Config, error) {
	holidays, err := calendar.ParseHolidays(r.Holidays)
	if err != nil {
		return product.Config{}, err
	}
	return product.Config{
		Rate:                r.Rate,
		LoanTerm:            r.LoanTerm,
		TermUnit:            r.TermUnit,
		RepayMode:           r.RepayMode,
		FoundDate:           r.FoundDate,
		RepayDay:            r.RepayDay,
		RepayMonth:          r.RepayMonth,
		AdvanceInterest:     r.AdvanceInterest,
		AdvanceInterestType: r.AdvanceInterestType,
		DelayDays:           r.DelayDays,
		DaysOfYear:          r.DaysOfYear,
		Holidays:            holidays,
	}, nil
}

// InvestmentRecord is the stored form of one subscription.
type InvestmentRecord struct {
	ID             uuid.UUID         `json:"id"`
	ProductID      uuid.UUID         `json:"product_id"`
	InvestDateTime time.Time         `json:"invest_date_time"`
	Amount         int64             `json:"amount"`
	Extra          map[string]string `json:"extra,omitempty"` // caller bookkeeping
	CreatedAt      time.Time         `json:"created_at"`
}
