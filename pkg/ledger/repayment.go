package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Repayment is one dated cash flow of an investment's schedule.
type Repayment struct {
	RepaymentDate             time.Time       `json:"repayment_date"`
	Days                      int             `json:"days"`
	RepaymentInterest         decimal.Decimal `json:"repayment_interest"`
	ExtraDays                 int             `json:"extra_days"`
	ExtraRepaymentInterest    decimal.Decimal `json:"extra_repayment_interest"`
	RepaymentInvestmentAmount decimal.Decimal `json:"repayment_investment_amount"` // principal, last line only
	TotalDays                 int             `json:"total_days"`
	TotalRepaymentAmount      decimal.Decimal `json:"total_repayment_amount"`
}

// NewRepayment fills in the derived totals.
func NewRepayment(date time.Time, days int, interest decimal.Decimal, extraDays int, extraInterest, principal decimal.Decimal) Repayment {
	return Repayment{
		RepaymentDate:             date,
		Days:                      days,
		RepaymentInterest:         interest,
		ExtraDays:                 extraDays,
		ExtraRepaymentInterest:    extraInterest,
		RepaymentInvestmentAmount: principal,
		TotalDays:                 days + extraDays,
		TotalRepaymentAmount:      principal.Add(interest).Add(extraInterest),
	}
}

// Interest is the ordinary plus extra interest of the line.
func (r Repayment) Interest() decimal.Decimal {
	return r.RepaymentInterest.Add(r.ExtraRepaymentInterest)
}
