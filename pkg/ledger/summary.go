package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TotalsPolicy decides what Summary.TotalAmount holds.
type TotalsPolicy string

const (
	// TotalsLiteral reports total interest as the total amount, matching the
	// figures produced by the existing back office.
	TotalsLiteral TotalsPolicy = "literal"
	// TotalsWithPrincipal reports principal plus total interest.
	TotalsWithPrincipal TotalsPolicy = "principal"
)

// ParseTotalsPolicy maps a config string to a policy; empty means literal.
func ParseTotalsPolicy(s string) (TotalsPolicy, error) {
	switch TotalsPolicy(s) {
	case "", TotalsLiteral:
		return TotalsLiteral, nil
	case TotalsWithPrincipal:
		return TotalsWithPrincipal, nil
	}
	return "", fmt.Errorf("unknown totals policy %q", s)
}

// Summary aggregates a repayment list.
type Summary struct {
	EndDate       time.Time       `json:"end_date"`
	TotalInterest decimal.Decimal `json:"total_interest"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

func newSummary(endDate time.Time, repayments []Repayment, policy TotalsPolicy) Summary {
	interest := decimal.Zero
	principal := decimal.Zero
	for _, r := range repayments {
		interest = interest.Add(r.Interest())
		principal = principal.Add(r.RepaymentInvestmentAmount)
	}

	total := interest
	if policy == TotalsWithPrincipal {
		total = principal.Add(interest)
	}
	return Summary{
		EndDate:       endDate,
		TotalInterest: interest,
		TotalAmount:   total,
	}
}
