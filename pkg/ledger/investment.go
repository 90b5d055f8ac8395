package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/mcclellann/repayplan/pkg/calendar"
	"github.com/mcclellann/repayplan/pkg/product"
)

// ErrInvalidArgument is the product validation sentinel, shared so callers
// can test every input failure with one errors.Is.
var ErrInvalidArgument = product.ErrInvalidArgument

// Investment is one subscription to a product.
type Investment struct {
	investDateTime time.Time
	amount         int64

	mu    sync.RWMutex
	extra map[string]any
}

// NewInvestment validates the subscription time and amount.
func NewInvestment(investDateTime time.Time, amount int64) (*Investment, error) {
	if investDateTime.IsZero() {
		return nil, fmt.Errorf("%w: subscription time is required", ErrInvalidArgument)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: subscription amount %d must be positive", ErrInvalidArgument, amount)
	}
	return &Investment{
		investDateTime: investDateTime,
		amount:         amount,
		extra:          map[string]any{},
	}, nil
}

func (i *Investment) InvestDateTime() time.Time { return i.investDateTime }
func (i *Investment) Amount() int64             { return i.amount }

// SetExtra attaches caller bookkeeping. It plays no part in any calculation.
func (i *Investment) SetExtra(key string, value any) *Investment {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.extra[key] = value
	return i
}

// Extra returns the value stored under key, or nil.
func (i *Investment) Extra(key string) any {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.extra[key]
}

// Extras returns a copy of all extra values.
func (i *Investment) Extras() map[string]any {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make(map[string]any, len(i.extra))
	for k, v := range i.extra {
		out[k] = v
	}
	return out
}

// Fingerprint identifies investments that produce the same schedule.
func (i *Investment) Fingerprint() string {
	return fmt.Sprintf("%s-%d", calendar.Format(i.investDateTime), i.amount)
}
