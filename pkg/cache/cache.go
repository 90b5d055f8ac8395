// Package cache stores rendered repayment schedules so repeated reads skip
// the calculator.
package cache

import (
	"context"
	"time"
)

// Repository is a string key/value store with per-entry expiry.
// A ttl of zero keeps the entry until it is deleted.
type Repository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
