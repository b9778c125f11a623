package outbound

import (
	"context"
	"time"
)

// RateLimiterPort limits how often a keyed operation may run inside a window.
type RateLimiterPort interface {
	// Allow reports whether one more operation is permitted for key.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
