package nft

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/blockreceipt/server/internal/model"
)

// BreakerConfig contains circuit breaker configuration for marketplace
// calls.
type BreakerConfig struct {
	FailureThreshold uint32
	Timeout          time.Duration
}

// DefaultBreakerConfig returns the default breaker configuration.
func DefaultBreakerConfig() *BreakerConfig {
	return &BreakerConfig{
		FailureThreshold: 5,
		Timeout:          60 * time.Second,
	}
}

// BreakerMarketplace wraps a Marketplace with a circuit breaker. An open
// breaker surfaces as an error from PurchaseAndTransfer, which the
// pipeline normalizes into the fallback-mint path.
type BreakerMarketplace struct {
	inner   Marketplace
	breaker *gobreaker.CircuitBreaker[*model.PurchaseResult]
}

// NewBreakerMarketplace wraps inner with a circuit breaker.
func NewBreakerMarketplace(inner Marketplace, cfg *BreakerConfig) *BreakerMarketplace {
	if cfg == nil {
		cfg = DefaultBreakerConfig()
	}

	settings := gobreaker.Settings{
		Name:    "marketplace",
		Timeout: cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	}

	return &BreakerMarketplace{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[*model.PurchaseResult](settings),
	}
}

// FindCandidates delegates to the wrapped marketplace.
func (b *BreakerMarketplace) FindCandidates(ctx context.Context, budget float64, keywords []string) ([]model.NFT, error) {
	return b.inner.FindCandidates(ctx, budget, keywords)
}

// PurchaseAndTransfer executes the purchase through the breaker. Only
// transport errors count as breaker failures; a reported purchase
// failure is a valid response.
func (b *BreakerMarketplace) PurchaseAndTransfer(ctx context.Context, walletAddress, receiptID string, receipt *model.ReceiptData) (*model.PurchaseResult, error) {
	return b.breaker.Execute(func() (*model.PurchaseResult, error) {
		return b.inner.PurchaseAndTransfer(ctx, walletAddress, receiptID, receipt)
	})
}
