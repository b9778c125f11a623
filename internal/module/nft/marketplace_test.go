package nft

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockreceipt/server/internal/model"
)

func TestSimulatedMarketplace_Budget(t *testing.T) {
	m := NewSimulatedMarketplace(MarketplaceOptions{BudgetPercent: 0.05, MinBudget: 1.0, MaxBudget: 50.0})

	tests := []struct {
		name  string
		total float64
		want  float64
	}{
		{"clamped to min", 5.0, 1.0},
		{"proportional", 100.0, 5.0},
		{"clamped to max", 5000.0, 50.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, m.Budget(&model.ReceiptData{Total: tt.total}), 1e-9)
		})
	}

	assert.InDelta(t, 1.0, m.Budget(nil), 1e-9)
}

func TestSimulatedMarketplace_FindCandidates(t *testing.T) {
	ctx := context.Background()
	m := NewSimulatedMarketplace(DefaultMarketplaceOptions())

	// Everything under 15 in the default catalog, cheapest first.
	candidates, err := m.FindCandidates(ctx, 15.0, nil)
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, "Pixel Grocer", candidates[0].Name)
	assert.Equal(t, "Neon Diner", candidates[1].Name)
	assert.Equal(t, "Coffee Run", candidates[2].Name)

	// Keywords narrow to matching listings.
	candidates, err = m.FindCandidates(ctx, 50.0, []string{"coffee"})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Coffee Run", candidates[0].Name)

	// Nothing within budget.
	candidates, err = m.FindCandidates(ctx, 0.5, nil)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestSimulatedMarketplace_PurchaseAndTransfer(t *testing.T) {
	ctx := context.Background()
	m := NewSimulatedMarketplace(DefaultMarketplaceOptions())

	res, err := m.PurchaseAndTransfer(ctx, "0xaa", "r1", &model.ReceiptData{Total: 100})
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NotNil(t, res.NFT)
	// Budget 5.0 buys the cheapest listing.
	assert.Equal(t, "Pixel Grocer", res.NFT.Name)
	assert.NotEmpty(t, res.TxHash)
}

func TestSimulatedMarketplace_EmptyCatalog(t *testing.T) {
	m := NewSimulatedMarketplace(DefaultMarketplaceOptions()).WithCatalog(nil)

	res, err := m.PurchaseAndTransfer(context.Background(), "0xaa", "r1", &model.ReceiptData{Total: 100})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "no marketplace listings within budget", res.Error)
	assert.Nil(t, res.NFT)
}

func TestTxHash_Deterministic(t *testing.T) {
	h1 := TxHash("0xaa", "r1", "tok-1")
	h2 := TxHash("0xaa", "r1", "tok-1")
	h3 := TxHash("0xaa", "r1", "tok-2")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 66)
	assert.Equal(t, "0x", h1[:2])
}

func TestSimulatedMinter_MintFallback(t *testing.T) {
	ctx := context.Background()
	m := NewSimulatedMinter()

	res, err := m.MintFallback(ctx, "0xaa", "r1", &model.ReceiptData{Merchant: "Corner Deli"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NotNil(t, res.NFT)
	assert.Equal(t, "br-000001", res.NFT.TokenID)
	assert.Equal(t, "BlockReceipt: Corner Deli", res.NFT.Name)
	assert.Equal(t, "fallback_mint", res.NFT.Marketplace)

	// Token ids are sequential.
	res, err = m.MintFallback(ctx, "0xaa", "r2", nil)
	require.NoError(t, err)
	assert.Equal(t, "br-000002", res.NFT.TokenID)
	assert.Equal(t, "BlockReceipt", res.NFT.Name)
}

// failingMarketplace always returns a transport error.
type failingMarketplace struct{}

func (failingMarketplace) FindCandidates(context.Context, float64, []string) ([]model.NFT, error) {
	return nil, nil
}

func (failingMarketplace) PurchaseAndTransfer(context.Context, string, string, *model.ReceiptData) (*model.PurchaseResult, error) {
	return nil, errors.New("gateway timeout")
}

func TestBreakerMarketplace_OpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	b := NewBreakerMarketplace(failingMarketplace{}, &BreakerConfig{
		FailureThreshold: 3,
		Timeout:          time.Minute,
	})

	for i := 0; i < 3; i++ {
		_, err := b.PurchaseAndTransfer(ctx, "0xaa", "r1", nil)
		require.EqualError(t, err, "gateway timeout")
	}

	// Open breaker short-circuits without touching the marketplace.
	_, err := b.PurchaseAndTransfer(ctx, "0xaa", "r1", nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestBreakerMarketplace_ReportedFailureNotCounted(t *testing.T) {
	ctx := context.Background()
	inner := NewSimulatedMarketplace(DefaultMarketplaceOptions()).WithCatalog(nil)
	b := NewBreakerMarketplace(inner, &BreakerConfig{FailureThreshold: 2, Timeout: time.Minute})

	// Reported failures are valid responses; the breaker stays closed.
	for i := 0; i < 5; i++ {
		res, err := b.PurchaseAndTransfer(ctx, "0xaa", "r1", &model.ReceiptData{Total: 100})
		require.NoError(t, err)
		assert.False(t, res.Success)
	}
}
