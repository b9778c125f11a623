package nft

import (
	"context"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/blockreceipt/server/internal/model"
)

// Marketplace buys a listed NFT and transfers it to a recipient wallet.
type Marketplace interface {
	FindCandidates(ctx context.Context, budget float64, keywords []string) ([]model.NFT, error)
	PurchaseAndTransfer(ctx context.Context, walletAddress, receiptID string, receipt *model.ReceiptData) (*model.PurchaseResult, error)
}

// MarketplaceOptions controls how a purchase budget is derived from a
// receipt total.
type MarketplaceOptions struct {
	BudgetPercent float64
	MinBudget     float64
	MaxBudget     float64
}

// DefaultMarketplaceOptions returns the default budget derivation.
func DefaultMarketplaceOptions() MarketplaceOptions {
	return MarketplaceOptions{
		BudgetPercent: 0.05,
		MinBudget:     1.0,
		MaxBudget:     50.0,
	}
}

// SimulatedMarketplace serves listings from an in-memory catalog. It
// stands in for real marketplace integrations (OpenSea, Rarible), which
// were never wired up; purchase results follow the real result contract.
type SimulatedMarketplace struct {
	opts    MarketplaceOptions
	catalog []model.NFT
}

// NewSimulatedMarketplace creates a simulated marketplace with the
// default catalog.
func NewSimulatedMarketplace(opts MarketplaceOptions) *SimulatedMarketplace {
	return &SimulatedMarketplace{
		opts:    opts,
		catalog: defaultCatalog(),
	}
}

// WithCatalog replaces the listing catalog. Empty catalogs make every
// purchase fail with "no listings", which exercises the fallback path.
func (m *SimulatedMarketplace) WithCatalog(catalog []model.NFT) *SimulatedMarketplace {
	m.catalog = catalog
	return m
}

// Budget derives the purchase budget from a receipt total.
func (m *SimulatedMarketplace) Budget(receipt *model.ReceiptData) float64 {
	budget := m.opts.MinBudget
	if receipt != nil {
		budget = receipt.Total * m.opts.BudgetPercent
	}
	if budget < m.opts.MinBudget {
		budget = m.opts.MinBudget
	}
	if budget > m.opts.MaxBudget {
		budget = m.opts.MaxBudget
	}
	return budget
}

// FindCandidates returns catalog listings within budget, cheapest first.
// Keywords narrow the match against listing name and marketplace.
func (m *SimulatedMarketplace) FindCandidates(_ context.Context, budget float64, keywords []string) ([]model.NFT, error) {
	var candidates []model.NFT
	for _, listing := range m.catalog {
		if listing.Price > budget {
			continue
		}
		if !matchesKeywords(listing, keywords) {
			continue
		}
		candidates = append(candidates, listing)
	}

	// Insertion sort; catalogs are small.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].Price < candidates[j-1].Price; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
	return candidates, nil
}

// PurchaseAndTransfer buys the cheapest in-budget listing and transfers
// it to walletAddress. A reported failure (no listings) is returned with
// Success false, not as an error.
func (m *SimulatedMarketplace) PurchaseAndTransfer(ctx context.Context, walletAddress, receiptID string, receipt *model.ReceiptData) (*model.PurchaseResult, error) {
	budget := m.Budget(receipt)

	var keywords []string
	if receipt != nil && receipt.Category != "" {
		keywords = []string{receipt.Category}
	}

	candidates, err := m.FindCandidates(ctx, budget, keywords)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		// Retry without keywords before giving up.
		candidates, err = m.FindCandidates(ctx, budget, nil)
		if err != nil {
			return nil, err
		}
	}
	if len(candidates) == 0 {
		return &model.PurchaseResult{
			Success: false,
			Error:   "no marketplace listings within budget",
		}, nil
	}

	purchased := candidates[0]
	return &model.PurchaseResult{
		Success: true,
		TxHash:  TxHash(walletAddress, receiptID, purchased.TokenID),
		NFT:     &purchased,
	}, nil
}

// TxHash derives a deterministic transaction hash for simulated
// transfers.
func TxHash(parts ...string) string {
	hasher := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		hasher.Write([]byte(p))
	}
	return "0x" + hex.EncodeToString(hasher.Sum(nil))
}

func matchesKeywords(listing model.NFT, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(listing.Name + " " + listing.Marketplace)
	for _, kw := range keywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func defaultCatalog() []model.NFT {
	return []model.NFT{
		{TokenID: "or-1042", Contract: "0x2953399124F0cBB46d2CbACD8A89cF0599974963", Name: "Pixel Grocer", Image: "ipfs://QmPixelGrocer", Marketplace: "opensea", Price: 2.5},
		{TokenID: "or-2210", Contract: "0x2953399124F0cBB46d2CbACD8A89cF0599974963", Name: "Neon Diner", Image: "ipfs://QmNeonDiner", Marketplace: "opensea", Price: 7.0},
		{TokenID: "rb-0077", Contract: "0x60F80121C31A0d46B5279700f9DF786054aa5eE5", Name: "Coffee Run", Image: "ipfs://QmCoffeeRun", Marketplace: "rarible", Price: 12.0},
		{TokenID: "rb-0311", Contract: "0x60F80121C31A0d46B5279700f9DF786054aa5eE5", Name: "Retail Relic", Image: "ipfs://QmRetailRelic", Marketplace: "rarible", Price: 28.0},
	}
}
