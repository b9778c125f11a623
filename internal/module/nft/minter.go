package nft

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/blockreceipt/server/internal/model"
)

// Minter mints an NFT directly to a recipient when no marketplace
// purchase went through.
type Minter interface {
	MintFallback(ctx context.Context, walletAddress, receiptID string, receipt *model.ReceiptData) (*model.PurchaseResult, error)
}

// SimulatedMinter mints from a dedicated fallback contract. Token ids
// are sequential within the process.
type SimulatedMinter struct {
	contract string
	sequence atomic.Uint64
}

// NewSimulatedMinter creates a simulated fallback minter.
func NewSimulatedMinter() *SimulatedMinter {
	return &SimulatedMinter{
		contract: "0xB1ocRec01ptFa11bacCc000000000000000000000",
	}
}

// MintFallback mints a receipt NFT to walletAddress.
func (m *SimulatedMinter) MintFallback(_ context.Context, walletAddress, receiptID string, receipt *model.ReceiptData) (*model.PurchaseResult, error) {
	seq := m.sequence.Add(1)
	tokenID := fmt.Sprintf("br-%06d", seq)

	name := "BlockReceipt"
	if receipt != nil && receipt.Merchant != "" {
		name = fmt.Sprintf("BlockReceipt: %s", receipt.Merchant)
	}

	return &model.PurchaseResult{
		Success: true,
		TxHash:  TxHash(walletAddress, receiptID, tokenID),
		NFT: &model.NFT{
			TokenID:     tokenID,
			Contract:    m.contract,
			Name:        name,
			Image:       "ipfs://QmBlockReceiptFallback",
			Marketplace: "fallback_mint",
		},
	}, nil
}
