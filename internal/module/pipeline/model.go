package pipeline

import (
	"time"

	"github.com/blockreceipt/server/internal/model"
	"github.com/blockreceipt/server/internal/module/taco"
)

// Status represents the lifecycle state of a pipeline task.
// Transitions are one-way: pending -> processing -> completed|failed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Type represents the kind of work a task performs. The set is closed;
// new types are a code change, not runtime data.
type Type string

const (
	TypeNFTPurchase        Type = "nft_purchase"
	TypeFallbackMint       Type = "fallback_mint"
	TypeMetadataEncryption Type = "metadata_encryption"
)

// ValidType reports whether t is a known task type.
func ValidType(t Type) bool {
	switch t {
	case TypeNFTPurchase, TypeFallbackMint, TypeMetadataEncryption:
		return true
	}
	return false
}

// TaskData is the typed payload carried by a task. Purchase and fallback
// tasks carry Receipt plus an optional Encrypted envelope; encryption
// tasks carry Encrypted plus the TokenID to associate it with. Payloads
// are treated as immutable once the task is created.
type TaskData struct {
	Receipt   *model.ReceiptData      `json:"receipt,omitempty"`
	Encrypted *taco.EncryptedMetadata `json:"encrypted_metadata,omitempty"`
	TokenID   string                  `json:"token_id,omitempty"`
}

// TaskResult is set when a task completes.
type TaskResult struct {
	TxHash      string  `json:"tx_hash,omitempty"`
	TokenID     string  `json:"token_id,omitempty"`
	Contract    string  `json:"contract,omitempty"`
	Name        string  `json:"name,omitempty"`
	Image       string  `json:"image,omitempty"`
	Marketplace string  `json:"marketplace,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Message     string  `json:"message,omitempty"`
}

// Task is a unit of asynchronous work in the receipt-to-NFT pipeline.
type Task struct {
	ID            string      `json:"id" gorm:"primaryKey"`
	Type          Type        `json:"type" gorm:"not null"`
	Status        Status      `json:"status" gorm:"not null"`
	Data          TaskData    `json:"data" gorm:"type:jsonb;serializer:json"`
	Result        *TaskResult `json:"result,omitempty" gorm:"type:jsonb;serializer:json"`
	Error         string      `json:"error,omitempty"`
	WalletAddress string      `json:"wallet_address" gorm:"index"`
	ReceiptID     string      `json:"receipt_id" gorm:"index"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// TableName returns the table name for Task.
func (Task) TableName() string {
	return "pipeline_tasks"
}

// IsTerminal checks if the task is in a terminal state.
func (t *Task) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// Clone returns a copy of the task. Payload pointers are shared; payloads
// never change after creation.
func (t *Task) Clone() *Task {
	clone := *t
	if t.Result != nil {
		result := *t.Result
		clone.Result = &result
	}
	return &clone
}

// resultFromPurchase builds a TaskResult from a purchase or mint outcome.
func resultFromPurchase(res *model.PurchaseResult) *TaskResult {
	result := &TaskResult{TxHash: res.TxHash}
	if res.NFT != nil {
		result.TokenID = res.NFT.TokenID
		result.Contract = res.NFT.Contract
		result.Name = res.NFT.Name
		result.Image = res.NFT.Image
		result.Marketplace = res.NFT.Marketplace
		result.Price = res.NFT.Price
	}
	return result
}
