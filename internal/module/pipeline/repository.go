package pipeline

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// repository is a Postgres-backed Store. Payloads are serialized to
// jsonb columns. Behavior matches MemoryStore for every query the
// orchestrator and HTTP layer issue.
type repository struct {
	db *gorm.DB
}

// NewRepository creates a database-backed task store.
func NewRepository(db *gorm.DB) Store {
	return &repository{db: db}
}

// Migrate creates or updates the task table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Task{}); err != nil {
		return fmt.Errorf("migrate pipeline tasks: %w", err)
	}
	return nil
}

// Put inserts or overwrites the task row.
func (r *repository) Put(ctx context.Context, task *Task) error {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("put task: %w", err)
	}
	return nil
}

// Get retrieves a task by id.
func (r *repository) Get(ctx context.Context, id string) (*Task, error) {
	var task Task
	err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

// ListByWallet lists a wallet's tasks, newest first.
func (r *repository) ListByWallet(ctx context.Context, walletAddress string) ([]*Task, error) {
	var tasks []*Task
	err := r.db.WithContext(ctx).
		Where("wallet_address = ?", walletAddress).
		Order("created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("list tasks by wallet: %w", err)
	}
	return tasks, nil
}

// LatestByReceipt returns the newest task in a receipt's chain.
func (r *repository) LatestByReceipt(ctx context.Context, receiptID string) (*Task, error) {
	var task Task
	err := r.db.WithContext(ctx).
		Where("receipt_id = ?", receiptID).
		Order("created_at DESC").
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("latest task by receipt: %w", err)
	}
	return &task, nil
}
