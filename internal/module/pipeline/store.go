package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrTaskNotFound indicates no task matched the lookup.
var ErrTaskNotFound = errors.New("task not found")

// Store holds task records keyed by id. Implementations must be safe for
// concurrent use; the orchestrator writes from worker goroutines while
// the HTTP layer reads.
type Store interface {
	// Put inserts or overwrites the task keyed by its ID.
	Put(ctx context.Context, task *Task) error
	// Get returns the task with the given id, or ErrTaskNotFound.
	Get(ctx context.Context, id string) (*Task, error)
	// ListByWallet returns tasks for a wallet, newest first.
	ListByWallet(ctx context.Context, walletAddress string) ([]*Task, error)
	// LatestByReceipt returns the most recently created task in a
	// receipt's chain, or ErrTaskNotFound.
	LatestByReceipt(ctx context.Context, receiptID string) (*Task, error)
}

type memoryEntry struct {
	task Task
	seq  uint64
}

// MemoryStore is the default in-process store. Tasks live for the
// process lifetime; there is no eviction.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]memoryEntry
	seq   uint64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]memoryEntry),
	}
}

// Put stores a copy of the task so later mutations by the caller cannot
// be observed by readers.
func (s *MemoryStore) Put(_ context.Context, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tasks[task.ID]
	if !ok {
		s.seq++
		entry.seq = s.seq
	}
	entry.task = *task.Clone()
	s.tasks[task.ID] = entry
	return nil
}

// Get returns a copy of the task with the given id.
func (s *MemoryStore) Get(_ context.Context, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return entry.task.Clone(), nil
}

// ListByWallet returns the wallet's tasks ordered newest first. Creation
// sequence breaks timestamp ties.
func (s *MemoryStore) ListByWallet(_ context.Context, walletAddress string) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []memoryEntry
	for _, entry := range s.tasks {
		if entry.task.WalletAddress == walletAddress {
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].task.CreatedAt.Equal(entries[j].task.CreatedAt) {
			return entries[i].seq > entries[j].seq
		}
		return entries[i].task.CreatedAt.After(entries[j].task.CreatedAt)
	})

	tasks := make([]*Task, len(entries))
	for i, entry := range entries {
		tasks[i] = entry.task.Clone()
	}
	return tasks, nil
}

// LatestByReceipt returns the newest task sharing receiptID.
func (s *MemoryStore) LatestByReceipt(_ context.Context, receiptID string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		latest *memoryEntry
		found  memoryEntry
	)
	for _, entry := range s.tasks {
		if entry.task.ReceiptID != receiptID {
			continue
		}
		if latest == nil ||
			entry.task.CreatedAt.After(latest.task.CreatedAt) ||
			(entry.task.CreatedAt.Equal(latest.task.CreatedAt) && entry.seq > latest.seq) {
			found = entry
			latest = &found
		}
	}

	if latest == nil {
		return nil, ErrTaskNotFound
	}
	return latest.task.Clone(), nil
}
