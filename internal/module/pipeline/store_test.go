package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTask(id, wallet, receiptID string, createdAt time.Time) *Task {
	return &Task{
		ID:            id,
		Type:          TypeNFTPurchase,
		Status:        StatusPending,
		WalletAddress: wallet,
		ReceiptID:     receiptID,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
}

func TestMemoryStore_PutAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	task := newTestTask("t1", "0xaa", "r1", now)
	require.NoError(t, store.Put(ctx, task))

	got, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, StatusPending, got.Status)

	// Overwrite reflects the latest version.
	task.Status = StatusProcessing
	require.NoError(t, store.Put(ctx, task))

	got, err = store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	task := newTestTask("t1", "0xaa", "r1", time.Now())
	require.NoError(t, store.Put(ctx, task))

	// Mutating the caller's task must not affect the stored version.
	task.Status = StatusFailed

	got, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	// Mutating a read result must not affect later reads.
	got.Status = StatusCompleted

	again, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, again.Status)
}

func TestMemoryStore_ListByWallet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Now()

	require.NoError(t, store.Put(ctx, newTestTask("t1", "0xbb", "r1", base)))
	require.NoError(t, store.Put(ctx, newTestTask("t2", "0xbb", "r2", base.Add(time.Second))))
	require.NoError(t, store.Put(ctx, newTestTask("t3", "0xbb", "r3", base.Add(2*time.Second))))
	require.NoError(t, store.Put(ctx, newTestTask("other", "0xcc", "r4", base)))

	tasks, err := store.ListByWallet(ctx, "0xbb")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "t3", tasks[0].ID)
	assert.Equal(t, "t2", tasks[1].ID)
	assert.Equal(t, "t1", tasks[2].ID)
}

func TestMemoryStore_ListByWallet_Empty(t *testing.T) {
	store := NewMemoryStore()

	tasks, err := store.ListByWallet(context.Background(), "0xdd")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestMemoryStore_LatestByReceipt(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Now()

	require.NoError(t, store.Put(ctx, newTestTask("t1", "0xaa", "r1", base)))
	require.NoError(t, store.Put(ctx, newTestTask("t2", "0xaa", "r1", base.Add(time.Second))))
	require.NoError(t, store.Put(ctx, newTestTask("t3", "0xaa", "r2", base.Add(2*time.Second))))

	latest, err := store.LatestByReceipt(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "t2", latest.ID)
}

func TestMemoryStore_LatestByReceipt_TieBreak(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()

	// Identical timestamps: creation order decides.
	require.NoError(t, store.Put(ctx, newTestTask("first", "0xaa", "r1", now)))
	require.NoError(t, store.Put(ctx, newTestTask("second", "0xaa", "r1", now)))

	latest, err := store.LatestByReceipt(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "second", latest.ID)
}

func TestMemoryStore_LatestByReceipt_NotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.LatestByReceipt(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}
