package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/blockreceipt/server/internal/model"
	"github.com/blockreceipt/server/internal/module/taco"
	"github.com/blockreceipt/server/internal/port/outbound"
	"github.com/blockreceipt/server/internal/shared/logger"
	"github.com/blockreceipt/server/internal/shared/metrics"
)

// Marketplace is the purchase-and-transfer collaborator consumed by the
// orchestrator.
type Marketplace interface {
	PurchaseAndTransfer(ctx context.Context, walletAddress, receiptID string, receipt *model.ReceiptData) (*model.PurchaseResult, error)
}

// Minter is the direct-mint collaborator used when no marketplace
// purchase went through.
type Minter interface {
	MintFallback(ctx context.Context, walletAddress, receiptID string, receipt *model.ReceiptData) (*model.PurchaseResult, error)
}

// Config contains orchestrator configuration.
type Config struct {
	MaxConcurrentTasks int
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrentTasks: 100,
	}
}

// Orchestrator drives tasks from pending to a terminal status. Each task
// is processed exactly once, by one goroutine, immediately after
// creation. Terminal outcomes may chain one successor task in the same
// receipt chain; failures never propagate past the task that hit them.
type Orchestrator struct {
	store       Store
	marketplace Marketplace
	minter      Minter
	blobs       outbound.BlobStorePort
	log         *logger.Logger
	metrics     *metrics.Metrics

	semaphore chan struct{}
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewOrchestrator creates a new pipeline orchestrator.
func NewOrchestrator(store Store, marketplace Marketplace, minter Minter, cfg *Config) *Orchestrator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	maxConcurrent := cfg.MaxConcurrentTasks
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	return &Orchestrator{
		store:       store,
		marketplace: marketplace,
		minter:      minter,
		log:         logger.New(nil).With("component", "pipeline"),
		semaphore:   make(chan struct{}, maxConcurrent),
		stopCh:      make(chan struct{}),
	}
}

// WithLogger sets the orchestrator logger.
func (o *Orchestrator) WithLogger(log *logger.Logger) *Orchestrator {
	o.log = log.With("component", "pipeline")
	return o
}

// WithMetrics enables pipeline metrics.
func (o *Orchestrator) WithMetrics(m *metrics.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// WithBlobStore enables persistence of encrypted metadata ciphertext.
func (o *Orchestrator) WithBlobStore(blobs outbound.BlobStorePort) *Orchestrator {
	o.blobs = blobs
	return o
}

// Stop waits for in-flight tasks to finish. Tasks created after Stop are
// stored but not processed.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		close(o.stopCh)
	})
	o.wg.Wait()
}

// CreateNFTPurchaseTask creates and starts an nft_purchase task for a
// receipt. The returned task is a snapshot; processing continues in the
// background.
func (o *Orchestrator) CreateNFTPurchaseTask(ctx context.Context, walletAddress, receiptID string, receipt *model.ReceiptData, encrypted *taco.EncryptedMetadata) (*Task, error) {
	return o.CreateTask(ctx, TypeNFTPurchase, TaskData{Receipt: receipt, Encrypted: encrypted}, walletAddress, receiptID)
}

// CreateTask stores a new pending task and kicks off processing without
// waiting for it. Unknown types are a programming error and rejected.
func (o *Orchestrator) CreateTask(ctx context.Context, taskType Type, data TaskData, walletAddress, receiptID string) (*Task, error) {
	if !ValidType(taskType) {
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}

	now := time.Now()
	task := &Task{
		ID:            uuid.NewString(),
		Type:          taskType,
		Status:        StatusPending,
		Data:          data,
		WalletAddress: walletAddress,
		ReceiptID:     receiptID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := o.store.Put(ctx, task); err != nil {
		return nil, fmt.Errorf("store task: %w", err)
	}

	if o.metrics != nil {
		o.metrics.RecordTaskCreated(string(taskType))
	}
	o.log.Info("task created",
		logger.String("task_id", task.ID),
		logger.String("type", string(taskType)),
		logger.String("receipt_id", receiptID),
	)

	o.wg.Add(1)
	go o.process(task.Clone())

	return task, nil
}

// TaskByID returns a task by id.
func (o *Orchestrator) TaskByID(ctx context.Context, id string) (*Task, error) {
	return o.store.Get(ctx, id)
}

// TasksByWallet returns a wallet's tasks, newest first.
func (o *Orchestrator) TasksByWallet(ctx context.Context, walletAddress string) ([]*Task, error) {
	return o.store.ListByWallet(ctx, walletAddress)
}

// NFTPurchaseStatus returns the latest task in a receipt's chain, which
// best reflects where the pipeline currently stands for that receipt.
func (o *Orchestrator) NFTPurchaseStatus(ctx context.Context, receiptID string) (*Task, error) {
	return o.store.LatestByReceipt(ctx, receiptID)
}

// process runs a single task to a terminal status.
func (o *Orchestrator) process(task *Task) {
	defer o.wg.Done()

	select {
	case <-o.stopCh:
		return
	case o.semaphore <- struct{}{}:
		defer func() { <-o.semaphore }()
	}

	ctx := context.Background()

	task.Status = StatusProcessing
	task.UpdatedAt = time.Now()
	if err := o.store.Put(ctx, task); err != nil {
		o.log.Error("mark processing", logger.String("task_id", task.ID), logger.Err(err))
		return
	}

	switch task.Type {
	case TypeNFTPurchase:
		o.processPurchase(ctx, task)
	case TypeFallbackMint:
		o.processFallbackMint(ctx, task)
	case TypeMetadataEncryption:
		o.processMetadataEncryption(ctx, task)
	}
}

// processPurchase attempts a marketplace purchase. Both reported
// failures and collaborator errors fail the task and route the receipt
// to the fallback-mint path.
func (o *Orchestrator) processPurchase(ctx context.Context, task *Task) {
	res, err := o.safePurchase(ctx, task)
	if err != nil {
		o.fail(ctx, task, err.Error())
		o.chain(ctx, task, TypeFallbackMint, task.Data)
		return
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "marketplace purchase failed"
		}
		o.fail(ctx, task, msg)
		o.chain(ctx, task, TypeFallbackMint, task.Data)
		return
	}

	o.complete(ctx, task, resultFromPurchase(res))
	o.chainEncryption(ctx, task, res)
}

// processFallbackMint mints directly. Failure here is terminal for the
// receipt; nothing further is chained.
func (o *Orchestrator) processFallbackMint(ctx context.Context, task *Task) {
	res, err := o.safeMint(ctx, task)
	if err != nil {
		o.fail(ctx, task, err.Error())
		return
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = "fallback mint failed"
		}
		o.fail(ctx, task, msg)
		return
	}

	o.complete(ctx, task, resultFromPurchase(res))
	o.chainEncryption(ctx, task, res)
}

// processMetadataEncryption associates the encrypted envelope with the
// minted token. The step has no failure path; a blob store error is
// logged and the association still completes.
func (o *Orchestrator) processMetadataEncryption(ctx context.Context, task *Task) {
	if o.blobs != nil && task.Data.Encrypted != nil {
		key := fmt.Sprintf("metadata/%s/%s.json", task.ReceiptID, task.Data.Encrypted.PolicyID)
		if err := o.blobs.Put(ctx, key, []byte(task.Data.Encrypted.Ciphertext), "application/octet-stream"); err != nil {
			o.log.Warn("persist encrypted metadata",
				logger.String("task_id", task.ID),
				logger.Err(err),
			)
		}
	}

	result := &TaskResult{
		TokenID: task.Data.TokenID,
		Message: "encrypted metadata associated with token",
	}
	if task.Data.Encrypted != nil {
		result.Name = task.Data.Encrypted.PolicyID
	}
	o.complete(ctx, task, result)
}

// safePurchase invokes the marketplace, converting panics into errors so
// a misbehaving collaborator cannot take down the orchestrator.
func (o *Orchestrator) safePurchase(ctx context.Context, task *Task) (res *model.PurchaseResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("marketplace purchase panicked: %v", r)
		}
	}()
	res, err = o.marketplace.PurchaseAndTransfer(ctx, task.WalletAddress, task.ReceiptID, task.Data.Receipt)
	if err == nil && res == nil {
		err = fmt.Errorf("marketplace returned no result")
	}
	return res, err
}

// safeMint invokes the fallback minter with the same panic guard.
func (o *Orchestrator) safeMint(ctx context.Context, task *Task) (res *model.PurchaseResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fallback mint panicked: %v", r)
		}
	}()
	res, err = o.minter.MintFallback(ctx, task.WalletAddress, task.ReceiptID, task.Data.Receipt)
	if err == nil && res == nil {
		err = fmt.Errorf("minter returned no result")
	}
	return res, err
}

// complete transitions the task to completed with a result.
func (o *Orchestrator) complete(ctx context.Context, task *Task, result *TaskResult) {
	task.Status = StatusCompleted
	task.Result = result
	task.UpdatedAt = time.Now()
	if err := o.store.Put(ctx, task); err != nil {
		o.log.Error("mark completed", logger.String("task_id", task.ID), logger.Err(err))
		return
	}

	o.finishMetrics(task)
	o.log.Info("task completed",
		logger.String("task_id", task.ID),
		logger.String("type", string(task.Type)),
		logger.String("receipt_id", task.ReceiptID),
	)
}

// fail transitions the task to failed with a human-readable message.
func (o *Orchestrator) fail(ctx context.Context, task *Task, message string) {
	task.Status = StatusFailed
	task.Error = message
	task.UpdatedAt = time.Now()
	if err := o.store.Put(ctx, task); err != nil {
		o.log.Error("mark failed", logger.String("task_id", task.ID), logger.Err(err))
		return
	}

	o.finishMetrics(task)
	o.log.Warn("task failed",
		logger.String("task_id", task.ID),
		logger.String("type", string(task.Type)),
		logger.String("receipt_id", task.ReceiptID),
		logger.String("reason", message),
	)
}

// chain creates the successor task in the same receipt chain.
func (o *Orchestrator) chain(ctx context.Context, predecessor *Task, taskType Type, data TaskData) {
	if _, err := o.CreateTask(ctx, taskType, data, predecessor.WalletAddress, predecessor.ReceiptID); err != nil {
		o.log.Error("chain task",
			logger.String("predecessor_id", predecessor.ID),
			logger.String("type", string(taskType)),
			logger.Err(err),
		)
	}
}

// chainEncryption chains a metadata_encryption task when the completed
// task carried an encrypted envelope.
func (o *Orchestrator) chainEncryption(ctx context.Context, task *Task, res *model.PurchaseResult) {
	if task.Data.Encrypted == nil {
		return
	}
	tokenID := ""
	if res.NFT != nil {
		tokenID = res.NFT.TokenID
	}
	o.chain(ctx, task, TypeMetadataEncryption, TaskData{
		Encrypted: task.Data.Encrypted,
		TokenID:   tokenID,
	})
}

func (o *Orchestrator) finishMetrics(task *Task) {
	if o.metrics == nil {
		return
	}
	o.metrics.RecordTaskFinished(string(task.Type), string(task.Status), time.Since(task.CreatedAt))
}
