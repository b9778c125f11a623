package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blockreceipt/server/internal/model"
	"github.com/blockreceipt/server/internal/module/nft"
	"github.com/blockreceipt/server/internal/module/pipeline"
	"github.com/blockreceipt/server/internal/module/taco"
	"github.com/blockreceipt/server/internal/shared/response"
)

// TaskHandler exposes the receipt-to-NFT pipeline over HTTP.
type TaskHandler struct {
	orchestrator *pipeline.Orchestrator
	encryptor    *taco.Client
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(orchestrator *pipeline.Orchestrator, encryptor *taco.Client) *TaskHandler {
	return &TaskHandler{
		orchestrator: orchestrator,
		encryptor:    encryptor,
	}
}

// RegisterRoutes registers pipeline routes.
func (h *TaskHandler) RegisterRoutes(r *gin.RouterGroup, createMiddleware ...gin.HandlerFunc) {
	create := append([]gin.HandlerFunc{}, createMiddleware...)
	create = append(create, h.Create)

	r.POST("/receipts/:receiptId/nft", create...)
	r.GET("/receipts/:receiptId/nft/status", h.Status)
	r.GET("/tasks/:id", h.Get)
	r.GET("/wallets/:address/tasks", h.ListByWallet)
}

// CreateNFTRequest is the body for starting a receipt's NFT pipeline.
// Either a pre-encrypted metadata envelope is supplied, or EncryptItems
// asks the server to encrypt the receipt line items itself.
type CreateNFTRequest struct {
	WalletAddress     string                  `json:"wallet_address" binding:"required"`
	Receipt           model.ReceiptData       `json:"receipt" binding:"required"`
	EncryptedMetadata *taco.EncryptedMetadata `json:"encrypted_metadata,omitempty"`
	EncryptItems      bool                    `json:"encrypt_items,omitempty"`
}

// TaskResponse is the task representation returned by the API.
type TaskResponse struct {
	ID            string               `json:"id"`
	Type          string               `json:"type"`
	Status        string               `json:"status"`
	Result        *pipeline.TaskResult `json:"result,omitempty"`
	Error         string               `json:"error,omitempty"`
	WalletAddress string               `json:"wallet_address"`
	ReceiptID     string               `json:"receipt_id"`
	CreatedAt     int64                `json:"created_at"`
	UpdatedAt     int64                `json:"updated_at"`
}

func taskToResponse(t *pipeline.Task) *TaskResponse {
	return &TaskResponse{
		ID:            t.ID,
		Type:          string(t.Type),
		Status:        string(t.Status),
		Result:        t.Result,
		Error:         t.Error,
		WalletAddress: t.WalletAddress,
		ReceiptID:     t.ReceiptID,
		CreatedAt:     t.CreatedAt.Unix(),
		UpdatedAt:     t.UpdatedAt.Unix(),
	}
}

// Create handles pipeline kickoff requests.
// POST /api/v1/receipts/:receiptId/nft
func (h *TaskHandler) Create(c *gin.Context) {
	receiptID := c.Param("receiptId")

	var req CreateNFTRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if !nft.IsValidAddress(req.WalletAddress) {
		response.BadRequest(c, "invalid wallet address")
		return
	}

	encrypted := req.EncryptedMetadata
	if encrypted == nil && req.EncryptItems {
		var err error
		encrypted, err = h.encryptor.Encrypt(c.Request.Context(), req.Receipt.Items)
		if err != nil {
			response.InternalError(c)
			return
		}
	}

	task, err := h.orchestrator.CreateNFTPurchaseTask(
		c.Request.Context(), req.WalletAddress, receiptID, &req.Receipt, encrypted,
	)
	if err != nil {
		response.InternalError(c)
		return
	}

	c.JSON(http.StatusAccepted, taskToResponse(task))
}

// Get handles task lookups.
// GET /api/v1/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.orchestrator.TaskByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, pipeline.ErrTaskNotFound) {
			response.NotFound(c, "task not found")
			return
		}
		response.InternalError(c)
		return
	}

	c.JSON(http.StatusOK, taskToResponse(task))
}

// ListByWallet handles wallet task listings.
// GET /api/v1/wallets/:address/tasks
func (h *TaskHandler) ListByWallet(c *gin.Context) {
	address := c.Param("address")
	if !nft.IsValidAddress(address) {
		response.BadRequest(c, "invalid wallet address")
		return
	}

	tasks, err := h.orchestrator.TasksByWallet(c.Request.Context(), address)
	if err != nil {
		response.InternalError(c)
		return
	}

	responses := make([]*TaskResponse, len(tasks))
	for i, t := range tasks {
		responses[i] = taskToResponse(t)
	}

	c.JSON(http.StatusOK, gin.H{
		"object": "list",
		"data":   responses,
	})
}

// Status handles receipt pipeline status lookups.
// GET /api/v1/receipts/:receiptId/nft/status
func (h *TaskHandler) Status(c *gin.Context) {
	task, err := h.orchestrator.NFTPurchaseStatus(c.Request.Context(), c.Param("receiptId"))
	if err != nil {
		if errors.Is(err, pipeline.ErrTaskNotFound) {
			response.NotFound(c, "no pipeline tasks for receipt")
			return
		}
		response.InternalError(c)
		return
	}

	c.JSON(http.StatusOK, taskToResponse(task))
}
