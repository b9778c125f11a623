// Package taco is a mock TACo proxy re-encryption client. Real threshold
// access control never shipped; ciphertexts are base64 stand-ins with the
// same identifier shape the production service would return.
package taco

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// EncryptedMetadata is the opaque encryption envelope attached to a task.
type EncryptedMetadata struct {
	PolicyID   string `json:"policy_id"`
	CapsuleID  string `json:"capsule_id"`
	Ciphertext string `json:"ciphertext"`
}

// Client mocks the TACo encryption service.
type Client struct{}

// NewClient creates a new mock TACo client.
func NewClient() *Client {
	return &Client{}
}

// Encrypt produces an encrypted metadata envelope for the given payload.
func (c *Client) Encrypt(_ context.Context, payload any) (*EncryptedMetadata, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	return &EncryptedMetadata{
		PolicyID:   "policy-" + uuid.NewString(),
		CapsuleID:  "capsule-" + uuid.NewString(),
		Ciphertext: base64.StdEncoding.EncodeToString(raw),
	}, nil
}

// Decrypt recovers the payload bytes from an envelope.
func (c *Client) Decrypt(_ context.Context, meta *EncryptedMetadata) ([]byte, error) {
	if meta == nil {
		return nil, fmt.Errorf("nil encrypted metadata")
	}
	raw, err := base64.StdEncoding.DecodeString(meta.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	return raw, nil
}
