package outbound

import "context"

// BlobStorePort stores opaque blobs keyed by path-like names.
type BlobStorePort interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}
