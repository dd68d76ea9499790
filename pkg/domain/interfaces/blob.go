package interfaces

import "context"

// BlobStorage persists archive bytes under a name
type BlobStorage interface {
	Put(ctx context.Context, name string, data []byte) (string, error)
	Get(ctx context.Context, name string) ([]byte, error)
}
