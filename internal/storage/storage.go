package storage

import "context"

// BlobStore holds frame templates and composited outputs as binary blobs
// referenced by key. Relational rows carry only the keys.
type BlobStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every blob under the given key prefix. Used when a
	// frame project is deleted.
	DeletePrefix(ctx context.Context, prefix string) error
}
