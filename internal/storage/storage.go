package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key does not exist. It is never retried.
	ErrNotFound = errors.New("object not found")
	// ErrUnavailable is returned when the store cannot be reached.
	ErrUnavailable = errors.New("object store unavailable")
	// ErrInvalidKey is returned for keys a store cannot address.
	ErrInvalidKey = errors.New("invalid object key")
)

// BlobStore is a flat key/value object store.
type BlobStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}
