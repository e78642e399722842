// Package storage abstracts byte-blob persistence for uploaded files
// and generated artifacts. Keys are opaque slash-separated paths scoped
// by the caller.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested blob does not exist.
var ErrNotFound = errors.New("blob not found")

// Storage stores and retrieves byte blobs by key.
type Storage interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
