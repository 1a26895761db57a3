// Package storage abstracts the durable client-side key-value store the
// persistence adapter writes its state blobs to.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound indicates the key has no stored value.
var ErrNotFound = errors.New("storage: key not found")

// Backend is the capability the persistence layer is built on. Values are
// opaque blobs; a whole blob is replaced per Set.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
