// Package storage holds the durable media the client keeps its history in.
// Every backend stores opaque blobs under a name; absence of a name is a
// valid state and is reported as found=false, never as an error.
package storage

import (
	"context"
	"errors"
)

// ErrQuotaExceeded is returned when a write would not fit in the backend's
// capacity, the way browser local storage rejects oversize items.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Store reads, writes and removes single named blobs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
