package storage

import (
	"context"
	"fmt"
)

// QuotaStore rejects writes larger than maxBytes.
type QuotaStore struct {
	next     Store
	maxBytes int
}

// WithQuota wraps next. A non-positive maxBytes disables the limit.
func WithQuota(next Store, maxBytes int) Store {
	if maxBytes <= 0 {
		return next
	}
	return &QuotaStore{next: next, maxBytes: maxBytes}
}

func (s *QuotaStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.next.Get(ctx, key)
}

func (s *QuotaStore) Set(ctx context.Context, key string, value []byte) error {
	if size := len(key) + len(value); size > s.maxBytes {
		return fmt.Errorf("%w: %d bytes for %q, limit %d", ErrQuotaExceeded, size, key, s.maxBytes)
	}
	return s.next.Set(ctx, key, value)
}

func (s *QuotaStore) Remove(ctx context.Context, key string) error {
	return s.next.Remove(ctx, key)
}
