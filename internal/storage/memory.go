package storage

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps blobs for the lifetime of the process.
type MemoryStore struct {
	items *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		// no expiration and no janitor goroutine
		items: cache.New(cache.NoExpiration, 0),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, found := s.items.Get(key)
	if !found {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	return append([]byte(nil), b...), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.items.Set(key, append([]byte(nil), value...), cache.NoExpiration)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.items.Delete(key)
	return nil
}

// Len reports how many names are currently stored.
func (s *MemoryStore) Len() int {
	return s.items.ItemCount()
}

var _ Store = (*MemoryStore)(nil)
