package statemachine

import (
	"context"
	"time"

	c "github.com/patrickmn/go-cache"
)

type MemoryStore struct {
	cache *c.Cache
}

var _ Store = new(MemoryStore)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache: c.New(c.NoExpiration, 10*time.Minute),
	}
}

func (s *MemoryStore) Put(ctx context.Context, key string, value any) error {
	s.cache.Set(key, value, c.NoExpiration)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (any, bool, error) {
	v, found := s.cache.Get(key)
	return v, found, nil
}

func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
