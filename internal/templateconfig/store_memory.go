package templateconfig

import (
	"context"
	"sync"
	"time"

	"rentledger/pkg/platform/sentinel"
)

// InMemoryStore holds the singleton configuration in process memory.
type InMemoryStore struct {
	mu  sync.RWMutex
	cfg *Config
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Find(_ context.Context) (*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cfg == nil {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.cfg
	return &clone, nil
}

func (s *InMemoryStore) Save(_ context.Context, cfg *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *cfg
	if s.cfg != nil {
		clone.Version = s.cfg.Version + 1
	} else {
		clone.Version = 1
	}
	clone.UpdatedAt = time.Now()
	s.cfg = &clone
	cfg.Version = clone.Version
	cfg.UpdatedAt = clone.UpdatedAt
	return nil
}
