// Package memory provides an in-process PayloadStore, useful for tests and
// embedded scenarios.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/stemma/pkg/domain"
)

// Store implements ports.PayloadStore in memory.
// Safe for concurrent use.
//
// Payloads are stored as given, without copying: the payload is opaque, so a
// generic deep copy is not possible. Callers must not mutate a payload after
// saving it, which the engine's immutability rules already guarantee.
type Store struct {
	data map[string]any
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]any),
	}
}

// Save persists the payload in memory.
func (s *Store) Save(ctx context.Context, nodeID string, payload any) error {
	if nodeID == "" {
		return fmt.Errorf("nodeID cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[nodeID] = payload
	return nil
}

// Load retrieves the payload from memory.
func (s *Store) Load(ctx context.Context, nodeID string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok := s.data[nodeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, nodeID)
	}
	return payload, nil
}

// Delete removes the payload.
func (s *Store) Delete(ctx context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, nodeID)
	return nil
}

// List returns node IDs with stored payloads.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
