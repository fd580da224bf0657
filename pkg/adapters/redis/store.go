// Package redis provides a Redis-backed PayloadStore for sharing experiment
// payloads across processes.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/stemma/pkg/domain"
)

// Store implements ports.PayloadStore using Redis.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithTTL sets the expiration for persisted payloads.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for payloads.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "stemma:payload:",
		ttl:    0, // no expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(nodeID string) string {
	return s.prefix + nodeID
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the payload to Redis, keeping a ZSET index of node IDs whose
// score mirrors the expiration time for lazy cleanup.
func (s *Store) Save(ctx context.Context, nodeID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(nodeID), data, s.ttl)

	score := float64(time.Now().Add(s.ttl).Unix())
	if s.ttl == 0 {
		score = 4102444800 // 2100-01-01, effectively never
	}
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  score,
		Member: nodeID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves the payload from Redis in generic decoded form.
func (s *Store) Load(ctx context.Context, nodeID string) (any, error) {
	val, err := s.client.Get(ctx, s.key(nodeID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, nodeID)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var payload any
	if err := json.Unmarshal([]byte(val), &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return payload, nil
}

// Delete removes the payload and its index entry.
func (s *Store) Delete(ctx context.Context, nodeID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(nodeID))
	pipe.ZRem(ctx, s.indexKey(), nodeID)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns node IDs with persisted payloads, pruning expired index
// entries lazily.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())

	err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to prune expired payloads: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list payloads: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
