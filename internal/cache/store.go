// Package cache provides keyed stores with per-entry staleness for backend
// query results. Values are stored JSON-encoded so every backend behaves the
// same way regardless of where the bytes live.
package cache

import (
	"context"
	"fmt"
	"time"

	"retail-dashboard/internal/config"
)

type Store interface {
	// Get decodes the entry at key into dest. It reports false when the key
	// is absent or stale.
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set stores value under key; ttl <= 0 keeps it until invalidated.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

// NewStore builds the store selected by cfg.Backend.
func NewStore(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(cfg)
	case "none":
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// NopStore never holds anything.
type NopStore struct{}

func (NopStore) Get(context.Context, string, any) (bool, error) { return false, nil }
func (NopStore) Set(context.Context, string, any, time.Duration) error { return nil }
func (NopStore) Delete(context.Context, ...string) error { return nil }
func (NopStore) DeletePrefix(context.Context, string) error { return nil }
func (NopStore) Close() error { return nil }
