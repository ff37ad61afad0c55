package client

import (
	"context"
	"time"
)

// Cache stores JSON-encoded values under string keys
type Cache interface {
	// GetJSON decodes the value under key into dest; found is false on a miss
	GetJSON(ctx context.Context, key string, dest interface{}) (found bool, err error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}
