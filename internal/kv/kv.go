// Package kv abstracts the shared key/value store that holds rate-limit
// counters, usage counters, and other cross-process gateway state. Every
// access is a network call that can fail independently; callers decide
// per concern whether a failure is fatal (config) or fail-open (limits).
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist or its TTL
// has elapsed.
var ErrNotFound = errors.New("kv: key not found")

// Store is the minimal key/value contract the gateway needs: string
// values with per-key expiry. No cross-key transactions are offered;
// read-modify-write sequences are not atomic.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}
