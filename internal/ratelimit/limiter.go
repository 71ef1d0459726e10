// Package ratelimit implements the per-(tenant, client) sliding-hour
// request counter backed by the shared key/value store.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voterstack/gateway/internal/kv"
)

// Window is the counting window and counter TTL.
const Window = time.Hour

// Result is the outcome of one rate-limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter counts requests per (tenant, client IP) hour bucket in the
// shared store. The read-then-write is not atomic, so concurrent bursts
// from one client can transiently exceed the limit by a small margin.
// Any store failure fails open and the request is allowed.
type Limiter struct {
	store kv.Store
	now   func() time.Time
}

// New creates a Limiter on the given store.
func New(store kv.Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// Check applies the tenant's hourly limit to one request from clientIP.
// A denied result carries ResetAt one window from now; the counter is
// not advanced past the limit.
func (l *Limiter) Check(ctx context.Context, tenantID, clientIP string, limit int) Result {
	key := fmt.Sprintf("ratelimit:%s:%s", tenantID, clientIP)

	count := 0
	raw, err := l.store.Get(ctx, key)
	switch {
	case err == nil:
		count, err = strconv.Atoi(raw)
		if err != nil {
			log.Warn().Str("key", key).Str("value", raw).Msg("corrupt rate-limit counter, resetting")
			count = 0
		}
	case errors.Is(err, kv.ErrNotFound):
		// First request in this window.
	default:
		log.Warn().Err(err).Str("key", key).Msg("rate-limit store read failed, allowing")
		return Result{Allowed: true, Limit: limit, Remaining: limit, ResetAt: l.now().Add(Window)}
	}

	if count >= limit {
		return Result{Allowed: false, Limit: limit, Remaining: 0, ResetAt: l.now().Add(Window)}
	}

	count++
	if err := l.store.Put(ctx, key, strconv.Itoa(count), Window); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("rate-limit store write failed, allowing")
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Limit: limit, Remaining: remaining, ResetAt: l.now().Add(Window)}
}
