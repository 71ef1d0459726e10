// Package usage implements per-tenant daily call counting with batched
// durable flushes to the registry.
package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voterstack/gateway/internal/kv"
)

const (
	// counterTTL keeps fast-store counters for a week.
	counterTTL = 7 * 24 * time.Hour

	// flushEvery is the increment interval between durable writes.
	// Flushes are approximate under concurrency, since two racing
	// increments can both land on (or both skip) a boundary.
	flushEvery = 100
)

// DurableWriter persists a usage row to the system of record.
// *tenant.Registry satisfies it.
type DurableWriter interface {
	RecordUsage(ctx context.Context, tenantID, date string, apiCalls int64) error
}

// Meter counts one tenant's API calls per UTC calendar day. Record is
// called off the response path; every failure here is swallowed and
// logged so metering can never affect request latency or success.
type Meter struct {
	store   kv.Store
	durable DurableWriter
	now     func() time.Time
}

// NewMeter creates a Meter.
func NewMeter(store kv.Store, durable DurableWriter) *Meter {
	return &Meter{store: store, durable: durable, now: time.Now}
}

// Record increments today's counter for the tenant and, on every
// flushEvery-th increment, writes one durable row to the registry.
func (m *Meter) Record(ctx context.Context, tenantID string) {
	date := m.now().UTC().Format("2006-01-02")
	key := fmt.Sprintf("usage:%s:%s", tenantID, date)

	var count int64
	raw, err := m.store.Get(ctx, key)
	switch {
	case err == nil:
		count, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			log.Warn().Str("key", key).Str("value", raw).Msg("corrupt usage counter, resetting")
			count = 0
		}
	case errors.Is(err, kv.ErrNotFound):
	default:
		log.Warn().Err(err).Str("key", key).Msg("usage store read failed, skipping increment")
		return
	}

	count++
	if err := m.store.Put(ctx, key, strconv.FormatInt(count, 10), counterTTL); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("usage store write failed")
		return
	}

	if count%flushEvery == 0 {
		if err := m.durable.RecordUsage(ctx, tenantID, date, count); err != nil {
			log.Warn().Err(err).Str("tenant", tenantID).Int64("api_calls", count).Msg("usage flush failed")
		}
	}
}

// Today returns the fast-store counter for the current UTC day. Used by
// the admin API; a missing counter reads as zero.
func (m *Meter) Today(ctx context.Context, tenantID string) (int64, error) {
	date := m.now().UTC().Format("2006-01-02")
	key := fmt.Sprintf("usage:%s:%s", tenantID, date)

	raw, err := m.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(raw, 10, 64)
}
