package tenant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voterstack/gateway/internal/domain"
)

// fakeFetcher counts registry fetches and serves canned records.
// Preload fetches concurrently, so the counter is locked.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	records map[string]*domain.TenantConfig
	err     error
}

func (f *fakeFetcher) FetchTenant(_ context.Context, slug string) (*domain.TenantConfig, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	cfg, ok := f.records[slug]
	if !ok {
		return nil, domain.ErrTenantNotFound
	}
	clone := *cfg
	return &clone, nil
}

func activeTenant(slug string) *domain.TenantConfig {
	return &domain.TenantConfig{
		Slug:         slug,
		DisplayName:  "Kerala Campaign",
		Status:       domain.TenantActive,
		Subscription: domain.SubscriptionActive,
		BackendURL:   "https://backend.example.com",
		Region:       "ap-south-1",
	}
}

func TestConfigStoreCacheTTL(t *testing.T) {
	fetcher := &fakeFetcher{records: map[string]*domain.TenantConfig{"kerala": activeTenant("kerala")}}
	store := NewConfigStore(fetcher, 5*time.Minute, time.Second)

	clock := time.Now()
	store.now = func() time.Time { return clock }

	ctx := context.Background()

	// First load fetches.
	cfg, err := store.Load(ctx, "kerala")
	require.NoError(t, err)
	assert.Equal(t, "kerala", cfg.Slug)
	assert.Equal(t, 1, fetcher.calls)

	// Second load within the TTL is served from cache.
	clock = clock.Add(4 * time.Minute)
	_, err = store.Load(ctx, "kerala")
	require.NoError(t, err)
	assert.Equal(t, 1, fetcher.calls)

	// After the TTL elapses the entry is stale and re-fetched.
	clock = clock.Add(2 * time.Minute)
	_, err = store.Load(ctx, "kerala")
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)
}

func TestConfigStoreValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *domain.TenantConfig
		wantErr error
	}{
		{
			name:    "suspended tenant",
			cfg:     &domain.TenantConfig{Slug: "x", Status: domain.TenantSuspended, Subscription: domain.SubscriptionActive},
			wantErr: domain.ErrTenantInactive,
		},
		{
			name:    "deleted tenant",
			cfg:     &domain.TenantConfig{Slug: "x", Status: domain.TenantDeleted, Subscription: domain.SubscriptionActive},
			wantErr: domain.ErrTenantInactive,
		},
		{
			name:    "expired subscription",
			cfg:     &domain.TenantConfig{Slug: "x", Status: domain.TenantActive, Subscription: domain.SubscriptionExpired},
			wantErr: domain.ErrSubscriptionInvalid,
		},
		{
			name:    "suspended subscription",
			cfg:     &domain.TenantConfig{Slug: "x", Status: domain.TenantActive, Subscription: domain.SubscriptionSuspended},
			wantErr: domain.ErrSubscriptionInvalid,
		},
		{
			name: "trial subscription passes",
			cfg:  &domain.TenantConfig{Slug: "x", Status: domain.TenantActive, Subscription: domain.SubscriptionTrial},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fetcher := &fakeFetcher{records: map[string]*domain.TenantConfig{"x": tc.cfg}}
			store := NewConfigStore(fetcher, time.Minute, time.Second)

			_, err := store.Load(context.Background(), "x")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigStoreFetchErrorPropagates(t *testing.T) {
	fetchErr := errors.New("registry unreachable")
	fetcher := &fakeFetcher{err: fetchErr}
	store := NewConfigStore(fetcher, time.Minute, time.Second)

	// No stale-serving fallback: the error reaches the caller and the
	// failed load is not cached.
	_, err := store.Load(context.Background(), "kerala")
	assert.ErrorIs(t, err, fetchErr)

	_, err = store.Load(context.Background(), "kerala")
	assert.ErrorIs(t, err, fetchErr)
	assert.Equal(t, 2, fetcher.calls)
}

func TestConfigStoreInvalidate(t *testing.T) {
	fetcher := &fakeFetcher{records: map[string]*domain.TenantConfig{
		"kerala":    activeTenant("kerala"),
		"tamilnadu": activeTenant("tamilnadu"),
	}}
	store := NewConfigStore(fetcher, time.Hour, time.Second)
	ctx := context.Background()

	_, err := store.Load(ctx, "kerala")
	require.NoError(t, err)
	_, err = store.Load(ctx, "tamilnadu")
	require.NoError(t, err)
	require.Equal(t, 2, fetcher.calls)

	// Single-entry invalidation only re-fetches that slug.
	store.Invalidate("kerala")
	_, err = store.Load(ctx, "kerala")
	require.NoError(t, err)
	_, err = store.Load(ctx, "tamilnadu")
	require.NoError(t, err)
	assert.Equal(t, 3, fetcher.calls)

	// Full invalidation clears everything.
	store.Invalidate("")
	_, err = store.Load(ctx, "kerala")
	require.NoError(t, err)
	_, err = store.Load(ctx, "tamilnadu")
	require.NoError(t, err)
	assert.Equal(t, 5, fetcher.calls)
}

func TestConfigStorePreload(t *testing.T) {
	fetcher := &fakeFetcher{records: map[string]*domain.TenantConfig{
		"kerala":    activeTenant("kerala"),
		"tamilnadu": activeTenant("tamilnadu"),
	}}
	store := NewConfigStore(fetcher, time.Hour, time.Second)

	// One of the three slugs fails; preload is best-effort and warms the rest.
	store.Preload(context.Background(), []string{"kerala", "tamilnadu", "unknown"})

	ctx := context.Background()
	calls := fetcher.calls

	_, err := store.Load(ctx, "kerala")
	require.NoError(t, err)
	_, err = store.Load(ctx, "tamilnadu")
	require.NoError(t, err)
	assert.Equal(t, calls, fetcher.calls, "preloaded entries must not re-fetch")
}

func TestBackendClientReuse(t *testing.T) {
	store := NewConfigStore(&fakeFetcher{}, time.Minute, time.Second)

	kerala := activeTenant("kerala")
	c1, err := store.BackendClient(kerala)
	require.NoError(t, err)
	c2, err := store.BackendClient(kerala)
	require.NoError(t, err)
	assert.Same(t, c1, c2, "consecutive requests to one tenant reuse the handle")

	// Switching tenants rebuilds the handle.
	c3, err := store.BackendClient(activeTenant("tamilnadu"))
	require.NoError(t, err)
	assert.NotSame(t, c1, c3)

	// Invalidation drops the active handle.
	store.Invalidate("tamilnadu")
	c4, err := store.BackendClient(activeTenant("tamilnadu"))
	require.NoError(t, err)
	assert.NotSame(t, c3, c4)
}

func TestBackendClientInvalidURL(t *testing.T) {
	store := NewConfigStore(&fakeFetcher{}, time.Minute, time.Second)

	cfg := activeTenant("kerala")
	cfg.BackendURL = "://not-a-url"
	_, err := store.BackendClient(cfg)
	assert.Error(t, err)
}
