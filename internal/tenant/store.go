package tenant

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voterstack/gateway/internal/domain"
)

// DefaultConfigTTL is how long a cached tenant config stays fresh.
const DefaultConfigTTL = 5 * time.Minute

// Fetcher loads tenant records from the registry. *Registry satisfies it.
type Fetcher interface {
	FetchTenant(ctx context.Context, slug string) (*domain.TenantConfig, error)
}

type cacheEntry struct {
	cfg       *domain.TenantConfig
	expiresAt time.Time
}

// Client is a constructed handle for one tenant's backend: parsed base
// URL, credential, and a reusable HTTP client.
type Client struct {
	Slug       string
	BaseURL    *url.URL
	Credential string
	HTTP       *http.Client
}

// ConfigStore resolves tenant slugs to validated configs with an
// in-memory TTL cache in front of the registry. The cache is a
// process-local, best-effort optimization: a cold process re-fetches on
// first use and correctness never depends on a hit. Concurrent misses
// for the same slug may each fetch; registry reads are cheap and
// idempotent, so no single-flight de-duplication is done.
type ConfigStore struct {
	fetcher        Fetcher
	ttl            time.Duration
	backendTimeout time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry

	// Narrow one-entry cache for the currently active backend client;
	// consecutive requests to the same tenant skip client construction.
	clientMu     sync.Mutex
	activeClient *Client

	now func() time.Time
}

// NewConfigStore creates a ConfigStore. ttl <= 0 falls back to
// DefaultConfigTTL.
func NewConfigStore(fetcher Fetcher, ttl, backendTimeout time.Duration) *ConfigStore {
	if ttl <= 0 {
		ttl = DefaultConfigTTL
	}
	return &ConfigStore{
		fetcher:        fetcher,
		ttl:            ttl,
		backendTimeout: backendTimeout,
		entries:        make(map[string]cacheEntry),
		now:            time.Now,
	}
}

// Load returns the config for slug, from cache when fresh, otherwise via
// a registry fetch. Fetch and validation failures propagate: a transient
// registry error fails the request rather than bypassing tenant
// validation, and there is no stale-serving fallback.
func (s *ConfigStore) Load(ctx context.Context, slug string) (*domain.TenantConfig, error) {
	s.mu.RLock()
	e, ok := s.entries[slug]
	s.mu.RUnlock()

	if ok && s.now().Before(e.expiresAt) {
		return e.cfg, nil
	}

	cfg, err := s.fetcher.FetchTenant(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.entries[slug] = cacheEntry{cfg: cfg, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()

	log.Debug().Str("tenant", slug).Msg("tenant config cached")
	return cfg, nil
}

// Invalidate drops one cached entry, or the whole cache when slug is
// empty. The active backend client is dropped alongside its config.
func (s *ConfigStore) Invalidate(slug string) {
	s.mu.Lock()
	if slug == "" {
		s.entries = make(map[string]cacheEntry)
	} else {
		delete(s.entries, slug)
	}
	s.mu.Unlock()

	s.clientMu.Lock()
	if s.activeClient != nil && (slug == "" || s.activeClient.Slug == slug) {
		s.activeClient = nil
	}
	s.clientMu.Unlock()
}

// Preload warms the cache for multiple slugs concurrently. Individual
// failures are logged and skipped; warming is best-effort.
func (s *ConfigStore) Preload(ctx context.Context, slugs []string) {
	var wg sync.WaitGroup
	for _, slug := range slugs {
		slug := slug
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Load(ctx, slug); err != nil {
				log.Warn().Err(err).Str("tenant", slug).Msg("preload failed")
			}
		}()
	}
	wg.Wait()
}

// BackendClient returns a client handle for the tenant's backend,
// reusing the previous handle when the same tenant is hit consecutively.
func (s *ConfigStore) BackendClient(cfg *domain.TenantConfig) (*Client, error) {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()

	if s.activeClient != nil && s.activeClient.Slug == cfg.Slug {
		return s.activeClient, nil
	}

	base, err := url.Parse(cfg.BackendURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("tenant.ConfigStore.BackendClient: invalid backend url %q", cfg.BackendURL)
	}

	s.activeClient = &Client{
		Slug:       cfg.Slug,
		BaseURL:    base,
		Credential: cfg.BackendCredential,
		HTTP:       &http.Client{Timeout: s.backendTimeout},
	}
	return s.activeClient, nil
}
