package tenant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/voterstack/gateway/internal/domain"
)

// Registry is the HTTP client for the central tenant registry, a
// PostgREST-style REST service that holds tenant records and the durable
// usage table.
type Registry struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewRegistry creates a registry client. baseURL must not end with a slash.
func NewRegistry(baseURL, apiKey string, timeout time.Duration) *Registry {
	return &Registry{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// FetchTenant loads the active tenant row for slug. Returns
// domain.ErrTenantNotFound when no row matches.
func (r *Registry) FetchTenant(ctx context.Context, slug string) (*domain.TenantConfig, error) {
	endpoint := fmt.Sprintf("%s/rest/v1/tenants?slug=eq.%s&status=eq.active",
		r.baseURL, url.QueryEscape(slug))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("tenant.Registry.FetchTenant: %w", err)
	}
	r.setAuth(req)

	resp, err := r.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tenant.Registry.FetchTenant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("tenant.Registry.FetchTenant: registry returned %d: %s", resp.StatusCode, body)
	}

	var rows []domain.TenantConfig
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("tenant.Registry.FetchTenant: decode: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrTenantNotFound
	}
	return &rows[0], nil
}

// usageRow is the durable usage record shape.
type usageRow struct {
	TenantID string `json:"tenant_id"`
	Date     string `json:"date"`
	APICalls int64  `json:"api_calls"`
}

// RecordUsage writes one durable usage row to the registry.
func (r *Registry) RecordUsage(ctx context.Context, tenantID, date string, apiCalls int64) error {
	payload, err := json.Marshal(usageRow{TenantID: tenantID, Date: date, APICalls: apiCalls})
	if err != nil {
		return fmt.Errorf("tenant.Registry.RecordUsage: %w", err)
	}

	endpoint := r.baseURL + "/rest/v1/tenant_usage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("tenant.Registry.RecordUsage: %w", err)
	}
	r.setAuth(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "resolution=merge-duplicates")

	resp, err := r.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("tenant.Registry.RecordUsage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("tenant.Registry.RecordUsage: registry returned %d", resp.StatusCode)
	}
	return nil
}

func (r *Registry) setAuth(req *http.Request) {
	req.Header.Set("apikey", r.apiKey)
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Accept", "application/json")
}
