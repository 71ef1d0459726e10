// Package proxy forwards identified requests to a tenant's backend and
// decorates the response.
package proxy

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/voterstack/gateway/internal/domain"
	"github.com/voterstack/gateway/internal/tenant"
)

// Forwarder rewrites and relays one request to a tenant backend. It is
// transparent to backend errors: upstream non-2xx responses pass through
// unmodified. Only a transport failure returns an error, which the
// gateway maps to a 502.
type Forwarder struct{}

// New creates a Forwarder.
func New() *Forwarder {
	return &Forwarder{}
}

// Forward sends the request to the tenant's backend and returns the
// upstream response with tenant headers attached. The caller owns the
// response body.
func (f *Forwarder) Forward(ctx context.Context, r *http.Request, cfg *domain.TenantConfig, client *tenant.Client) (*http.Response, error) {
	target := *client.BaseURL
	target.Path = joinPath(client.BaseURL.Path, stripSlugPrefix(r.URL.Path, cfg.Slug))
	target.RawQuery = r.URL.RawQuery

	out, err := http.NewRequestWithContext(ctx, r.Method, target.String(), r.Body)
	if err != nil {
		return nil, fmt.Errorf("proxy.Forward: build request: %w", err)
	}
	out.ContentLength = r.ContentLength

	// Clone inbound headers; Host is recomputed by the transport.
	out.Header = r.Header.Clone()
	out.Header.Del("Host")
	out.Header.Set("apikey", client.Credential)
	out.Header.Set("X-Tenant-ID", cfg.Slug)
	out.Header.Set("X-Tenant-Name", cfg.DisplayName)
	if out.Header.Get("X-Request-ID") == "" {
		out.Header.Set("X-Request-ID", uuid.NewString())
	}

	resp, err := client.HTTP.Do(out)
	if err != nil {
		return nil, fmt.Errorf("proxy.Forward: %s %s: %w", r.Method, target.Host, err)
	}

	resp.Header.Set("X-Tenant-ID", cfg.Slug)
	resp.Header.Set("X-Tenant-Region", cfg.Region)
	return resp, nil
}

// stripSlugPrefix removes a leading /{slug} segment so path-identified
// requests hit the backend at the bare path.
func stripSlugPrefix(path, slug string) string {
	prefix := "/" + slug
	if path == prefix {
		return "/"
	}
	if strings.HasPrefix(path, prefix+"/") {
		return path[len(prefix):]
	}
	return path
}

func joinPath(base, rest string) string {
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return base + rest
}
