package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voterstack/gateway/internal/metrics"
	"github.com/voterstack/gateway/internal/proxy"
	"github.com/voterstack/gateway/internal/ratelimit"
	"github.com/voterstack/gateway/internal/tenant"
	"github.com/voterstack/gateway/internal/usage"
)

// hopHeaders are stripped when relaying an upstream response.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// rateLimitBody is the dedicated 429 response shape.
type rateLimitBody struct {
	Error   string `json:"error"`
	Limit   int    `json:"limit"`
	ResetAt string `json:"reset_at"`
}

// Gateway handles every proxied request: resolve identity, load config,
// check the rate limit, forward, decorate, and meter usage off the
// response path. OPTIONS is terminal: genuine preflights are answered by
// the cors middleware before this handler, and a bare OPTIONS is
// answered here with the same headers, never identified or proxied.
// Every error leaving here wears the uniform JSON envelope.
type Gateway struct {
	resolver  *tenant.Resolver
	configs   *tenant.ConfigStore
	limiter   *ratelimit.Limiter
	forwarder *proxy.Forwarder
	meter     *usage.Meter
	metrics   *metrics.Metrics

	defaultLimit int
	now          func() time.Time
}

// NewGateway wires the per-request pipeline.
func NewGateway(resolver *tenant.Resolver, configs *tenant.ConfigStore, limiter *ratelimit.Limiter, forwarder *proxy.Forwarder, meter *usage.Meter, m *metrics.Metrics, defaultLimit int) *Gateway {
	return &Gateway{
		resolver:     resolver,
		configs:      configs,
		limiter:      limiter,
		forwarder:    forwarder,
		meter:        meter,
		metrics:      m,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := g.now()

	if r.Method == http.MethodOptions {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Tenant-ID, apikey")
		header.Set("Access-Control-Max-Age", "86400")
		w.WriteHeader(http.StatusNoContent)
		g.metrics.ObserveRequest("", http.StatusNoContent, g.now().Sub(start))
		return
	}

	ident := g.resolver.Resolve(r)
	if ident == nil {
		writeError(w, http.StatusBadRequest, "Tenant not identified",
			"supply a tenant via subdomain, X-Tenant-ID header, path prefix, or ?tenant= parameter")
		g.metrics.ObserveRequest("", http.StatusBadRequest, g.now().Sub(start))
		return
	}
	g.metrics.ObserveIdentification(ident.Method.String())

	cfg, err := g.configs.Load(r.Context(), ident.Slug)
	if err != nil {
		log.Warn().Err(err).Str("tenant", ident.Slug).Stringer("method", ident.Method).Msg("config load failed")
		status := writeConfigError(w, err)
		g.metrics.ObserveRequest(ident.Slug, status, g.now().Sub(start))
		return
	}

	limit := cfg.Limits.MaxAPICallsPerHour
	if limit <= 0 {
		limit = g.defaultLimit
	}
	res := g.limiter.Check(r.Context(), cfg.Slug, clientIP(r), limit)
	if !res.Allowed {
		g.metrics.ObserveRateLimited(cfg.Slug)
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
		writeJSON(w, http.StatusTooManyRequests, rateLimitBody{
			Error:   "Rate limit exceeded",
			Limit:   res.Limit,
			ResetAt: res.ResetAt.UTC().Format(time.RFC3339),
		})
		g.metrics.ObserveRequest(cfg.Slug, http.StatusTooManyRequests, g.now().Sub(start))
		return
	}

	client, err := g.configs.BackendClient(cfg)
	if err != nil {
		log.Error().Err(err).Str("tenant", cfg.Slug).Msg("backend client construction failed")
		writeError(w, http.StatusInternalServerError, "Internal error", "tenant backend is misconfigured")
		g.metrics.ObserveRequest(cfg.Slug, http.StatusInternalServerError, g.now().Sub(start))
		return
	}

	resp, err := g.forwarder.Forward(r.Context(), r, cfg, client)
	if err != nil {
		log.Warn().Err(err).Str("tenant", cfg.Slug).Msg("upstream forward failed")
		g.metrics.ObserveProxyError(cfg.Slug)
		writeError(w, http.StatusBadGateway, "Upstream unavailable", "the tenant backend did not respond")
		g.metrics.ObserveRequest(cfg.Slug, http.StatusBadGateway, g.now().Sub(start))
		return
	}
	defer resp.Body.Close()

	// Decorate and relay. The meter runs detached so a slow registry
	// flush can never hold up the response; losing an increment on
	// process exit is acceptable.
	go g.meter.Record(context.WithoutCancel(r.Context()), cfg.Slug)

	header := w.Header()
	for k, vv := range resp.Header {
		for _, v := range vv {
			header.Add(k, v)
		}
	}
	for _, h := range hopHeaders {
		header.Del(h)
	}
	header.Set("X-Response-Time", g.now().Sub(start).String())

	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Warn().Err(err).Str("tenant", cfg.Slug).Msg("relaying upstream body failed")
	}
	g.metrics.ObserveRequest(cfg.Slug, resp.StatusCode, g.now().Sub(start))
}

// clientIP returns the request's client address without the port.
// chi's RealIP middleware has already folded X-Forwarded-For into
// RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
