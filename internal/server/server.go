package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/voterstack/gateway/internal/config"
	"github.com/voterstack/gateway/internal/flags"
	"github.com/voterstack/gateway/internal/kv"
	"github.com/voterstack/gateway/internal/metrics"
	"github.com/voterstack/gateway/internal/proxy"
	"github.com/voterstack/gateway/internal/ratelimit"
	"github.com/voterstack/gateway/internal/server/middleware"
	"github.com/voterstack/gateway/internal/tenant"
	"github.com/voterstack/gateway/internal/usage"
)

// Server is the HTTP server that wires the gateway pipeline, the admin
// API, and the operational endpoints.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	store      kv.Store
	gateway    *Gateway
	cfg        *config.Config
}

// New creates a Server with all routes wired. The shared kv store, the
// registry client, the config store, and the flag evaluator are
// constructed by the caller and injected; the server owns nothing it
// did not create.
func New(ctx context.Context, cfg *config.Config, store kv.Store, registry *tenant.Registry, configs *tenant.ConfigStore, evaluator *flags.Evaluator, m *metrics.Metrics) *Server {
	router := chi.NewRouter()

	// Global middleware stack. CORS is answered here so preflight and
	// every error response carry the same headers.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Tenant-ID", "apikey"},
		MaxAge:         86400,
	}).Handler)

	limiter := ratelimit.New(store)
	meter := usage.NewMeter(store, registry)
	gateway := NewGateway(
		tenant.NewResolver(cfg.Tenant.TokenSecret),
		configs,
		limiter,
		proxy.New(),
		meter,
		m,
		cfg.Tenant.DefaultRateLimit,
	)

	s := &Server{
		router:  router,
		store:   store,
		gateway: gateway,
		cfg:     cfg,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	// Health check (unauthenticated).
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Unhealthy", "key/value store unreachable")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Prometheus metrics (unauthenticated; bind behind the LB in prod).
	router.Handle("/metrics", m.Handler())

	// Admin API, only when a token is provisioned.
	if cfg.Admin.Token != "" {
		router.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ctx, cfg.Admin.RateRPS, cfg.Admin.RateBurst))
			r.Use(middleware.AdminAuth(cfg.Admin.Token))

			adminConfig := huma.DefaultConfig("Gateway Admin API", "1.0.0")
			adminConfig.Servers = []*huma.Server{
				{URL: "/admin"},
			}
			adminAPI := humachi.New(r, adminConfig)
			registerAdminRoutes(adminAPI, configs, meter, evaluator)
		})
	}

	// Everything else is proxied tenant traffic.
	router.NotFound(gateway.ServeHTTP)

	return s
}

// Handler exposes the wired router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}
