package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voterstack/gateway/internal/config"
	"github.com/voterstack/gateway/internal/flags"
	"github.com/voterstack/gateway/internal/kv"
	"github.com/voterstack/gateway/internal/metrics"
	"github.com/voterstack/gateway/internal/server"
	"github.com/voterstack/gateway/internal/tenant"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Local .env is a dev convenience; absence is not an error.
	_ = godotenv.Load()

	// Initialize structured logging from environment.
	logLevel := os.Getenv("GW_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("GW_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Connect the shared key/value store. Without a Redis address the
	// gateway runs on an in-process store: counters are then per
	// process and best-effort, which is fine for self-hosted setups.
	var store kv.Store
	if cfg.Redis.Addr != "" {
		store, err = kv.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
	} else {
		log.Warn().Msg("GW_REDIS_ADDR not set, using in-process key/value store")
		store = kv.NewMemory()
	}
	defer store.Close()

	// Tenant registry client and config cache.
	registry := tenant.NewRegistry(cfg.Registry.URL, cfg.Registry.APIKey, cfg.Registry.Timeout)
	configs := tenant.NewConfigStore(registry, cfg.Tenant.ConfigTTL, cfg.Tenant.BackendTimeout)
	if len(cfg.Tenant.PreloadSlugs) > 0 {
		configs.Preload(ctx, cfg.Tenant.PreloadSlugs)
	}

	// Feature flag definitions.
	var defs []flags.Definition
	if cfg.Flags.File != "" {
		defs, err = flags.LoadFile(cfg.Flags.File)
		if err != nil {
			return err
		}
		log.Info().Int("count", len(defs)).Str("file", cfg.Flags.File).Msg("feature flags loaded")
	}
	evaluator := flags.NewEvaluator(defs, cfg.Flags.Environment)

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, store, registry, configs, evaluator, metrics.New())

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting gateway")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
