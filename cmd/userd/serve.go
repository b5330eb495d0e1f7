// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ShopNest Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/shopnest/userd/internal/auth"
	"github.com/shopnest/userd/internal/auth/memory"
	"github.com/shopnest/userd/internal/auth/postgres"
	authredis "github.com/shopnest/userd/internal/auth/redis"
	"github.com/shopnest/userd/internal/config"
	"github.com/shopnest/userd/internal/httpapi"
	"github.com/shopnest/userd/internal/logging"
	"github.com/shopnest/userd/internal/observability"
	"github.com/shopnest/userd/internal/store"
	"github.com/shopnest/userd/pkg/errutil"
)

// shutdownTimeout bounds graceful shutdown of the HTTP servers.
const shutdownTimeout = 10 * time.Second

// janitorInterval is the active-eviction period for the in-memory cache.
const janitorInterval = time.Minute

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the user service",
		Long: `Start the user service API along with its observability endpoints.
Configuration comes from the --config file, environment fallbacks, and flags.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(resolveConfigPath(), cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("listen_addr", "", "API listen address")
	cmd.Flags().String("metrics_addr", "", "metrics/health HTTP address")
	cmd.Flags().String("database_url", "", "PostgreSQL connection string")
	cmd.Flags().String("redis_addr", "", "Redis host:port for the session cache")
	cmd.Flags().String("cache_backend", "", "session cache backend (redis or memory)")
	cmd.Flags().String("log_format", "", "log format (json or text)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logging.SetDefault("userd", version, cfg.LogFormat)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Credential store
	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("SERVE_DB_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()
	credentials := postgres.NewIdentityRepository(pool)

	// Session cache
	var cache auth.SessionCache
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		defer func() {
			if err := client.Close(); err != nil {
				logger.Warn("closing redis client", "error", err)
			}
		}()
		if err := client.Ping(ctx).Err(); err != nil {
			return oops.Code("SERVE_REDIS_FAILED").
				With("operation", "ping redis").
				With("addr", cfg.RedisAddr).
				Wrap(err)
		}
		cache = authredis.NewSessionCache(client)
	case config.CacheBackendMemory:
		memCache := memory.New()
		memCache.StartJanitor(janitorInterval)
		defer memCache.Close()
		cache = memCache
	default:
		return oops.Code("SERVE_CONFIG_INVALID").Errorf("unknown cache backend %q", cfg.CacheBackend)
	}

	// Observability server carries the metrics registry; readiness is a DB ping.
	obsServer := observability.NewServer(cfg.MetricsAddr, func() bool {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return pool.Ping(pingCtx) == nil
	})

	// Auth core
	hasher := auth.NewArgon2idHasher(cfg.Argon2MemoryKiB)
	svc, err := auth.NewServiceWithMetrics(credentials, cache, hasher, auth.Config{
		SessionTTL:     cfg.SessionTTL,
		PasswordMinLen: cfg.PasswordMinLen,
	}, obsServer.AuthMetrics())
	if err != nil {
		return oops.Code("SERVE_INIT_FAILED").With("operation", "create auth service").Wrap(err)
	}

	apiServer := httpapi.NewServer(cfg.ListenAddr, svc, logger)

	obsErrCh, err := obsServer.Start()
	if err != nil {
		return oops.Code("SERVE_START_FAILED").With("operation", "start observability server").Wrap(err)
	}

	apiErrCh, err := apiServer.Start()
	if err != nil {
		stopServer(obsServer, logger)
		return oops.Code("SERVE_START_FAILED").With("operation", "start api server").Wrap(err)
	}

	logger.Info("user service running",
		"api_addr", apiServer.Addr(),
		"metrics_addr", obsServer.Addr(),
		"cache_backend", cfg.CacheBackend,
	)

	// Block until a signal or a server failure.
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-apiErrCh:
		if err != nil {
			runErr = oops.Code("SERVE_API_FAILED").Wrap(err)
		}
	case err := <-obsErrCh:
		if err != nil {
			runErr = oops.Code("SERVE_OBSERVABILITY_FAILED").Wrap(err)
		}
	}

	stopServer(apiServer, logger)
	stopServer(obsServer, logger)

	return runErr
}

// stoppable is implemented by both HTTP servers.
type stoppable interface {
	Stop(ctx context.Context) error
}

func stopServer(s stoppable, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		errutil.LogError(logger, "server shutdown failed", err)
	}
}
