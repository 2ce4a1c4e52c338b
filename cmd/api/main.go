package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/tourhub/internal/auth"
	"github.com/geocoder89/tourhub/internal/cache"
	"github.com/geocoder89/tourhub/internal/config"
	"github.com/geocoder89/tourhub/internal/db"
	"github.com/geocoder89/tourhub/internal/domain/user"
	httpx "github.com/geocoder89/tourhub/internal/http"
	"github.com/geocoder89/tourhub/internal/http/handlers"
	"github.com/geocoder89/tourhub/internal/http/middlewares"
	"github.com/geocoder89/tourhub/internal/notifications"
	"github.com/geocoder89/tourhub/internal/observability"
	"github.com/geocoder89/tourhub/internal/queue"
	"github.com/geocoder89/tourhub/internal/queue/redisclient"
	"github.com/geocoder89/tourhub/internal/security"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		slog.Error("api.exit", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		Enabled:     cfg.OTelEnabled,
		ServiceName: "tourhub-api",
		Environment: cfg.Env,
		Endpoint:    cfg.OTelEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	backend, err := db.Open(ctx, cfg, prom, log)
	if err != nil {
		return err
	}
	defer func() {
		cctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = backend.Close(cctx)
	}()

	hasher := security.NewHasher(cfg.BcryptCost)

	sctx, cancel := config.WithTimeout(10 * time.Second)
	created, err := db.EnsureAdminUser(sctx, backend.Stores.Users, user.SaveHooks(hasher, time.Now), cfg)
	cancel()
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Info("api.admin_seeded", "email", cfg.AdminEmail)
	}

	deps := httpx.Deps{
		Cfg:    cfg,
		Log:    log,
		Stores: backend.Stores,
		Tokens: auth.NewManager(cfg.JWTSecret, cfg.JWTExpiresIn),
		Hasher: hasher,
		Mailer: notifications.FromConfig(cfg, log, prom, "reset"),
		Pings:  map[string]handlers.PingFunc{"store": backend.Ping},
		Prom:   prom,
	}

	// Redis is optional: without it the limiter and cache stay in process and
	// no welcome jobs are scheduled.
	if rc := redisclient.FromConfig(cfg); rc != nil {
		defer rc.Close()

		q := queue.New(rc.Raw(), queue.DefaultKeys(""))
		deps.RateStore = middlewares.NewRedisRateStore(rc.Raw(), cfg.RateLimitMax, cfg.RateLimitWindow)
		deps.Cache = cache.WithMetrics(cache.NewRedis(rc.Raw(), cfg.CacheTTL), prom)
		deps.Queue = q
		deps.AdminJobs = q
		deps.Pings["redis"] = rc.Ping
	} else {
		deps.Cache = cache.WithMetrics(cache.NewLocal(cfg.CacheTTL), prom)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpx.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("api.starting", "port", cfg.Port, "env", cfg.Env, "store", backend.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("api.shutting_down")

	shutdownCtx, cancelShutdown := config.WithTimeout(10 * time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("api.shutdown_complete")
	return nil
}
