package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/geocoder89/tourhub/internal/config"
	"github.com/geocoder89/tourhub/internal/jobs"
	"github.com/geocoder89/tourhub/internal/notifications"
	"github.com/geocoder89/tourhub/internal/observability"
	"github.com/geocoder89/tourhub/internal/queue"
	"github.com/geocoder89/tourhub/internal/queue/redisclient"
	"github.com/geocoder89/tourhub/internal/queue/worker"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker.exit", "err", err)
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
		ServiceName: "tourhub-worker",
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

	rc := redisclient.FromConfig(cfg)
	if rc == nil {
		return errors.New("REDIS_ADDR is required for the worker")
	}
	defer rc.Close()

	pctx, cancel := config.WithTimeout(5 * time.Second)
	err = rc.Ping(pctx)
	cancel()
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	prom := observability.NewProm(prometheus.DefaultRegisterer)
	mailer := notifications.FromConfig(cfg, log, prom, "welcome")

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		WorkerID:        workerID,
		Concurrency:     cfg.WorkerConcurrency,
		PopTimeout:      2 * time.Second,
		JobTimeout:      30 * time.Second,
		PromoteInterval: time.Second,
	}, queue.New(rc.Raw(), queue.DefaultKeys("")), jobs.NewDispatcher(mailer), log, prom)

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerPort),
		Handler:           w.HealthHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("worker.health_listening", "port", cfg.WorkerPort)
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker.health_failed", "err", err)
		}
	}()

	log.Info("worker.started", "worker_id", workerID, "concurrency", cfg.WorkerConcurrency)

	runErr := w.Run(ctx)

	sctx, scancel := config.WithTimeout(5 * time.Second)
	defer scancel()
	_ = healthSrv.Shutdown(sctx)

	log.Info("worker.shutdown_complete", "stats", w.Metrics().Snapshot())
	return runErr
}
