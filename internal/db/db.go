// Package db opens the configured store backend and prepares its schema.
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/tourhub/internal/config"
	"github.com/geocoder89/tourhub/internal/http/handlers"
	"github.com/geocoder89/tourhub/internal/observability"
	"github.com/geocoder89/tourhub/internal/repo/memory"
	"github.com/geocoder89/tourhub/internal/repo/mongodb"
	"github.com/geocoder89/tourhub/internal/repo/postgres"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Backend is an opened store with its health check and shutdown hook.
type Backend struct {
	Driver string
	Stores handlers.Stores
	Ping   func(ctx context.Context) error
	Close  func(ctx context.Context) error
}

// Open connects to the backend named by cfg.StoreDriver.
func Open(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (*Backend, error) {
	switch cfg.StoreDriver {
	case "mongo":
		return openMongo(ctx, cfg, prom)
	case "postgres":
		return openPostgres(ctx, cfg, prom, log)
	case "memory":
		log.Warn("db.memory_store", "msg", "data is lost on restart")
		return OpenMemory(), nil
	default:
		return nil, fmt.Errorf("db.open: unknown store driver %q", cfg.StoreDriver)
	}
}

// OpenMemory returns an in-process backend.
func OpenMemory() *Backend {
	users := memory.NewUsersRepo()
	return &Backend{
		Driver: "memory",
		Stores: handlers.Stores{
			Users:   users,
			Tours:   memory.NewToursRepo(),
			Reviews: memory.NewReviewsRepo(),
		},
		Ping:  users.Ping,
		Close: func(context.Context) error { return nil },
	}
}

func openMongo(ctx context.Context, cfg config.Config, prom *observability.Prom) (*Backend, error) {
	client, err := NewMongoClient(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}

	database := client.Database(cfg.MongoDB)

	ictx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mongodb.EnsureIndexes(ictx, database); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("db.mongo_indexes: %w", err)
	}

	return &Backend{
		Driver: "mongo",
		Stores: handlers.Stores{
			Users:   mongodb.NewUsersRepo(database, prom),
			Tours:   mongodb.NewToursRepo(database, prom),
			Reviews: mongodb.NewReviewsRepo(database, prom),
		},
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		Close: client.Disconnect,
	}, nil
}

// NewMongoClient connects and pings once so a bad URI fails at startup.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second))
	if err != nil {
		return nil, fmt.Errorf("db.mongo_connect: %w", err)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("db.mongo_ping: %w", err)
	}
	return client, nil
}

func openPostgres(ctx context.Context, cfg config.Config, prom *observability.Prom, log *slog.Logger) (*Backend, error) {
	if cfg.DBMigrate {
		if err := RunMigrations(cfg.DBURL, log); err != nil {
			return nil, err
		}
	}

	pool, err := NewPool(ctx, cfg.DBURL)
	if err != nil {
		return nil, err
	}

	return &Backend{
		Driver: "postgres",
		Stores: handlers.Stores{
			Users:   postgres.NewUsersRepo(pool, prom),
			Tours:   postgres.NewToursRepo(pool, prom),
			Reviews: postgres.NewReviewsRepo(pool, prom),
		},
		Ping: pool.Ping,
		Close: func(context.Context) error {
			pool.Close()
			return nil
		},
	}, nil
}

func NewPool(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(cctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(cctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// RunMigrations applies the embedded Postgres migrations.
func RunMigrations(dbURL string, log *slog.Logger) error {
	src, err := iofs.New(postgres.Migrations, "migrations")
	if err != nil {
		return fmt.Errorf("db.migrations_source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return fmt.Errorf("db.migrations_init: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			log.Warn("db.migrations_close_failed", "source_err", srcErr, "db_err", dbErr)
		}
	}()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("db.migrations_up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		log.Warn("db.migrations_version_unknown", "err", err)
		return nil
	}
	if dirty {
		return fmt.Errorf("db.migrations: version %d is dirty", version)
	}

	log.Info("db.migrations_applied", "version", version)
	return nil
}
