package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	devJWTSecret = "dev-secret-change-me"
)

type Config struct {
	Env  string
	Port int

	StoreDriver string
	MongoURI    string
	MongoDB     string
	DBURL       string
	DBMigrate   bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret         string
	JWTExpiresIn      time.Duration
	JWTCookieDays     int
	ResetTokenTTL     time.Duration
	BcryptCost        int
	RateLimitMax      int
	RateLimitWindow   time.Duration
	BodyLimitBytes    int64
	CORSOrigins       []string
	CacheTTL          time.Duration
	PublicBaseURL     string
	WorkerConcurrency int
	WorkerPort        int

	MailDriver          string
	MailFrom            string
	MailgunDomain       string
	MailgunAPIKey       string
	MailSimulateFailure bool

	OTelEnabled  bool
	OTelEndpoint string

	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// Load reads a .env file when present and builds the process configuration.
// Nothing else in the module reads the environment after this returns.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("config.dotenv_failed", "err", err)
	}

	return Config{
		Env:  getEnv("APP_ENV", EnvDevelopment),
		Port: getEnvInt("PORT", 8080),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "mongo")),
		MongoURI:    getEnv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:     getEnv("MONGO_DB", "tourhub"),
		DBURL:       buildDBURL(),
		DBMigrate:   getEnvBool("DB_MIGRATE", true),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		JWTSecret:       getEnv("JWT_SECRET", devJWTSecret),
		JWTExpiresIn:    getEnvDuration("JWT_EXPIRES_IN", 90*24*time.Hour),
		JWTCookieDays:   getEnvInt("JWT_COOKIE_EXPIRES_IN", 90),
		ResetTokenTTL:   getEnvDuration("RESET_TOKEN_TTL", 10*time.Minute),
		BcryptCost:      getEnvInt("BCRYPT_COST", 12),
		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Hour),
		BodyLimitBytes:  int64(getEnvInt("BODY_LIMIT_BYTES", 10*1024)),
		CORSOrigins:     getEnvList("CORS_ALLOWED_ORIGINS"),
		CacheTTL:        getEnvDuration("CACHE_TTL", time.Minute),
		PublicBaseURL:   strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 2),
		WorkerPort:        getEnvInt("WORKER_PORT", 8081),

		MailDriver:          strings.ToLower(getEnv("MAIL_DRIVER", "log")),
		MailFrom:            getEnv("MAIL_FROM", "Tourhub <no-reply@tourhub.local>"),
		MailgunDomain:       getEnv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey:       getEnv("MAILGUN_API_KEY", ""),
		MailSimulateFailure: getEnvBool("MAIL_SIMULATE_FAILURE", false),

		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Admin"),
	}
}

func (c Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// Validate rejects configurations the server must not start with.
func (c Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Env == EnvProduction && c.JWTSecret == devJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	if c.JWTExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be positive"))
	}

	switch c.StoreDriver {
	case "mongo", "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	switch c.MailDriver {
	case "log":
	case "mailgun":
		if c.MailgunDomain == "" || c.MailgunAPIKey == "" {
			errs = append(errs, errors.New("MAILGUN_DOMAIN and MAILGUN_API_KEY are required for the mailgun driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MAIL_DRIVER %q", c.MailDriver))
	}

	return errors.Join(errs...)
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "tourhub")
	pass := getEnv("DB_PASSWORD", "tourhub")
	name := getEnv("DB_NAME", "tourhub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("config.invalid_int", "key", key, "value", v)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("config.invalid_bool", "key", key, "value", v)
			return fallback
		}
		return b
	}
	return fallback
}

// getEnvDuration accepts Go durations ("15m", "2h") and bare day counts ("90d").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err == nil {
			return time.Duration(n) * 24 * time.Hour
		}
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config.invalid_duration", "key", key, "value", v)
		return fallback
	}
	return d
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
