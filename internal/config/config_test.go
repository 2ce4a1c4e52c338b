package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("RATE_LIMIT_MAX", "")

	cfg := Load()

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 90*24*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, 10*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 100, cfg.RateLimitMax)
	assert.Equal(t, time.Hour, cfg.RateLimitWindow)
	assert.Equal(t, int64(10*1024), cfg.BodyLimitBytes)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "a-long-production-secret")
	t.Setenv("JWT_EXPIRES_IN", "30d")
	t.Setenv("RESET_TOKEN_TTL", "15m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("PORT", "not-a-number")

	cfg := Load()

	assert.Equal(t, 30*24*time.Hour, cfg.JWTExpiresIn)
	assert.Equal(t, 15*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.IsDevelopment())
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := Config{
		Env:          EnvDevelopment,
		StoreDriver:  "memory",
		MailDriver:   "log",
		JWTSecret:    "secret",
		JWTExpiresIn: time.Hour,
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{name: "valid", mutate: func(c *Config) {}, ok: true},
		{name: "empty secret", mutate: func(c *Config) { c.JWTSecret = "" }},
		{name: "dev secret in production", mutate: func(c *Config) {
			c.Env = EnvProduction
			c.JWTSecret = devJWTSecret
		}},
		{name: "unknown store", mutate: func(c *Config) { c.StoreDriver = "sqlite" }},
		{name: "mailgun without key", mutate: func(c *Config) { c.MailDriver = "mailgun" }},
		{name: "zero expiry", mutate: func(c *Config) { c.JWTExpiresIn = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
