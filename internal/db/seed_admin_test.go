package db

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/tourhub/internal/config"
	"github.com/geocoder89/tourhub/internal/domain/user"
	"github.com/geocoder89/tourhub/internal/repo/memory"
	"github.com/geocoder89/tourhub/internal/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureAdminUser(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUsersRepo()
	hasher := security.NewHasher(4)
	hooks := user.SaveHooks(hasher, time.Now)

	cfg := config.Config{AdminEmail: "Admin@Example.com", AdminPassword: "admin-pass-1", AdminName: "Site Admin"}

	created, err := EnsureAdminUser(ctx, users, hooks, cfg)
	require.NoError(t, err)
	assert.True(t, created)

	u, err := users.GetByEmail(ctx, "admin@example.com", user.WithSecret())
	require.NoError(t, err)
	assert.Equal(t, user.RoleAdmin, u.Role)
	assert.NoError(t, security.CheckPassword(u.PasswordHash, "admin-pass-1"))

	created, err = EnsureAdminUser(ctx, users, hooks, cfg)
	require.NoError(t, err)
	assert.False(t, created, "second run must be a no-op")
}

func TestEnsureAdminUser_DisabledWithoutCredentials(t *testing.T) {
	users := memory.NewUsersRepo()

	created, err := EnsureAdminUser(context.Background(), users, user.SaveHooks(security.NewHasher(4), time.Now), config.Config{})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestOpenMemory(t *testing.T) {
	b := OpenMemory()
	assert.Equal(t, "memory", b.Driver)
	assert.NoError(t, b.Ping(context.Background()))
	assert.NoError(t, b.Close(context.Background()))
}
