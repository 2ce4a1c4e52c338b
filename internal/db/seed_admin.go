package db

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/tourhub/internal/config"
	"github.com/geocoder89/tourhub/internal/domain/user"
)

type AdminStore interface {
	GetByEmail(ctx context.Context, email string, opts ...user.LoadOption) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
}

// EnsureAdminUser creates the configured admin through the normal save hooks
// unless an identity with that email already exists.
func EnsureAdminUser(ctx context.Context, users AdminStore, hooks user.Hooks, cfg config.Config) (bool, error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	_, err := users.GetByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	u, change := user.NewFromSignup(user.SignupRequest{
		Name:            cfg.AdminName,
		Email:           cfg.AdminEmail,
		Password:        cfg.AdminPassword,
		PasswordConfirm: cfg.AdminPassword,
	}, time.Now().UTC())
	u.Role = user.RoleAdmin

	if err := hooks.Run(&u, change); err != nil {
		return false, err
	}

	if _, err := users.Create(ctx, u); err != nil {
		// A deactivated identity still owns the address.
		if errors.Is(err, user.ErrEmailTaken) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
