package user

import (
	"fmt"
	"time"
)

type Hasher interface {
	Hash(plain string) (string, error)
}

// Change describes a pending write of an identity. Password holds a new
// plaintext secret and is consumed by HashPassword.
type Change struct {
	IsNew    bool
	Password *string

	passwordModified bool
}

func (c *Change) PasswordModified() bool {
	return c.passwordModified
}

// Hook runs before an identity is persisted.
type Hook func(u *User, c *Change) error

type Hooks []Hook

func (hs Hooks) Run(u *User, c *Change) error {
	for _, h := range hs {
		if err := h(u, c); err != nil {
			return err
		}
	}
	return nil
}

// SaveHooks is the pipeline every identity write goes through.
func SaveHooks(hasher Hasher, now func() time.Time) Hooks {
	return Hooks{
		HashPassword(hasher),
		StampPasswordChange(now),
	}
}

// HashPassword replaces a pending plaintext secret with its hash.
func HashPassword(hasher Hasher) Hook {
	return func(u *User, c *Change) error {
		if c.Password == nil {
			return nil
		}

		hash, err := hasher.Hash(*c.Password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		u.PasswordHash = hash
		c.Password = nil
		c.passwordModified = true
		return nil
	}
}

// StampPasswordChange records when an existing identity's secret changed.
// A token issued in the same second as the change still verifies, since iat
// carries whole seconds only.
func StampPasswordChange(now func() time.Time) Hook {
	return func(u *User, c *Change) error {
		if !c.PasswordModified() || c.IsNew {
			return nil
		}

		at := now()
		u.PasswordChangedAt = &at
		return nil
	}
}
