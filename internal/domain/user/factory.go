package user

import (
	"strings"
	"time"
)

// NewFromSignup builds an unsaved identity. The secret is attached to the
// returned Change and hashed by the save hooks.
func NewFromSignup(req SignupRequest, now time.Time) (User, *Change) {
	password := req.Password

	u := User{
		Name:      strings.TrimSpace(req.Name),
		Email:     NormalizeEmail(req.Email),
		Photo:     DefaultPhoto,
		Role:      RoleUser,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return u, &Change{IsNew: true, Password: &password}
}
