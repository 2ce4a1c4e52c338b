package user

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

const DefaultPhoto = "default.jpg"

type User struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	Photo                string     `json:"photo,omitempty"`
	Role                 Role       `json:"role"`
	PasswordHash         string     `json:"-"` // never expose hash in JSON
	PasswordChangedAt    *time.Time `json:"-"`
	PasswordResetToken   string     `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	Active               bool       `json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// Public is the slice of an identity embedded in other resources.
type Public struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Photo string `json:"photo,omitempty"`
	Role  Role   `json:"role,omitempty"`
}

func (u User) Public() Public {
	return Public{ID: u.ID, Name: u.Name, Email: u.Email, Photo: u.Photo, Role: u.Role}
}

// ChangedPasswordAfter reports whether the secret changed after a token
// issued at iat. Comparison is at second resolution, the resolution of iat.
func (u User) ChangedPasswordAfter(iat time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return iat.Unix() < u.PasswordChangedAt.Unix()
}

// HasRole reports whether the identity holds one of roles.
func (u User) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
)

// LoadOptions tune how a store materialises an identity.
type LoadOptions struct {
	WithSecret bool
}

type LoadOption func(*LoadOptions)

// WithSecret asks the store to load the password hash. Default lookups leave
// PasswordHash empty.
func WithSecret() LoadOption {
	return func(o *LoadOptions) { o.WithSecret = true }
}

func ApplyLoadOptions(opts ...LoadOption) LoadOptions {
	var o LoadOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Patch is a partial update of profile fields. Nil fields are left unchanged.
// It can never carry a secret.
type Patch struct {
	Name  *string
	Email *string
	Photo *string
	Role  *Role
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Photo == nil && p.Role == nil
}

// Normalize trims the name and canonicalizes the email. Every store writes
// the normalized patch.
func (p Patch) Normalize() Patch {
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		p.Name = &n
	}
	if p.Email != nil {
		e := NormalizeEmail(*p.Email)
		p.Email = &e
	}
	return p
}

func (p Patch) Apply(u *User) {
	p = p.Normalize()
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Photo != nil {
		u.Photo = *p.Photo
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
}
