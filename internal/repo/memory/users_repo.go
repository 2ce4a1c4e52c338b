package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/tourhub/internal/domain/user"
	"github.com/geocoder89/tourhub/internal/query"
	"github.com/geocoder89/tourhub/internal/security"
	"github.com/google/uuid"
)

// UsersRepo is an in-process identity store. It applies the same default
// filters as the database stores: inactive identities are invisible and the
// password hash is only returned on request.
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User
	now   func() time.Time
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
		now:   time.Now,
	}
}

func visible(u user.User, opts []user.LoadOption) user.User {
	if !user.ApplyLoadOptions(opts...).WithSecret {
		u.PasswordHash = ""
	}
	return u
}

func (r *UsersRepo) emailTaken(email, exceptID string) bool {
	for id, u := range r.items {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(u.Email, "") {
		return user.User{}, user.ErrEmailTaken
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := r.now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	u.Active = true
	r.items[u.ID] = u

	return visible(u, nil), nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string, opts ...user.LoadOption) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok || !u.Active {
		return user.User{}, user.ErrNotFound
	}
	return visible(u, opts), nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string, opts ...user.LoadOption) (user.User, error) {
	email = user.NormalizeEmail(email)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if u.Active && u.Email == email {
			return visible(u, opts), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

// GetByResetToken finds the active identity holding digest with an expiry
// after now.
func (r *UsersRepo) GetByResetToken(_ context.Context, digest string, now time.Time, opts ...user.LoadOption) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.items {
		if !u.Active || u.PasswordResetToken == "" || !security.TokensEqual(u.PasswordResetToken, digest) {
			continue
		}
		if u.PasswordResetExpires == nil || !u.PasswordResetExpires.After(now) {
			continue
		}
		return visible(u, opts), nil
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetMany(_ context.Context, ids []string) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.items[id]; ok && u.Active {
			out = append(out, visible(u, nil))
		}
	}
	return out, nil
}

func (r *UsersRepo) List(_ context.Context, q query.List) ([]user.User, error) {
	r.mu.RLock()
	all := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		if u.Active {
			all = append(all, visible(u, nil))
		}
	}
	r.mu.RUnlock()

	return apply(all, q), nil
}

// Save writes every mutable field of u. An empty PasswordHash keeps the
// stored one.
func (r *UsersRepo) Save(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.items[u.ID]
	if !ok || !cur.Active {
		return user.User{}, user.ErrNotFound
	}
	if r.emailTaken(u.Email, u.ID) {
		return user.User{}, user.ErrEmailTaken
	}

	if u.PasswordHash == "" {
		u.PasswordHash = cur.PasswordHash
	}
	u.Active = cur.Active
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = r.now().UTC()
	r.items[u.ID] = u

	return visible(u, nil), nil
}

func (r *UsersRepo) Update(_ context.Context, id string, patch user.Patch) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok || !u.Active {
		return user.User{}, user.ErrNotFound
	}

	patch.Apply(&u)
	if r.emailTaken(u.Email, id) {
		return user.User{}, user.ErrEmailTaken
	}
	u.UpdatedAt = r.now().UTC()
	r.items[id] = u

	return visible(u, nil), nil
}

func (r *UsersRepo) SetResetToken(_ context.Context, id, digest string, expires time.Time) error {
	return r.mutate(id, func(u *user.User) {
		u.PasswordResetToken = digest
		u.PasswordResetExpires = &expires
	})
}

func (r *UsersRepo) ClearResetToken(_ context.Context, id string) error {
	return r.mutate(id, func(u *user.User) {
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
	})
}

func (r *UsersRepo) Deactivate(_ context.Context, id string) error {
	return r.mutate(id, func(u *user.User) {
		u.Active = false
	})
}

func (r *UsersRepo) mutate(id string, fn func(u *user.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok || !u.Active {
		return user.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = r.now().UTC()
	r.items[id] = u
	return nil
}

func (r *UsersRepo) Ping(context.Context) error {
	return nil
}
