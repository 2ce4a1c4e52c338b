package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/tourhub/internal/domain/user"
	"github.com/geocoder89/tourhub/internal/observability"
	"github.com/geocoder89/tourhub/internal/query"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, name, email, photo, role, password_changed_at,
	password_reset_token, password_reset_expires, created_at, updated_at`

var userSortColumns = map[string]string{
	"name":      "name",
	"email":     "email",
	"role":      "role",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

type UsersRepo struct {
	base
}

func NewUsersRepo(db DB, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{base{db: db, prom: prom}}
}

func selectUser(withSecret bool) string {
	if withSecret {
		return "SELECT " + userColumns + ", password_hash FROM users"
	}
	return "SELECT " + userColumns + " FROM users"
}

func scanUser(row pgx.Row, withSecret bool) (user.User, error) {
	var (
		u          user.User
		role       string
		resetToken *string
	)

	dest := []any{
		&u.ID, &u.Name, &u.Email, &u.Photo, &role, &u.PasswordChangedAt,
		&resetToken, &u.PasswordResetExpires, &u.CreatedAt, &u.UpdatedAt,
	}
	if withSecret {
		dest = append(dest, &u.PasswordHash)
	}

	if err := row.Scan(dest...); err != nil {
		return user.User{}, err
	}

	u.Role = user.Role(role)
	u.Active = true
	if resetToken != nil {
		u.PasswordResetToken = *resetToken
	}
	return u, nil
}

func (r *UsersRepo) getOne(ctx context.Context, op, where string, args []any, opts []user.LoadOption) (user.User, error) {
	o := user.ApplyLoadOptions(opts...)

	var u user.User
	err := r.observe(op, func() error {
		var err error
		u, err = scanUser(r.db.QueryRow(ctx, selectUser(o.WithSecret)+" WHERE "+where, args...), o.WithSecret)
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	u.Active = true

	err := r.observe("users.create", func() error {
		_, err := r.db.Exec(ctx,
			`INSERT INTO users (id, name, email, photo, role, password_hash, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)`,
			u.ID, u.Name, u.Email, u.Photo, string(u.Role), u.PasswordHash, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})
	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("users.create: %w", err)
	}

	u.PasswordHash = ""
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string, opts ...user.LoadOption) (user.User, error) {
	return r.getOne(ctx, "users.get_by_id", "id = $1 AND active", []any{id}, opts)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string, opts ...user.LoadOption) (user.User, error) {
	return r.getOne(ctx, "users.get_by_email", "email = $1 AND active", []any{user.NormalizeEmail(email)}, opts)
}

func (r *UsersRepo) GetByResetToken(ctx context.Context, digest string, now time.Time, opts ...user.LoadOption) (user.User, error) {
	return r.getOne(ctx, "users.get_by_reset_token",
		"password_reset_token = $1 AND password_reset_expires > $2 AND active",
		[]any{digest, now}, opts)
}

func (r *UsersRepo) collect(ctx context.Context, op, sql string, args []any) ([]user.User, error) {
	out := make([]user.User, 0)

	err := r.observe(op, func() error {
		rows, err := r.db.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			u, err := scanUser(rows, false)
			if err != nil {
				return err
			}
			out = append(out, u)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *UsersRepo) GetMany(ctx context.Context, ids []string) ([]user.User, error) {
	if len(ids) == 0 {
		return []user.User{}, nil
	}
	return r.collect(ctx, "users.get_many", selectUser(false)+" WHERE id = ANY($1) AND active", []any{ids})
}

func (r *UsersRepo) List(ctx context.Context, q query.List) ([]user.User, error) {
	where, args := whereClause([]string{"active"}, q.Conditions, userSortColumns, nil)
	sql := selectUser(false) + where + orderClause(q.SortOrDefault(), userSortColumns)
	page, args := pageClause(q, args)

	return r.collect(ctx, "users.list", sql+page, args)
}

// Save writes every mutable field of u in one statement. An empty
// PasswordHash keeps the stored hash.
func (r *UsersRepo) Save(ctx context.Context, u user.User) (user.User, error) {
	var resetToken *string
	if u.PasswordResetToken != "" {
		resetToken = &u.PasswordResetToken
	}

	var saved user.User
	err := r.observe("users.save", func() error {
		var err error
		saved, err = scanUser(r.db.QueryRow(ctx,
			`UPDATE users SET
				name = $2,
				email = $3,
				photo = $4,
				role = $5,
				password_hash = COALESCE(NULLIF($6, ''), password_hash),
				password_changed_at = $7,
				password_reset_token = $8,
				password_reset_expires = $9,
				updated_at = now()
			WHERE id = $1 AND active
			RETURNING `+userColumns,
			u.ID, u.Name, u.Email, u.Photo, string(u.Role), u.PasswordHash,
			u.PasswordChangedAt, resetToken, u.PasswordResetExpires,
		), false)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return user.User{}, user.ErrNotFound
		case IsUniqueViolation(err):
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("users.save: %w", err)
	}
	return saved, nil
}

func (r *UsersRepo) Update(ctx context.Context, id string, patch user.Patch) (user.User, error) {
	patch = patch.Normalize()
	var role *string
	if patch.Role != nil {
		s := string(*patch.Role)
		role = &s
	}

	var updated user.User
	err := r.observe("users.update", func() error {
		var err error
		updated, err = scanUser(r.db.QueryRow(ctx,
			`UPDATE users SET
				name = COALESCE($2, name),
				email = COALESCE($3, email),
				photo = COALESCE($4, photo),
				role = COALESCE($5, role),
				updated_at = now()
			WHERE id = $1 AND active
			RETURNING `+userColumns,
			id, patch.Name, patch.Email, patch.Photo, role,
		), false)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return user.User{}, user.ErrNotFound
		case IsUniqueViolation(err):
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("users.update: %w", err)
	}
	return updated, nil
}

func (r *UsersRepo) exec(ctx context.Context, op, sql string, args ...any) error {
	var affected int64
	err := r.observe(op, func() error {
		tag, err := r.db.Exec(ctx, sql, args...)
		affected = tag.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) SetResetToken(ctx context.Context, id, digest string, expires time.Time) error {
	return r.exec(ctx, "users.set_reset_token",
		`UPDATE users SET password_reset_token = $2, password_reset_expires = $3, updated_at = now()
		WHERE id = $1 AND active`, id, digest, expires)
}

func (r *UsersRepo) ClearResetToken(ctx context.Context, id string) error {
	return r.exec(ctx, "users.clear_reset_token",
		`UPDATE users SET password_reset_token = NULL, password_reset_expires = NULL, updated_at = now()
		WHERE id = $1 AND active`, id)
}

func (r *UsersRepo) Deactivate(ctx context.Context, id string) error {
	return r.exec(ctx, "users.deactivate",
		`UPDATE users SET active = FALSE, updated_at = now() WHERE id = $1 AND active`, id)
}
