package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/tourhub/internal/domain/user"
	"github.com/geocoder89/tourhub/internal/observability"
	"github.com/geocoder89/tourhub/internal/query"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type userDoc struct {
	ID                   bson.ObjectID `bson:"_id,omitempty"`
	Name                 string        `bson:"name"`
	Email                string        `bson:"email"`
	Photo                string        `bson:"photo,omitempty"`
	Role                 string        `bson:"role"`
	Password             string        `bson:"password,omitempty"`
	PasswordChangedAt    *time.Time    `bson:"passwordChangedAt,omitempty"`
	PasswordResetToken   string        `bson:"passwordResetToken,omitempty"`
	PasswordResetExpires *time.Time    `bson:"passwordResetExpires,omitempty"`
	Active               *bool         `bson:"active,omitempty"`
	CreatedAt            time.Time     `bson:"createdAt"`
	UpdatedAt            time.Time     `bson:"updatedAt"`
}

func (d userDoc) toDomain() user.User {
	return user.User{
		ID:                   d.ID.Hex(),
		Name:                 d.Name,
		Email:                d.Email,
		Photo:                d.Photo,
		Role:                 user.Role(d.Role),
		PasswordHash:         d.Password,
		PasswordChangedAt:    d.PasswordChangedAt,
		PasswordResetToken:   d.PasswordResetToken,
		PasswordResetExpires: d.PasswordResetExpires,
		Active:               d.Active == nil || *d.Active,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
}

// activeOnly is the default query fragment: documents without the flag
// count as active.
func activeOnly(f bson.M) bson.M {
	f["active"] = bson.M{"$ne": false}
	return f
}

func userProjection(opts []user.LoadOption) bson.M {
	if user.ApplyLoadOptions(opts...).WithSecret {
		return nil
	}
	return bson.M{"password": 0}
}

type UsersRepo struct {
	base
}

func NewUsersRepo(db *mongo.Database, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{base{coll: db.Collection(usersCollection), prom: prom}}
}

func (r *UsersRepo) Create(ctx context.Context, u user.User) (user.User, error) {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	active := true

	doc := userDoc{
		ID:        bson.NewObjectID(),
		Name:      u.Name,
		Email:     u.Email,
		Photo:     u.Photo,
		Role:      string(u.Role),
		Password:  u.PasswordHash,
		Active:    &active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: now,
	}

	err := r.observe("users.create", func() error {
		_, err := r.coll.InsertOne(ctx, doc)
		return err
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("users.create: %w", err)
	}

	doc.Password = ""
	return doc.toDomain(), nil
}

func (r *UsersRepo) findOne(ctx context.Context, op string, filter bson.M, opts []user.LoadOption) (user.User, error) {
	var doc userDoc
	err := r.observe(op, func() error {
		findOpts := options.FindOne()
		if p := userProjection(opts); p != nil {
			findOpts.SetProjection(p)
		}
		return r.coll.FindOne(ctx, activeOnly(filter), findOpts).Decode(&doc)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toDomain(), nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string, opts ...user.LoadOption) (user.User, error) {
	oid, ok := parseID(id)
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return r.findOne(ctx, "users.get_by_id", bson.M{"_id": oid}, opts)
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string, opts ...user.LoadOption) (user.User, error) {
	return r.findOne(ctx, "users.get_by_email", bson.M{"email": user.NormalizeEmail(email)}, opts)
}

func (r *UsersRepo) GetByResetToken(ctx context.Context, digest string, now time.Time, opts ...user.LoadOption) (user.User, error) {
	return r.findOne(ctx, "users.get_by_reset_token", bson.M{
		"passwordResetToken":   digest,
		"passwordResetExpires": bson.M{"$gt": now},
	}, opts)
}

func (r *UsersRepo) find(ctx context.Context, op string, filter bson.M, opts *options.FindOptionsBuilder) ([]user.User, error) {
	out := make([]user.User, 0)
	err := r.observe(op, func() error {
		cur, err := r.coll.Find(ctx, activeOnly(filter), opts.SetProjection(bson.M{"password": 0}))
		if err != nil {
			return err
		}
		var docs []userDoc
		if err := cur.All(ctx, &docs); err != nil {
			return err
		}
		for _, d := range docs {
			out = append(out, d.toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (r *UsersRepo) GetMany(ctx context.Context, ids []string) ([]user.User, error) {
	oids := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, ok := parseID(id); ok {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []user.User{}, nil
	}
	return r.find(ctx, "users.get_many", bson.M{"_id": bson.M{"$in": oids}}, options.Find())
}

func (r *UsersRepo) List(ctx context.Context, q query.List) ([]user.User, error) {
	return r.find(ctx, "users.list", buildFilter(bson.M{}, q.Conditions, nil), findOptions(q))
}

func (r *UsersRepo) findOneAndUpdate(ctx context.Context, op string, id string, update bson.M) (user.User, error) {
	oid, ok := parseID(id)
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	var doc userDoc
	err := r.observe(op, func() error {
		return r.coll.FindOneAndUpdate(ctx,
			activeOnly(bson.M{"_id": oid}),
			update,
			options.FindOneAndUpdate().
				SetReturnDocument(options.After).
				SetProjection(bson.M{"password": 0}),
		).Decode(&doc)
	})
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return user.User{}, user.ErrNotFound
		case mongo.IsDuplicateKeyError(err):
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toDomain(), nil
}

// Save writes every mutable field of u in one atomic update. An empty
// PasswordHash keeps the stored hash; cleared reset fields are unset.
func (r *UsersRepo) Save(ctx context.Context, u user.User) (user.User, error) {
	set := bson.M{
		"name":      u.Name,
		"email":     u.Email,
		"photo":     u.Photo,
		"role":      string(u.Role),
		"updatedAt": time.Now().UTC(),
	}
	unset := bson.M{}

	if u.PasswordHash != "" {
		set["password"] = u.PasswordHash
	}
	if u.PasswordChangedAt != nil {
		set["passwordChangedAt"] = *u.PasswordChangedAt
	}
	if u.PasswordResetToken != "" && u.PasswordResetExpires != nil {
		set["passwordResetToken"] = u.PasswordResetToken
		set["passwordResetExpires"] = *u.PasswordResetExpires
	} else {
		unset["passwordResetToken"] = ""
		unset["passwordResetExpires"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return r.findOneAndUpdate(ctx, "users.save", u.ID, update)
}

func (r *UsersRepo) Update(ctx context.Context, id string, patch user.Patch) (user.User, error) {
	return r.findOneAndUpdate(ctx, "users.update", id, bson.M{"$set": patchSet(patch, time.Now().UTC())})
}

func patchSet(patch user.Patch, now time.Time) bson.M {
	patch = patch.Normalize()
	set := bson.M{"updatedAt": now}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.Photo != nil {
		set["photo"] = *patch.Photo
	}
	if patch.Role != nil {
		set["role"] = string(*patch.Role)
	}
	return set
}

func (r *UsersRepo) updateOne(ctx context.Context, op, id string, update bson.M) error {
	oid, ok := parseID(id)
	if !ok {
		return user.ErrNotFound
	}

	var matched int64
	err := r.observe(op, func() error {
		res, err := r.coll.UpdateOne(ctx, activeOnly(bson.M{"_id": oid}), update)
		if err != nil {
			return err
		}
		matched = res.MatchedCount
		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if matched == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (r *UsersRepo) SetResetToken(ctx context.Context, id, digest string, expires time.Time) error {
	return r.updateOne(ctx, "users.set_reset_token", id, bson.M{"$set": bson.M{
		"passwordResetToken":   digest,
		"passwordResetExpires": expires,
		"updatedAt":            time.Now().UTC(),
	}})
}

func (r *UsersRepo) ClearResetToken(ctx context.Context, id string) error {
	return r.updateOne(ctx, "users.clear_reset_token", id, bson.M{
		"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": ""},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	})
}

func (r *UsersRepo) Deactivate(ctx context.Context, id string) error {
	return r.updateOne(ctx, "users.deactivate", id, bson.M{"$set": bson.M{
		"active":    false,
		"updatedAt": time.Now().UTC(),
	}})
}
