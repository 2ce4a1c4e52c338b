package user

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHasher struct {
	calls int
	err   error
}

func (h *fakeHasher) Hash(plain string) (string, error) {
	h.calls++
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + plain, nil
}

func TestSaveHooks_NewIdentityHashesWithoutStamp(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	h := &fakeHasher{}

	u, change := NewFromSignup(SignupRequest{
		Name:     " Ada ",
		Email:    " Ada@Example.COM ",
		Password: "pass1234",
	}, now)

	require.NoError(t, SaveHooks(h, func() time.Time { return now }).Run(&u, change))

	assert.Equal(t, "hashed:pass1234", u.PasswordHash)
	assert.Nil(t, change.Password)
	assert.True(t, change.PasswordModified())
	assert.Nil(t, u.PasswordChangedAt)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, RoleUser, u.Role)
	assert.True(t, u.Active)
}

func TestSaveHooks_ExistingIdentityStampsChangeTime(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	u := User{ID: "u1", PasswordHash: "old"}
	pw := "newpass123"

	err := SaveHooks(&fakeHasher{}, func() time.Time { return now }).Run(&u, &Change{Password: &pw})
	require.NoError(t, err)

	require.NotNil(t, u.PasswordChangedAt)
	assert.Equal(t, now, *u.PasswordChangedAt)
	assert.Equal(t, "hashed:newpass123", u.PasswordHash)
}

func TestSaveHooks_NoSecretChangeIsNoop(t *testing.T) {
	h := &fakeHasher{}
	u := User{ID: "u1", PasswordHash: "old"}

	require.NoError(t, SaveHooks(h, time.Now).Run(&u, &Change{}))

	assert.Equal(t, 0, h.calls)
	assert.Equal(t, "old", u.PasswordHash)
	assert.Nil(t, u.PasswordChangedAt)
}

func TestSaveHooks_HashFailureStopsPipeline(t *testing.T) {
	h := &fakeHasher{err: errors.New("boom")}
	u := User{ID: "u1", PasswordHash: "old"}
	pw := "newpass123"

	err := SaveHooks(h, time.Now).Run(&u, &Change{Password: &pw})
	require.Error(t, err)
	assert.Equal(t, "old", u.PasswordHash)
	assert.Nil(t, u.PasswordChangedAt)
}

func TestChangedPasswordAfter(t *testing.T) {
	changed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	u := User{PasswordChangedAt: &changed}

	assert.True(t, u.ChangedPasswordAfter(changed.Add(-time.Second)))
	assert.False(t, u.ChangedPasswordAfter(changed))
	assert.False(t, u.ChangedPasswordAfter(changed.Add(500*time.Millisecond)))
	assert.False(t, User{}.ChangedPasswordAfter(time.Time{}))
}

func TestJSONHidesSecrets(t *testing.T) {
	exp := time.Now()
	u := User{
		ID:                   "u1",
		Name:                 "Ada",
		Email:                "ada@example.com",
		PasswordHash:         "$2a$12$secret",
		PasswordResetToken:   "digest",
		PasswordResetExpires: &exp,
	}

	b, err := json.Marshal(u)
	require.NoError(t, err)

	body := string(b)
	assert.False(t, strings.Contains(body, "secret"))
	assert.False(t, strings.Contains(body, "digest"))
	assert.False(t, strings.Contains(body, "active"))
}

func TestLoadOptions(t *testing.T) {
	assert.False(t, ApplyLoadOptions().WithSecret)
	assert.True(t, ApplyLoadOptions(WithSecret()).WithSecret)
}

func TestPatchApply(t *testing.T) {
	name := "  Grace "
	email := "GRACE@example.com"
	role := RoleGuide
	u := User{Name: "Ada", Email: "ada@example.com", Role: RoleUser}

	p := Patch{Name: &name, Email: &email, Role: &role}
	assert.False(t, p.Empty())
	p.Apply(&u)

	assert.Equal(t, "Grace", u.Name)
	assert.Equal(t, "grace@example.com", u.Email)
	assert.Equal(t, RoleGuide, u.Role)
	assert.True(t, Patch{}.Empty())
}

func TestPatchNormalize_LeavesCallerValuesAlone(t *testing.T) {
	name, email := " Grace ", "GRACE@example.com"
	p := Patch{Name: &name, Email: &email}

	n := p.Normalize()
	assert.Equal(t, "Grace", *n.Name)
	assert.Equal(t, "grace@example.com", *n.Email)
	assert.Equal(t, " Grace ", name)
	assert.Nil(t, Patch{}.Normalize().Name)
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin} {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, Role("root").Valid())
}
