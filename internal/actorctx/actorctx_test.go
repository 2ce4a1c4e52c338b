package actorctx

import (
	"context"
	"testing"

	"github.com/geocoder89/tourhub/internal/domain/user"
)

func TestUserRoundTrip(t *testing.T) {
	if _, ok := UserFrom(context.Background()); ok {
		t.Fatal("expected no user on empty context")
	}

	ctx := WithUser(context.Background(), user.User{ID: "u1", Role: user.RoleGuide})
	u, ok := UserFrom(ctx)
	if !ok || u.ID != "u1" || u.Role != user.RoleGuide {
		t.Fatalf("unexpected user: %+v ok=%v", u, ok)
	}

	id, ok := UserIDFrom(ctx)
	if !ok || id != "u1" {
		t.Fatalf("expected u1, got %q", id)
	}
}

func TestUserFrom_EmptyIDIsAbsent(t *testing.T) {
	ctx := WithUser(context.Background(), user.User{})
	if _, ok := UserFrom(ctx); ok {
		t.Fatal("expected empty identity to be treated as absent")
	}
}
