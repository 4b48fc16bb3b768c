package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Drasasse/gestion-commerce-sub001/internal/core"
)

func TestUsers_LifecycleAndAuthentication(t *testing.T) {
	e := setupTestDB(t)
	ctx := context.Background()

	in := core.UserInput{
		BoutiqueID: &e.boutiqueA,
		Username:   "caissier",
		FullName:   "Caissier",
		Password:   "motdepasse",
		Role:       core.RoleGestionnaire,
		IsActive:   true,
	}
	if _, err := e.users.CreateUser(ctx, e.managerA, in); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("expected managers to be refused, got %v", err)
	}
	u, err := e.users.CreateUser(ctx, e.admin, in)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.PasswordHash == "motdepasse" {
		t.Fatal("password must be stored hashed")
	}
	if _, err := e.users.CreateUser(ctx, e.admin, in); !errors.Is(err, core.ErrDuplicate) {
		t.Errorf("expected duplicate username, got %v", err)
	}

	got, err := e.users.Authenticate(ctx, "caissier", "motdepasse")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != u.ID || got.Principal().BoutiqueID == nil || *got.Principal().BoutiqueID != e.boutiqueA {
		t.Errorf("unexpected principal: %+v", got.Principal())
	}
	if _, err := e.users.Authenticate(ctx, "caissier", "mauvais"); !errors.Is(err, core.ErrUnauthorized) {
		t.Errorf("expected bad password to be refused, got %v", err)
	}

	in.IsActive = false
	in.Password = ""
	if _, err := e.users.UpdateUser(ctx, e.admin, u.ID, in); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if _, err := e.users.Authenticate(ctx, "caissier", "motdepasse"); !errors.Is(err, core.ErrUnauthorized) {
		t.Errorf("expected inactive user to be refused, got %v", err)
	}

	if err := e.users.DeleteUser(ctx, e.admin, e.admin.UserID); !errors.Is(err, core.ErrConflict) {
		t.Errorf("expected self-deletion to conflict, got %v", err)
	}
	if err := e.users.DeleteUser(ctx, e.admin, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
}
