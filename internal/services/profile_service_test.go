package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/dto"
)

func TestProfileUpdate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	me := f.registerUser(t, "me@example.com")
	f.registerUser(t, "taken@example.com")
	svc := NewProfileService(f.db)

	got, err := svc.Update(ctx, me, &dto.UpdateProfileRequest{Username: ptr(" New_Name "), DisplayName: ptr(" Me ")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.Username != "new_name" || got.DisplayName != "Me" {
		t.Errorf("Unexpected profile %+v", got)
	}

	_, err = svc.Update(ctx, me, &dto.UpdateProfileRequest{Username: ptr("taken")})
	assertCode(t, err, apperr.BadRequest, http.StatusConflict)

	_, err = svc.Update(ctx, me, &dto.UpdateProfileRequest{Username: ptr("no spaces allowed")})
	assertCode(t, err, apperr.BadRequest, http.StatusBadRequest)

	// Keeping one's own username is not a conflict.
	if _, err := svc.Update(ctx, me, &dto.UpdateProfileRequest{Username: ptr("new_name")}); err != nil {
		t.Errorf("Re-saving own username failed: %v", err)
	}

	stored, err := svc.Get(ctx, me)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Username != "new_name" {
		t.Errorf("Expected persisted username, got %q", stored.Username)
	}
}

func TestUsernameAvailable(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	me := f.registerUser(t, "mine@example.com")
	f.registerUser(t, "theirs@example.com")
	svc := NewProfileService(f.db)

	tests := []struct {
		username string
		want     bool
	}{
		{"theirs", false},
		{"mine", true},
		{"Fresh_Name", true},
	}
	for _, tt := range tests {
		got, err := svc.UsernameAvailable(ctx, me, tt.username)
		if err != nil {
			t.Fatalf("UsernameAvailable(%q) failed: %v", tt.username, err)
		}
		if got.Available != tt.want {
			t.Errorf("UsernameAvailable(%q) = %v, want %v", tt.username, got.Available, tt.want)
		}
	}

	_, err := svc.UsernameAvailable(ctx, me, "x")
	assertCode(t, err, apperr.BadRequest, 0)
}

func TestProfileNotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := NewProfileService(f.db).Get(context.Background(), uuid.New())
	assertCode(t, err, apperr.NotFound, http.StatusNotFound)
}
