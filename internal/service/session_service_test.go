package service

import (
	"errors"
	"testing"
	"time"

	"linkhub/internal/domain"
)

func testUser() domain.User {
	return domain.User{ID: "u1", Email: "user@example.com", CreatedAt: time.Now().UTC()}
}

func TestSessionServiceIssueThenValidate(t *testing.T) {
	svc := NewSessionService("secret", time.Hour, NewMemorySessionStore())
	user := testUser()

	token, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user %s, got %s", user.ID, claims.UserID)
	}
	if claims.Email != user.Email {
		t.Fatalf("expected email %s, got %s", user.Email, claims.Email)
	}
}

func TestSessionServiceMultipleSessionsPerUser(t *testing.T) {
	svc := NewSessionService("secret", time.Hour, NewMemorySessionStore())
	user := testUser()

	first, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("issue first: %v", err)
	}
	second, err := svc.Issue(user)
	if err != nil {
		t.Fatalf("issue second: %v", err)
	}

	if _, err := svc.Validate(first); err != nil {
		t.Fatalf("first session should stay valid: %v", err)
	}
	if _, err := svc.Validate(second); err != nil {
		t.Fatalf("second session should stay valid: %v", err)
	}
}

func TestSessionServiceValidateRejectsTampered(t *testing.T) {
	svc := NewSessionService("secret", time.Hour, NewMemorySessionStore())
	other := NewSessionService("other-secret", time.Hour, NewMemorySessionStore())

	token, err := other.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := svc.Validate(token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
	if _, err := svc.Validate(""); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid for empty token, got %v", err)
	}
}

func TestSessionServiceValidateRejectsExpired(t *testing.T) {
	svc := NewSessionService("secret", time.Millisecond, NewMemorySessionStore())

	token, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if _, err := svc.Validate(token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestSessionServiceInvalidateIsIdempotent(t *testing.T) {
	svc := NewSessionService("secret", time.Hour, NewMemorySessionStore())

	token, err := svc.Issue(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := svc.Invalidate(token); err != nil {
		t.Fatalf("first invalidate: %v", err)
	}
	if _, err := svc.Validate(token); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected revoked session to be invalid, got %v", err)
	}
	if err := svc.Invalidate(token); err != nil {
		t.Fatalf("second invalidate should be a no-op: %v", err)
	}
	if err := svc.Invalidate("not-even-a-token"); err != nil {
		t.Fatalf("invalidating garbage should be a no-op: %v", err)
	}
}

func TestSessionServiceRevokeAll(t *testing.T) {
	svc := NewSessionService("secret", time.Hour, NewMemorySessionStore())
	user := testUser()

	first, _ := svc.Issue(user)
	second, _ := svc.Issue(user)

	if err := svc.RevokeAll(user.ID); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if _, err := svc.Validate(first); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected first session revoked, got %v", err)
	}
	if _, err := svc.Validate(second); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected second session revoked, got %v", err)
	}
}
