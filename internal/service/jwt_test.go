package service

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestTokens(t *testing.T, secret string, now time.Time) *SessionTokens {
	t.Helper()
	s, err := NewSessionTokens(secret)
	if err != nil {
		t.Fatalf("new tokens: %v", err)
	}
	s.now = func() time.Time { return now }
	return s
}

func TestSessionTokens_RoundTrip(t *testing.T) {
	s := newTestTokens(t, "secret", time.Now())

	token, err := s.Issue(42)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, err := s.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != 42 {
		t.Fatalf("user id = %d; want 42", id)
	}
}

func TestSessionTokens_Expired(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)
	s := newTestTokens(t, "secret", issuedAt)
	token, err := s.Issue(1)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// just before expiry the token still works
	s.now = func() time.Time { return issuedAt.Add(SessionTTL - time.Minute) }
	if _, err := s.Parse(token); err != nil {
		t.Fatalf("expected valid token before expiry, got %v", err)
	}

	s.now = func() time.Time { return issuedAt.Add(SessionTTL + time.Minute) }
	if _, err := s.Parse(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestSessionTokens_Tampered(t *testing.T) {
	s := newTestTokens(t, "secret", time.Now())
	token, err := s.Issue(7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape %q", token)
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := s.Parse(tampered); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for tampered token, got %v", err)
	}
}

func TestSessionTokens_WrongSecret(t *testing.T) {
	a := newTestTokens(t, "secret-a", time.Now())
	b := newTestTokens(t, "secret-b", time.Now())

	token, err := a.Issue(3)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := b.Parse(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestSessionTokens_Garbage(t *testing.T) {
	s := newTestTokens(t, "secret", time.Now())
	if _, err := s.Parse("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestNewSessionTokens_EmptySecret(t *testing.T) {
	if _, err := NewSessionTokens(""); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
