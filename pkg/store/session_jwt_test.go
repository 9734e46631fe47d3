package store

import (
	"testing"
	"time"
)

func TestJWTSessionStoreRoundTrip(t *testing.T) {
	s := NewJWTSessionStore("test-secret", time.Hour, NewMemoryTokenRevoker())

	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if token == "" {
		t.Fatalf("expected non-empty token")
	}

	uid, ok, err := s.GetUserIDByToken(token)
	if err != nil || !ok {
		t.Fatalf("resolve token: ok=%v err=%v", ok, err)
	}
	if uid != "user-1" {
		t.Fatalf("user id = %q, want user-1", uid)
	}
}

func TestJWTSessionStoreRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTSessionStore("secret-a", time.Hour, nil)
	verifier := NewJWTSessionStore("secret-b", time.Hour, nil)

	token, err := issuer.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, err := verifier.GetUserIDByToken(token); ok || err == nil {
		t.Fatalf("expected rejection, got ok=%v err=%v", ok, err)
	}
}

func TestJWTSessionStoreRejectsExpiredToken(t *testing.T) {
	s := NewJWTSessionStoreWithOptions("test-secret", -time.Hour, nil, JWTOptions{
		Leeway: time.Millisecond,
	})

	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken(token); ok || err == nil {
		t.Fatalf("expected expired token rejection, got ok=%v err=%v", ok, err)
	}
}

func TestJWTSessionStoreRejectsGarbage(t *testing.T) {
	s := NewJWTSessionStore("test-secret", time.Hour, nil)

	for _, token := range []string{"", "   ", "not.a.jwt"} {
		if _, ok, err := s.GetUserIDByToken(token); ok || err == nil {
			t.Fatalf("token %q: expected rejection, got ok=%v err=%v", token, ok, err)
		}
	}
}

func TestJWTSessionStoreLogoutRevokes(t *testing.T) {
	s := NewJWTSessionStore("test-secret", time.Hour, NewMemoryTokenRevoker())

	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken(token); ok || err == nil {
		t.Fatalf("expected revoked token rejection, got ok=%v err=%v", ok, err)
	}
}

func TestJWTSessionStoreRevocationIsPerToken(t *testing.T) {
	s := NewJWTSessionStore("test-secret", time.Hour, NewMemoryTokenRevoker())

	first, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	second, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeleteSession(first); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	if _, ok, _ := s.GetUserIDByToken(first); ok {
		t.Fatalf("revoked token still valid")
	}
	if uid, ok, err := s.GetUserIDByToken(second); err != nil || !ok || uid != "user-1" {
		t.Fatalf("untouched token rejected: uid=%q ok=%v err=%v", uid, ok, err)
	}
}
