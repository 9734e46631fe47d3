package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisSessionStoreRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	s := NewRedisSessionStore(srv.Addr(), "", time.Hour)

	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	uid, ok, err := s.GetUserIDByToken(token)
	if err != nil || !ok {
		t.Fatalf("resolve token: ok=%v err=%v", ok, err)
	}
	if uid != "user-1" {
		t.Fatalf("user id = %q, want user-1", uid)
	}
}

func TestRedisSessionStoreUnknownToken(t *testing.T) {
	srv := miniredis.RunT(t)
	s := NewRedisSessionStore(srv.Addr(), "", time.Hour)

	uid, ok, err := s.GetUserIDByToken("nope")
	if err != nil || ok || uid != "" {
		t.Fatalf("unknown token: uid=%q ok=%v err=%v", uid, ok, err)
	}
}

func TestRedisSessionStoreDelete(t *testing.T) {
	srv := miniredis.RunT(t)
	s := NewRedisSessionStore(srv.Addr(), "", time.Hour)

	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken(token); err != nil || ok {
		t.Fatalf("deleted token still resolves: ok=%v err=%v", ok, err)
	}
	// Deleting again is a no-op.
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestRedisSessionStoreTTL(t *testing.T) {
	srv := miniredis.RunT(t)
	s := NewRedisSessionStore(srv.Addr(), "", time.Minute)

	token, err := s.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	srv.FastForward(2 * time.Minute)
	if _, ok, err := s.GetUserIDByToken(token); err != nil || ok {
		t.Fatalf("expired token still resolves: ok=%v err=%v", ok, err)
	}
}
