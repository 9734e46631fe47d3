package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestMemoryTokenRevoker(t *testing.T) {
	r := NewMemoryTokenRevoker()

	revoked, err := r.IsRevoked("jti-1")
	if err != nil || revoked {
		t.Fatalf("fresh jti: revoked=%v err=%v", revoked, err)
	}

	if err := r.Revoke("jti-1", time.Hour); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err = r.IsRevoked("jti-1")
	if err != nil || !revoked {
		t.Fatalf("revoked jti: revoked=%v err=%v", revoked, err)
	}
}

func TestMemoryTokenRevokerExpiry(t *testing.T) {
	r := NewMemoryTokenRevoker()

	if err := r.Revoke("jti-1", time.Millisecond); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	revoked, err := r.IsRevoked("jti-1")
	if err != nil || revoked {
		t.Fatalf("expired revocation still active: revoked=%v err=%v", revoked, err)
	}
}

func TestMemoryTokenRevokerIgnoresNonPositiveTTL(t *testing.T) {
	r := NewMemoryTokenRevoker()

	if err := r.Revoke("jti-1", 0); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked, _ := r.IsRevoked("jti-1"); revoked {
		t.Fatalf("zero-ttl revocation should be a no-op")
	}
}

func TestRedisTokenRevoker(t *testing.T) {
	srv := miniredis.RunT(t)
	r := NewRedisTokenRevoker(srv.Addr(), "")

	revoked, err := r.IsRevoked("jti-1")
	if err != nil || revoked {
		t.Fatalf("fresh jti: revoked=%v err=%v", revoked, err)
	}

	if err := r.Revoke("jti-1", time.Hour); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err = r.IsRevoked("jti-1")
	if err != nil || !revoked {
		t.Fatalf("revoked jti: revoked=%v err=%v", revoked, err)
	}

	// The entry disappears once Redis expires it.
	srv.FastForward(2 * time.Hour)
	revoked, err = r.IsRevoked("jti-1")
	if err != nil || revoked {
		t.Fatalf("expired revocation still active: revoked=%v err=%v", revoked, err)
	}
}
