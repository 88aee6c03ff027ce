package core

import (
	"testing"
	"time"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestAuthenticatorRegisterSignVerifyRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	a := NewAuthenticator(fixedClock(now))
	if _, err := a.Register("node-1", AuthSigned); err != nil {
		t.Fatalf("Register: %v", err)
	}

	msg := []byte("hello")
	sig, err := a.Sign("node-1", msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	level, err := a.Verify("node-1", msg, sig, now)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if level != AuthSigned {
		t.Errorf("level = %v, want AuthSigned", level)
	}
}

func TestAuthenticatorVerifyRejectsBadSignature(t *testing.T) {
	now := time.Now().UTC()
	a := NewAuthenticator(fixedClock(now))
	a.Register("node-1", AuthBasic)
	if _, err := a.Verify("node-1", []byte("hello"), "bm90LXZhbGlk", now); err == nil {
		t.Fatal("expected verification to fail for a bad signature")
	}
}

func TestAuthenticatorVerifyRejectsStaleTimestamp(t *testing.T) {
	now := time.Now().UTC()
	a := NewAuthenticator(fixedClock(now))
	a.Register("node-1", AuthBasic)
	msg := []byte("hello")
	sig, _ := a.Sign("node-1", msg)
	stale := now.Add(-10 * time.Minute)
	if _, err := a.Verify("node-1", msg, sig, stale); err == nil {
		t.Fatal("expected a timestamp outside the replay window to fail")
	}
}

func TestAuthenticatorRateLimitsRepeatedFailures(t *testing.T) {
	now := time.Now().UTC()
	a := NewAuthenticator(fixedClock(now))
	a.Register("node-1", AuthBasic)
	for i := 0; i < maxAuthAttempts; i++ {
		if _, err := a.Verify("node-1", []byte("x"), "bm90LXZhbGlk", now); err == nil {
			t.Fatal("expected failure for a bad signature")
		}
	}
	msg := []byte("hello")
	sig, _ := a.Sign("node-1", msg)
	if _, err := a.Verify("node-1", msg, sig, now); err == nil {
		t.Fatal("expected rate limiting after repeated failures, even with a valid signature")
	}
}

func TestAuthenticatorRevoke(t *testing.T) {
	a := NewAuthenticator(nil)
	a.Register("node-1", AuthBasic)
	if !a.Revoke("node-1") {
		t.Fatal("Revoke should succeed for a known node")
	}
	if a.Revoke("node-1") {
		t.Fatal("Revoke should report false for an already-revoked node")
	}
	if _, err := a.Identity("node-1"); err != ErrNotFound {
		t.Fatalf("Identity after revoke: got %v, want ErrNotFound", err)
	}
}

func TestAuthorizeMinimumLevels(t *testing.T) {
	if !Authorize("query", AuthBasic) {
		t.Error("query should be permitted at AuthBasic")
	}
	if Authorize("register", AuthBasic) {
		t.Error("register should require at least AuthSigned")
	}
	if !Authorize("unlisted-op", AuthVerified) {
		t.Error("unlisted operations should require AuthVerified, which should pass at that level")
	}
	if Authorize("unlisted-op", AuthSigned) {
		t.Error("unlisted operations should not pass below AuthVerified")
	}
}

func TestAuthenticatorIdentityNeverExposesSecret(t *testing.T) {
	a := NewAuthenticator(nil)
	a.Register("node-1", AuthBasic)
	id, err := a.Identity("node-1")
	if err != nil {
		t.Fatalf("Identity: %v", err)
	}
	if id.NodeID != "node-1" {
		t.Errorf("NodeID = %q, want node-1", id.NodeID)
	}
}
