package core

// auth.go — C2 Authenticator: node identity issuance and HMAC-SHA256
// signed-message verification with replay and rate-limit protection.
// Grounded on original_source/duxos_registry/services/auth_service.py
// (NodeAuthService), restructured as a single-writer component the way the
// teacher's core/cross_chain.go wraps its state behind a mutex-guarded
// struct with package-level sentinel errors.

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"sync"
	"time"
)

// AuthLevel orders the authorization tiers §4.2 defines. Comparisons use
// this numeric order, not string order — the Python original mistakenly
// compares auth_level.value as strings (see authorize_operation), a bug
// this rewrite does not reproduce.
type AuthLevel int

const (
	AuthNone AuthLevel = iota
	AuthBasic
	AuthSigned
	AuthVerified
)

func (l AuthLevel) String() string {
	switch l {
	case AuthBasic:
		return "basic"
	case AuthSigned:
		return "signed"
	case AuthVerified:
		return "verified"
	default:
		return "none"
	}
}

const (
	replayWindow    = 300 * time.Second
	maxAuthAttempts = 5
	authWindow      = 300 * time.Second
)

// NodeIdentity is a node's HMAC secret and authorization tier. Secrets are
// never serialized out of this package (spec §3 "Secrets are never
// returned in responses").
type NodeIdentity struct {
	NodeID       string
	secret       []byte
	AuthLevel    AuthLevel
	CreatedAt    time.Time
	LastVerified time.Time
}

// Authenticator issues and verifies node identities.
type Authenticator struct {
	mu         sync.RWMutex
	identities map[string]*NodeIdentity
	attempts   *AttemptLimiter
	clock      Clock
}

// NewAuthenticator builds an Authenticator. A nil clock defaults to the
// real wall clock.
func NewAuthenticator(clock Clock) *Authenticator {
	return &Authenticator{
		identities: make(map[string]*NodeIdentity),
		attempts:   NewAttemptLimiter(maxAuthAttempts, authWindow),
		clock:      defaultClock(clock),
	}
}

// Register issues a fresh 32-byte secret for nodeID at the given level and
// returns it. Callers must display it once; it is never retrievable again.
func (a *Authenticator) Register(nodeID string, level AuthLevel) ([]byte, error) {
	if nodeID == "" {
		return nil, FieldError(KindValidation, "node_id", "node_id required")
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, WrapError(KindInternal, "secret generation failed", err)
	}

	now := a.clock()
	a.mu.Lock()
	a.identities[nodeID] = &NodeIdentity{
		NodeID:       nodeID,
		secret:       secret,
		AuthLevel:    level,
		CreatedAt:    now,
		LastVerified: now,
	}
	a.mu.Unlock()

	out := make([]byte, len(secret))
	copy(out, secret)
	return out, nil
}

// Revoke deletes nodeID's identity entirely (spec §3: "Revocation removes
// the identity entirely", not a soft-delete flag).
func (a *Authenticator) Revoke(nodeID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.identities[nodeID]; !ok {
		return false
	}
	delete(a.identities, nodeID)
	a.attempts.Reset(nodeID)
	return true
}

// Sign computes the base64 HMAC-SHA256 signature of message under nodeID's
// secret. Exposed for tests and for tooling that needs to produce a valid
// signature; production callers possessing the secret sign client-side.
func (a *Authenticator) Sign(nodeID string, message []byte) (string, error) {
	a.mu.RLock()
	id, ok := a.identities[nodeID]
	a.mu.RUnlock()
	if !ok {
		return "", WrapError(KindAuth, "unknown node", ErrUnauthorized)
	}
	mac := hmac.New(sha256.New, id.secret)
	mac.Write(message)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Verify checks a signed message per §4.2: known node, HMAC match, a
// timestamp within ±300s of the verifier clock, and that the node is not
// rate-limit-suspended. On success it resets the node's failure counter and
// returns the node's authorization level; on failure it records the
// attempt (except when the node itself is unknown — there is nothing to
// rate-limit, or when the node is already blocked — recording it again
// would just extend a window already past its limit) and returns a
// Kind=Auth error.
func (a *Authenticator) Verify(nodeID string, message []byte, signature string, timestamp time.Time) (AuthLevel, error) {
	now := a.clock()

	a.mu.RLock()
	id, ok := a.identities[nodeID]
	a.mu.RUnlock()
	if !ok {
		return AuthNone, WrapError(KindAuth, "unknown node", ErrUnauthorized)
	}

	if a.attempts.Blocked(nodeID, now) {
		return AuthNone, WrapError(KindAuth, "rate limited", ErrRateLimited)
	}

	skew := now.Sub(timestamp)
	if skew < 0 {
		skew = -skew
	}
	if skew > replayWindow {
		a.recordFailure(nodeID)
		return AuthNone, FieldError(KindAuth, "timestamp", "timestamp outside replay window")
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		a.recordFailure(nodeID)
		return AuthNone, FieldError(KindAuth, "signature", "malformed signature encoding")
	}

	mac := hmac.New(sha256.New, id.secret)
	mac.Write(message)
	expected := mac.Sum(nil)
	if subtle.ConstantTimeCompare(sig, expected) != 1 {
		a.recordFailure(nodeID)
		return AuthNone, FieldError(KindAuth, "signature", "signature mismatch")
	}

	a.mu.Lock()
	id.LastVerified = now
	a.mu.Unlock()
	a.attempts.Reset(nodeID)
	return id.AuthLevel, nil
}

// recordFailure records this failure against the limiter so it counts
// toward the 5-in-300s budget. It is the only place Verify calls Allow; the
// gate check above uses the read-only Blocked so a rejected attempt isn't
// double-counted against its own budget.
func (a *Authenticator) recordFailure(nodeID string) {
	a.attempts.Allow(nodeID, a.clock())
}

// operation-level minimum authorization levels, per §4.2's authorization
// map.
var opMinLevel = map[string]AuthLevel{
	"register": AuthSigned,
	"update":   AuthSigned,
	"delete":   AuthSigned,
	"query":    AuthBasic,
	"list":     AuthBasic,
}

// Authorize reports whether level permits operation. Operations not listed
// in the authorization map require AuthVerified, the most restrictive tier.
func Authorize(operation string, level AuthLevel) bool {
	min, ok := opMinLevel[operation]
	if !ok {
		min = AuthVerified
	}
	return level >= min
}

// Identity returns a copy of nodeID's identity without its secret, or
// ErrNotFound.
func (a *Authenticator) Identity(nodeID string) (NodeIdentity, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	id, ok := a.identities[nodeID]
	if !ok {
		return NodeIdentity{}, ErrNotFound
	}
	return NodeIdentity{
		NodeID:       id.NodeID,
		AuthLevel:    id.AuthLevel,
		CreatedAt:    id.CreatedAt,
		LastVerified: id.LastVerified,
	}, nil
}

// AuthStats summarizes the authenticator's population, adapted from
// original_source's get_auth_stats (see SPEC_FULL.md C.1).
type AuthStats struct {
	TotalNodes        int
	AuthLevels        map[string]int
	RateLimitedNodes  int
}

// Stats computes the current AuthStats snapshot.
func (a *Authenticator) Stats() AuthStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	levels := make(map[string]int)
	for _, id := range a.identities {
		levels[id.AuthLevel.String()]++
	}

	rateLimited := 0
	now := a.clock()
	for nodeID := range a.identities {
		if a.attempts.Blocked(nodeID, now) {
			rateLimited++
		}
	}
	return AuthStats{TotalNodes: len(a.identities), AuthLevels: levels, RateLimitedNodes: rateLimited}
}
