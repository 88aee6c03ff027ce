package core

// ratelimit.go — two rate limiters DuxNet actually needs, per §5/§9:
//
//   - AttemptLimiter: the arena+index ring buffer §9's REDESIGN FLAGS call
//     for ("store attempt timestamps in per-key ring buffers of fixed size =
//     max_attempts; overflow wins"), used by the authenticator for the
//     5-failed-auths/300s policy.
//   - TransferLimiter: a golang.org/x/time/rate token bucket per node for
//     the wallet-transfer rate limit (§5 "Wallet transfers (per-node):
//     configurable N / window, default 10/3600s"), matching the teacher's
//     use of x/time/rate-shaped limiting for its own per-peer throttles.

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// AttemptLimiter tracks the last maxAttempts attempt timestamps per key in a
// fixed-size ring buffer; a key is over-limit once its oldest recorded
// attempt is still within the window. Overflow wins: once the buffer is
// full, each new attempt overwrites the oldest slot.
type AttemptLimiter struct {
	mu          sync.Mutex
	window      time.Duration
	maxAttempts int
	arenas      map[string]*ring
}

type ring struct {
	slots []time.Time
	next  int
	count int
}

// NewAttemptLimiter builds a limiter allowing at most maxAttempts per key
// within window.
func NewAttemptLimiter(maxAttempts int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{
		window:      window,
		maxAttempts: maxAttempts,
		arenas:      make(map[string]*ring),
	}
}

// Allow records an attempt for key at time now and reports whether it is
// within the limit. Call only for attempts that should count (e.g. failed
// authentications) — the caller decides what counts.
func (l *AttemptLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.arenas[key]
	if !ok {
		r = &ring{slots: make([]time.Time, l.maxAttempts)}
		l.arenas[key] = r
	}

	cutoff := now.Add(-l.window)
	if r.count >= l.maxAttempts {
		oldestIdx := r.next
		if r.slots[oldestIdx].After(cutoff) {
			return false
		}
	}

	r.slots[r.next] = now
	r.next = (r.next + 1) % l.maxAttempts
	if r.count < l.maxAttempts {
		r.count++
	}
	return true
}

// Blocked reports whether key is currently over limit, without recording a
// new attempt. Used for read-only status queries (e.g. auth statistics).
func (l *AttemptLimiter) Blocked(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.arenas[key]
	if !ok || r.count < l.maxAttempts {
		return false
	}
	cutoff := now.Add(-l.window)
	return r.slots[r.next].After(cutoff)
}

// Reset clears the recorded attempts for key, used on a successful
// authentication per §4.2 "Successful verifications reset the failure
// counter."
func (l *AttemptLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.arenas, key)
}

// TransferLimiter rate-limits wallet transfers per node using a token
// bucket per key, refilled at limit/window and capped at burst.
type TransferLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewTransferLimiter builds a limiter allowing maxTransfers per window per
// key, bursting up to maxTransfers.
func NewTransferLimiter(maxTransfers int, window time.Duration) *TransferLimiter {
	return &TransferLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(window / time.Duration(maxTransfers)),
		burst:    maxTransfers,
	}
}

// Allow reports whether key may perform another transfer now.
func (l *TransferLimiter) Allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
