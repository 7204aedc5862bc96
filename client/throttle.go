package client

import (
	"sync"
	"time"
)

// Default values of a zero Throttle
const (
	DefaultMaxAttempts = 5
	DefaultLockout     = 30 * time.Second
)

// Throttle counts consecutive failed logins of one client session and refuses
// further attempts for a while once MaxAttempts is reached. It only slows
// down a user at the keyboard; the server enforces its own limits. The zero
// value uses DefaultMaxAttempts and DefaultLockout.
type Throttle struct {
	MaxAttempts int
	Lockout     time.Duration

	mu          sync.Mutex
	attempts    int
	lockedUntil time.Time
	now         func() time.Time
}

// NewThrottle returns a Throttle with the default limits
func NewThrottle() *Throttle {
	return &Throttle{
		MaxAttempts: DefaultMaxAttempts,
		Lockout:     DefaultLockout,
	}
}

// WithClock replaces the time source
func (t *Throttle) WithClock(now func() time.Time) *Throttle {
	t.now = now
	return t
}

func (t *Throttle) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

func (t *Throttle) limits() (int, time.Duration) {
	maxAttempts, lockout := t.MaxAttempts, t.Lockout
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if lockout <= 0 {
		lockout = DefaultLockout
	}
	return maxAttempts, lockout
}

// Allow reports whether a login may be submitted; if not, it also returns the
// remaining wait. An expired lockout starts a fresh count.
func (t *Throttle) Allow() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lockedUntil.IsZero() {
		return 0, true
	}
	now := t.clock()
	if now.Before(t.lockedUntil) {
		return t.lockedUntil.Sub(now), false
	}
	t.attempts = 0
	t.lockedUntil = time.Time{}
	return 0, true
}

// Failure records a failed login
func (t *Throttle) Failure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	maxAttempts, lockout := t.limits()
	t.attempts++
	if t.attempts >= maxAttempts {
		t.lockedUntil = t.clock().Add(lockout)
	}
}

// Success clears the counter and any lockout
func (t *Throttle) Success() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts = 0
	t.lockedUntil = time.Time{}
}

// Attempts returns the number of consecutive failures
func (t *Throttle) Attempts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts
}
