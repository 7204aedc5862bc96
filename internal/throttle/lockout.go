// Package throttle holds the shared key/value store used for request rate
// limiting and the per-account login lockout.
package throttle

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

const lockoutKeyPrefix = "lockout:"

// LockoutConfig configures the AccountLockout
type LockoutConfig struct {
	MaxFailures int
	Window      time.Duration
	Duration    time.Duration
}

// DefaultLockoutConfig locks an account for 15 minutes after 5 failures
// within 15 minutes
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		MaxFailures: 5,
		Window:      15 * time.Minute,
		Duration:    15 * time.Minute,
	}
}

type lockoutRecord struct {
	Failures    int       `msgpack:"f"`
	WindowStart time.Time `msgpack:"w"`
	LockedUntil time.Time `msgpack:"l"`
}

// AccountLockout counts failed logins per username. Names are compared
// case-insensitively and need not belong to an existing account.
type AccountLockout struct {
	store fiber.Storage
	conf  LockoutConfig
	now   func() time.Time
}

// NewAccountLockout creates an AccountLockout on top of store. Zero values in
// conf are replaced by the defaults.
func NewAccountLockout(store fiber.Storage, conf LockoutConfig) *AccountLockout {
	def := DefaultLockoutConfig()
	if conf.MaxFailures <= 0 {
		conf.MaxFailures = def.MaxFailures
	}
	if conf.Window <= 0 {
		conf.Window = def.Window
	}
	if conf.Duration <= 0 {
		conf.Duration = def.Duration
	}
	return &AccountLockout{
		store: store,
		conf:  conf,
		now:   time.Now,
	}
}

// WithClock replaces the time source; used by tests
func (l *AccountLockout) WithClock(now func() time.Time) *AccountLockout {
	l.now = now
	return l
}

func lockoutKey(username string) string {
	return lockoutKeyPrefix + strings.ToLower(strings.TrimSpace(username))
}

func (l *AccountLockout) load(key string) (*lockoutRecord, error) {
	raw, err := l.store.Get(key)
	if err != nil {
		return nil, errors.Wrap(err, "could not read lockout record")
	}
	rec := &lockoutRecord{}
	if len(raw) == 0 {
		return rec, nil
	}
	if err = msgpack.Unmarshal(raw, rec); err != nil {
		return nil, errors.Wrap(err, "could not decode lockout record")
	}
	return rec, nil
}

// Check returns how long username is still locked; zero means not locked
func (l *AccountLockout) Check(username string) (time.Duration, error) {
	rec, err := l.load(lockoutKey(username))
	if err != nil {
		return 0, err
	}
	now := l.now()
	if rec.LockedUntil.After(now) {
		return rec.LockedUntil.Sub(now), nil
	}
	return 0, nil
}

// Failure records a failed login and returns the lock duration if this
// failure locked the account
func (l *AccountLockout) Failure(username string) (time.Duration, error) {
	key := lockoutKey(username)
	rec, err := l.load(key)
	if err != nil {
		return 0, err
	}
	now := l.now()
	expiredLock := !rec.LockedUntil.IsZero() && !rec.LockedUntil.After(now)
	if rec.WindowStart.IsZero() || now.Sub(rec.WindowStart) > l.conf.Window || expiredLock {
		rec = &lockoutRecord{WindowStart: now}
	}
	rec.Failures++
	var locked time.Duration
	if rec.Failures >= l.conf.MaxFailures {
		rec.LockedUntil = now.Add(l.conf.Duration)
		locked = l.conf.Duration
	}
	raw, err := msgpack.Marshal(rec)
	if err != nil {
		return 0, errors.Wrap(err, "could not encode lockout record")
	}
	ttl := rec.WindowStart.Add(l.conf.Window).Sub(now)
	if until := rec.LockedUntil.Sub(now); until > ttl {
		ttl = until
	}
	if ttl <= 0 {
		ttl = l.conf.Window
	}
	if err = l.store.Set(key, raw, ttl); err != nil {
		return 0, errors.Wrap(err, "could not store lockout record")
	}
	return locked, nil
}

// Reset clears the failure count for username
func (l *AccountLockout) Reset(username string) error {
	return errors.Wrap(l.store.Delete(lockoutKey(username)), "could not reset lockout record")
}
