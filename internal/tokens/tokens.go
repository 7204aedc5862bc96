// Package tokens issues and verifies the signed session tokens carried in the
// auth cookie.
package tokens

import (
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/pkg/errors"

	"github.com/saraphi-hospital/infocms/storage/model"
)

// DefaultLifetime is the absolute lifetime of a session token
const DefaultLifetime = 24 * time.Hour

const (
	issuer        = "infocms"
	claimUsername = "username"
	claimRole     = "role"
)

// ErrInvalidToken is returned for every verification failure. The cause is
// deliberately not exposed.
var ErrInvalidToken = errors.New("invalid token")

// Identity is what a verified token says about its bearer
type Identity struct {
	UserID   string     `json:"userId"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
}

// Issuer signs and verifies HS256 session tokens with a server-held secret
type Issuer struct {
	key      []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewIssuer creates an Issuer. It fails when secret is empty so that the
// process can refuse to start.
func NewIssuer(secret string, lifetime time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("token signing secret is not set")
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Issuer{
		key:      []byte(secret),
		lifetime: lifetime,
		now:      time.Now,
	}, nil
}

// WithClock replaces the time source; used by tests
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Lifetime returns the configured token lifetime
func (i *Issuer) Lifetime() time.Duration {
	return i.lifetime
}

// Issue mints a token for id
func (i *Issuer) Issue(id Identity) (string, time.Time, error) {
	now := i.now().Truncate(time.Second)
	exp := now.Add(i.lifetime)
	tok, err := jwt.NewBuilder().
		Issuer(issuer).
		Subject(id.UserID).
		IssuedAt(now).
		Expiration(exp).
		Claim(claimUsername, id.Username).
		Claim(claimRole, string(id.Role)).
		Build()
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "could not build token")
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), i.key))
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "could not sign token")
	}
	return string(signed), exp, nil
}

// Verify checks signature, issuer and expiry and returns the Identity.
// Any failure yields ErrInvalidToken.
func (i *Issuer) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	tok, err := jwt.ParseString(
		token,
		jwt.WithKey(jwa.HS256(), i.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(issuer),
		jwt.WithClock(jwt.ClockFunc(i.now)),
	)
	if err != nil {
		return Identity{}, ErrInvalidToken
	}
	sub, ok := tok.Subject()
	if !ok || sub == "" {
		return Identity{}, ErrInvalidToken
	}
	var username, role string
	if err = tok.Get(claimUsername, &username); err != nil {
		return Identity{}, ErrInvalidToken
	}
	if err = tok.Get(claimRole, &role); err != nil {
		return Identity{}, ErrInvalidToken
	}
	id := Identity{
		UserID:   sub,
		Username: username,
		Role:     model.Role(role),
	}
	if !id.Role.Valid() {
		return Identity{}, ErrInvalidToken
	}
	return id, nil
}
