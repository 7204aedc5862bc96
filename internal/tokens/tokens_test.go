package tokens

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saraphi-hospital/infocms/storage/model"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newIssuer(t *testing.T, clock *fakeClock) *Issuer {
	t.Helper()
	i, err := NewIssuer("test-secret", 24*time.Hour)
	require.NoError(t, err)
	return i.WithClock(clock.Now)
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := NewIssuer("", time.Hour)
	assert.Error(t, err)
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)}
	i := newIssuer(t, clock)
	id := Identity{UserID: "u-1", Username: "admin", Role: model.RoleSuperAdmin}

	token, exp, err := i.Issue(id)
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(24*time.Hour), exp)

	got, err := i.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestVerifyFailsAfterLifetime(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)}
	i := newIssuer(t, clock)
	token, _, err := i.Issue(Identity{UserID: "u-1", Username: "staff", Role: model.RoleAdmin})
	require.NoError(t, err)

	clock.t = clock.t.Add(23 * time.Hour)
	_, err = i.Verify(token)
	require.NoError(t, err)

	clock.t = clock.t.Add(2 * time.Hour)
	_, err = i.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsUniformly(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	i := newIssuer(t, clock)
	token, _, err := i.Issue(Identity{UserID: "u-1", Username: "staff", Role: model.RoleAdmin})
	require.NoError(t, err)

	other, err := NewIssuer("another-secret", time.Hour)
	require.NoError(t, err)
	other.WithClock(clock.Now)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	for name, tc := range map[string]struct {
		issuer *Issuer
		token  string
	}{
		"empty":         {issuer: i, token: ""},
		"malformed":     {issuer: i, token: "not-a-token"},
		"tampered":      {issuer: i, token: tampered},
		"wrong secret":  {issuer: other, token: token},
		"truncated sig": {issuer: i, token: token[:len(token)-4]},
	} {
		t.Run(
			name, func(t *testing.T) {
				_, err := tc.issuer.Verify(tc.token)
				assert.Equal(t, ErrInvalidToken, err)
			},
		)
	}
}
