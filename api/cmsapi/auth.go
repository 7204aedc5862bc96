package cmsapi

import (
	"slices"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/saraphi-hospital/infocms/internal/tokens"
	"github.com/saraphi-hospital/infocms/storage/model"
)

const (
	localIdentity = "identity"
	localUser     = "user"
)

// DefaultCookieName is the name of the session cookie
const DefaultCookieName = "token"

// authz holds the session and authorization middlewares
type authz struct {
	issuer        *tokens.Issuer
	users         model.UsersStore
	cookieName    string
	enforceRotate bool
}

// session verifies the session cookie and loads the user. Anything else than
// a valid token of an existing user is answered with the same 401.
func (a *authz) session(c *fiber.Ctx) error {
	raw := c.Cookies(a.cookieName)
	if raw == "" {
		return jsonError(c, fiber.StatusUnauthorized, msgNotAuthenticated)
	}
	id, err := a.issuer.Verify(raw)
	if err != nil {
		return jsonError(c, fiber.StatusUnauthorized, msgNotAuthenticated)
	}
	user, err := a.users.Get(id.UserID)
	if err != nil {
		var notFound model.NotFoundError
		if errors.As(err, &notFound) {
			return jsonError(c, fiber.StatusUnauthorized, msgNotAuthenticated)
		}
		return writeError(c, err)
	}
	// the stored record wins so that demotions apply to live sessions
	id.Username = user.Username
	id.Role = user.Role
	c.Locals(localIdentity, id)
	c.Locals(localUser, user)
	return c.Next()
}

// require returns a middleware that admits sessions of the given roles.
// Unless disabled, users that still have to change their password are
// rejected as well.
func (a *authz) require(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := identityFrom(c)
		if !ok || !slices.Contains(roles, id.Role) {
			return jsonError(c, fiber.StatusForbidden, msgAccessDenied)
		}
		if a.enforceRotate {
			if u := userFrom(c); u != nil && u.MustChangePassword {
				return c.Status(fiber.StatusForbidden).JSON(
					fiber.Map{
						"error":              msgPasswordChangeRequired,
						"mustChangePassword": true,
					},
				)
			}
		}
		return c.Next()
	}
}

func identityFrom(c *fiber.Ctx) (tokens.Identity, bool) {
	id, ok := c.Locals(localIdentity).(tokens.Identity)
	return id, ok
}

func userFrom(c *fiber.Ctx) *model.User {
	u, _ := c.Locals(localUser).(*model.User)
	return u
}

// setSessionCookie stores the token in an HTTP-only cookie. The cookie is
// marked Secure only for HTTPS requests (directly or via X-Forwarded-Proto),
// so that the CMS keeps working on plain HTTP intranet addresses.
func (a *authz) setSessionCookie(c *fiber.Ctx, token string, expires time.Time) {
	secure := c.Secure()
	sameSite := fiber.CookieSameSiteLaxMode
	if secure {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	c.Cookie(
		&fiber.Cookie{
			Name:     a.cookieName,
			Value:    token,
			Path:     "/",
			Expires:  expires,
			HTTPOnly: true,
			Secure:   secure,
			SameSite: sameSite,
		},
	)
}

func (a *authz) clearSessionCookie(c *fiber.Ctx) {
	secure := c.Secure()
	sameSite := fiber.CookieSameSiteLaxMode
	if secure {
		sameSite = fiber.CookieSameSiteNoneMode
	}
	c.Cookie(
		&fiber.Cookie{
			Name:     a.cookieName,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
			Secure:   secure,
			SameSite: sameSite,
		},
	)
}
