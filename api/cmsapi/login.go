package cmsapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/saraphi-hospital/infocms/internal/accounts"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func registerAuth(r fiber.Router, a *authz, svc *accounts.Service, limit fiber.Handler) {
	g := r.Group("/auth")

	g.Post(
		"/login", limit, func(c *fiber.Ctx) error {
			var req loginRequest
			if err := c.BodyParser(&req); err != nil {
				return jsonError(c, fiber.StatusBadRequest, msgInvalidBody)
			}
			req.Username = strings.TrimSpace(req.Username)
			if req.Username == "" || req.Password == "" {
				return jsonError(c, fiber.StatusBadRequest, "Username and password are required")
			}
			res, err := svc.Login(req.Username, req.Password, c.IP())
			if err != nil {
				return writeError(c, err)
			}
			a.setSessionCookie(c, res.Token, res.ExpiresAt)
			if res.MustChangePassword {
				return c.JSON(
					fiber.Map{
						"user":               res.User,
						"mustChangePassword": true,
						"message":            "You must change your password before continuing",
					},
				)
			}
			return c.JSON(fiber.Map{"user": res.User})
		},
	)

	g.Post(
		"/logout", limit, func(c *fiber.Ctx) error {
			if raw := c.Cookies(a.cookieName); raw != "" {
				if id, err := a.issuer.Verify(raw); err == nil {
					svc.Logout(id)
				}
			}
			a.clearSessionCookie(c)
			return c.JSON(fiber.Map{"message": "Logged out"})
		},
	)

	g.Get(
		"/me", a.session, func(c *fiber.Ctx) error {
			u := userFrom(c)
			return c.JSON(
				fiber.Map{
					"user":               u.Public(),
					"mustChangePassword": u.MustChangePassword,
				},
			)
		},
	)
}
