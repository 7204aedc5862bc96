package cmsapi

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saraphi-hospital/infocms/internal/accounts"
	"github.com/saraphi-hospital/infocms/storage/model"
)

type resetPasswordRequest struct {
	Password string `json:"password"`
}

// registerUsers mounts user management (SUPER_ADMIN only) and the password
// change of the current user (any session, exempt from the rotation gate).
func registerUsers(r fiber.Router, a *authz, users model.UsersStore, svc *accounts.Service) {
	g := r.Group("/users", a.session)

	g.Patch(
		"/me/password", func(c *fiber.Ctx) error {
			id, _ := identityFrom(c)
			var req accounts.RotationRequest
			if err := c.BodyParser(&req); err != nil {
				return jsonError(c, fiber.StatusBadRequest, msgInvalidBody)
			}
			if err := svc.ChangePassword(id.UserID, req); err != nil {
				return writeError(c, err)
			}
			return c.JSON(fiber.Map{"message": "Password changed successfully"})
		},
	)

	superAdmin := a.require(model.RoleSuperAdmin)

	g.Get(
		"/", superAdmin, func(c *fiber.Ctx) error {
			list, err := users.List()
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(list)
		},
	)

	g.Post(
		"/", superAdmin, func(c *fiber.Ctx) error {
			id, _ := identityFrom(c)
			var req accounts.CreateUserRequest
			if err := c.BodyParser(&req); err != nil {
				return jsonError(c, fiber.StatusBadRequest, msgInvalidBody)
			}
			if req.Username == "" || req.Password == "" {
				return jsonError(c, fiber.StatusBadRequest, "Username and password are required")
			}
			u, err := svc.CreateUser(id, req)
			if err != nil {
				return writeError(c, err)
			}
			return c.Status(fiber.StatusCreated).JSON(u)
		},
	)

	g.Get(
		"/:id", superAdmin, func(c *fiber.Ctx) error {
			u, err := users.Get(c.Params("id"))
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(u)
		},
	)

	g.Put(
		"/:id", superAdmin, func(c *fiber.Ctx) error {
			id, _ := identityFrom(c)
			var req accounts.UpdateUserRequest
			if err := c.BodyParser(&req); err != nil {
				return jsonError(c, fiber.StatusBadRequest, msgInvalidBody)
			}
			u, err := svc.UpdateUser(id, c.Params("id"), req)
			if err != nil {
				return writeError(c, err)
			}
			return c.JSON(u)
		},
	)

	g.Delete(
		"/:id", superAdmin, func(c *fiber.Ctx) error {
			id, _ := identityFrom(c)
			if err := svc.DeleteUser(id, c.Params("id")); err != nil {
				return writeError(c, err)
			}
			return c.JSON(fiber.Map{"message": "User deleted"})
		},
	)

	g.Post(
		"/:id/reset-password", superAdmin, func(c *fiber.Ctx) error {
			id, _ := identityFrom(c)
			var req resetPasswordRequest
			if err := c.BodyParser(&req); err != nil {
				return jsonError(c, fiber.StatusBadRequest, msgInvalidBody)
			}
			if err := svc.ResetPassword(id, c.Params("id"), req.Password); err != nil {
				return writeError(c, err)
			}
			return c.JSON(fiber.Map{"message": "Password reset successfully"})
		},
	)
}
