package cmsapi

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/saraphi-hospital/infocms/internal/accounts"
	"github.com/saraphi-hospital/infocms/storage/model"
)

// Messages shared by several handlers
const (
	msgNotAuthenticated       = "Not authenticated"
	msgAccessDenied           = "Access denied"
	msgPasswordChangeRequired = "Password change required"
	msgTooManyRequests        = "Too many requests, please try again later"
	msgInvalidBody            = "Invalid request body"
	msgInternal               = "Internal server error"
)

func jsonError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// writeError maps service and storage errors to responses. Unknown errors are
// logged and answered with a generic 500.
func writeError(c *fiber.Ctx, err error) error {
	var (
		notFound model.NotFoundError
		exists   model.AlreadyExistsError
		invalid  model.ValidationError
		locked   *accounts.LockedError
		fiberErr *fiber.Error
		badCreds model.InvalidCredentialsError
	)
	switch {
	case errors.As(err, &locked):
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(locked.RetryAfter.Seconds()+0.5)))
		return jsonError(c, fiber.StatusTooManyRequests, locked.Error())
	case errors.Is(err, accounts.ErrInvalidCredentials), errors.As(err, &badCreds):
		return jsonError(c, fiber.StatusUnauthorized, accounts.ErrInvalidCredentials.Error())
	case errors.Is(err, accounts.ErrSelfDelete), errors.Is(err, accounts.ErrSelfRoleChange):
		return jsonError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, accounts.ErrWeakPassword),
		errors.Is(err, accounts.ErrCurrentPasswordRequired),
		errors.Is(err, accounts.ErrCurrentPasswordIncorrect):
		return jsonError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		return jsonError(c, fiber.StatusNotFound, notFound.Error())
	case errors.As(err, &exists):
		return jsonError(c, fiber.StatusConflict, exists.Error())
	case errors.As(err, &invalid):
		return jsonError(c, fiber.StatusBadRequest, invalid.Error())
	case errors.As(err, &fiberErr):
		return jsonError(c, fiberErr.Code, fiberErr.Message)
	}
	log.WithError(err).WithFields(
		log.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		},
	).Error("request failed")
	return jsonError(c, fiber.StatusInternalServerError, msgInternal)
}
