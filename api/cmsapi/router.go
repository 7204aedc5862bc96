// Package cmsapi implements the JSON API of the CMS: authentication, user
// management, the audit log and the content endpoints.
package cmsapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/saraphi-hospital/infocms/internal/accounts"
	"github.com/saraphi-hospital/infocms/internal/audit"
	"github.com/saraphi-hospital/infocms/internal/tokens"
	"github.com/saraphi-hospital/infocms/internal/uploads"
	"github.com/saraphi-hospital/infocms/storage/model"
)

// Deps are the collaborators of the API handlers
type Deps struct {
	Backends model.Backends
	Accounts *accounts.Service
	Tokens   *tokens.Issuer
	Audit    *audit.Recorder
	Uploads  uploads.Store
	// Throttle backs the request rate limiters; nil keeps limiter state in memory
	Throttle fiber.Storage
}

// Options controls optional behavior of the API
type Options struct {
	// CookieName is the name of the session cookie
	CookieName string
	// EnforcePasswordRotation rejects protected requests of users that still
	// have to change their password
	EnforcePasswordRotation bool
	// AuthRateLimit applies to login and logout
	AuthRateLimit RateLimit
	// APIRateLimit applies to all API routes
	APIRateLimit RateLimit
	// DisableRateLimit turns both limiters off
	DisableRateLimit bool
}

// DefaultOptions returns the options used when Register is called with nil
func DefaultOptions() *Options {
	return &Options{
		CookieName:              DefaultCookieName,
		EnforcePasswordRotation: true,
		AuthRateLimit:           DefaultAuthRateLimit,
		APIRateLimit:            DefaultAPIRateLimit,
	}
}

// Register mounts all API routes under the provided group.
func Register(r fiber.Router, deps Deps, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	if deps.Accounts == nil || deps.Tokens == nil || deps.Backends.Users == nil {
		return errors.New("cmsapi: accounts, tokens and users store are required")
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.AuthRateLimit.Max <= 0 {
		opts.AuthRateLimit = DefaultAuthRateLimit
	}
	if opts.APIRateLimit.Max <= 0 {
		opts.APIRateLimit = DefaultAPIRateLimit
	}

	a := &authz{
		issuer:        deps.Tokens,
		users:         deps.Backends.Users,
		cookieName:    opts.CookieName,
		enforceRotate: opts.EnforcePasswordRotation,
	}
	authLimit := func(c *fiber.Ctx) error { return c.Next() }
	if !opts.DisableRateLimit {
		r.Use(rateLimiter("api", opts.APIRateLimit, deps.Throttle))
		authLimit = rateLimiter("auth", opts.AuthRateLimit, deps.Throttle)
	}

	registerAuth(r, a, deps.Accounts, authLimit)
	registerUsers(r, a, deps.Backends.Users, deps.Accounts)
	registerAuditLogs(r, a, deps.Backends.Audit)

	editor := a.require(model.RoleAdmin, model.RoleSuperAdmin)
	registerNews(r, a.session, editor, deps.Backends.News, deps.Audit)
	registerNavLinks(r, a.session, editor, deps.Backends.NavLinks, deps.Audit)
	registerGridItems(r, a.session, editor, deps.Backends.GridItems, deps.Audit)
	registerSlides(r, a.session, editor, deps.Backends.Slides, deps.Audit)
	registerResources(r, a.session, editor, deps.Backends.Resources, deps.Uploads, deps.Audit)
	registerSettings(r, a.session, editor, deps.Backends.KV, deps.Uploads, deps.Audit)
	registerUpload(r, a.session, editor, deps.Uploads, deps.Audit)
	return nil
}
