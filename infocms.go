// Package infocms assembles the HTTP server of the hospital information CMS.
package infocms

import (
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/saraphi-hospital/infocms/api/cmsapi"
	"github.com/saraphi-hospital/infocms/internal/version"
)

// FiberServerConfig is the fiber.Config that is used to init the http fiber.App
var FiberServerConfig = fiber.Config{
	ReadTimeout:    10 * time.Second,
	WriteTimeout:   20 * time.Second,
	IdleTimeout:    150 * time.Second,
	ReadBufferSize: 8192,
	// uploads are limited per route; this only caps the multipart envelope
	BodyLimit:    12 << 20,
	ErrorHandler: handleError,
	Network:      "tcp",
}

// handleError renders errors that escaped the handlers as {"error": msg}
func handleError(ctx *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return ctx.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	log.WithError(err).WithField("path", ctx.Path()).Error("unhandled error")
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}

// Options are the optional parts of a CMS
type Options struct {
	// API configures the JSON API; nil uses cmsapi.DefaultOptions
	API *cmsapi.Options
	// UploadsDir is served under /uploads when set
	UploadsDir string
	// AccessLog receives the HTTP access log; nil disables it
	AccessLog io.Writer
}

// CMS is the HTTP server of the CMS
type CMS struct {
	server     *fiber.App
	serverConf ServerConf
}

// NewCMS creates a new CMS
func NewCMS(serverConf ServerConf, deps cmsapi.Deps, opts Options) (*CMS, error) {
	fiberConf := FiberServerConfig
	if tps := serverConf.TrustedProxies; len(tps) > 0 {
		fiberConf.TrustedProxies = tps
		fiberConf.EnableTrustedProxyCheck = true
	}
	fiberConf.ProxyHeader = serverConf.ForwardedIPHeader
	server := fiber.New(fiberConf)
	server.Use(recover.New())
	server.Use(requestid.New())
	if opts.AccessLog != nil {
		server.Use(logger.New(logger.Config{Output: opts.AccessLog}))
	}
	server.Use(compress.New())
	if origins := serverConf.AllowedOrigins; len(origins) > 0 {
		server.Use(
			cors.New(
				cors.Config{
					AllowOrigins:     strings.Join(origins, ","),
					AllowCredentials: true,
				},
			),
		)
	}

	server.Get(
		"/api/health", func(ctx *fiber.Ctx) error {
			return ctx.JSON(
				fiber.Map{
					"status":  "ok",
					"version": version.VERSION,
				},
			)
		},
	)
	if opts.UploadsDir != "" {
		server.Static(
			"/uploads", opts.UploadsDir, fiber.Static{
				ByteRange: true,
				MaxAge:    3600,
			},
		)
	}
	if err := cmsapi.Register(server.Group("/api"), deps, opts.API); err != nil {
		return nil, err
	}
	return &CMS{
		server:     server,
		serverConf: serverConf,
	}, nil
}

// App returns the underlying fiber.App
func (cms *CMS) App() *fiber.App {
	return cms.server
}

// HttpHandlerFunc returns an http.HandlerFunc for serving all endpoints
func (cms *CMS) HttpHandlerFunc() http.HandlerFunc {
	return adaptor.FiberApp(cms.server)
}

// Listen starts an http server at the specific address
func (cms *CMS) Listen(addr string) error {
	return cms.server.Listen(addr)
}

// Shutdown gracefully stops the server
func (cms *CMS) Shutdown() error {
	return cms.server.Shutdown()
}

// Start serves until the server fails; with TLS enabled it optionally runs
// a redirect server on port 80
func (cms *CMS) Start() {
	conf := cms.serverConf
	addr := net.JoinHostPort(conf.IPListen, strconv.Itoa(conf.Port))
	if !conf.TLS.Enabled {
		log.WithField("addr", addr).Info("TLS is disabled, starting http server")
		log.WithError(cms.server.Listen(addr)).Fatal()
	}
	if conf.TLS.RedirectHTTP {
		httpServer := fiber.New(FiberServerConfig)
		httpServer.All(
			"*", func(ctx *fiber.Ctx) error {
				//goland:noinspection HttpUrlsUsage
				return ctx.Redirect(
					strings.Replace(ctx.Request().URI().String(), "http://", "https://", 1),
					fiber.StatusPermanentRedirect,
				)
			},
		)
		redirectAddr := net.JoinHostPort(conf.IPListen, "80")
		log.WithField("addr", redirectAddr).Info("starting http redirect server")
		go func() {
			log.WithError(httpServer.Listen(redirectAddr)).Fatal()
		}()
	}
	log.WithField("addr", addr).Infof("TLS enabled, starting https server (version %s)", version.VERSION)
	log.WithError(cms.server.ListenTLS(addr, conf.TLS.Cert, conf.TLS.Key)).Fatal()
}
