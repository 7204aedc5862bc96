package main

import (
	"context"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/saraphi-hospital/infocms"
	"github.com/saraphi-hospital/infocms/api/cmsapi"
	"github.com/saraphi-hospital/infocms/cmd/infocms/config"
	"github.com/saraphi-hospital/infocms/internal/accounts"
	"github.com/saraphi-hospital/infocms/internal/audit"
	"github.com/saraphi-hospital/infocms/internal/geoip"
	"github.com/saraphi-hospital/infocms/internal/logger"
	"github.com/saraphi-hospital/infocms/internal/throttle"
	"github.com/saraphi-hospital/infocms/internal/tokens"
	"github.com/saraphi-hospital/infocms/internal/version"
)

func main() {
	var configFile string
	if len(os.Args) > 1 {
		configFile = os.Args[1]
	}
	config.Load(configFile)
	c := config.Get()
	if err := logger.Init(c.Logging); err != nil {
		log.WithError(err).Fatal("could not init logging")
	}
	log.WithField("version", version.VERSION).Info("Loaded Config")

	backs, err := config.LoadStorageBackends(c.Storage, c.Auth.PasswordHashing)
	if err != nil {
		log.WithError(err).Fatal("could not load storage")
	}

	throttleStore, err := throttle.Open(c.Throttle.Config())
	if err != nil {
		log.WithError(err).Fatal("could not open throttle store")
	}
	var lockout *throttle.AccountLockout
	if !c.Auth.Lockout.Disabled {
		lockout = throttle.NewAccountLockout(throttleStore, c.Auth.Lockout.LockoutConfig())
	}

	locator, err := geoip.Open(c.GeoIP.Database)
	if err != nil {
		log.WithError(err).Fatal("could not open geoip database")
	}
	recorder := audit.NewRecorder(backs.Audit, locator)

	issuer, err := tokens.NewIssuer(c.Auth.Secret, c.Auth.TokenLifetime.Duration())
	if err != nil {
		log.WithError(err).Fatal("could not init token issuer")
	}
	svc := accounts.NewService(backs.Users, issuer, lockout, recorder)

	files, err := c.Uploads.Store(context.Background())
	if err != nil {
		log.WithError(err).Fatal("could not init upload storage")
	}

	var accessLog io.Writer
	if c.Logging.Access.Dir != "" || c.Logging.Access.StdErr {
		accessLog, err = logger.AccessWriter(c.Logging)
		if err != nil {
			log.WithError(err).Fatal("could not open access log")
		}
	}

	cms, err := infocms.NewCMS(
		c.Server,
		cmsapi.Deps{
			Backends: backs,
			Accounts: svc,
			Tokens:   issuer,
			Audit:    recorder,
			Uploads:  files,
			Throttle: throttleStore,
		},
		infocms.Options{
			API: &cmsapi.Options{
				CookieName:              c.Auth.CookieName,
				EnforcePasswordRotation: c.Auth.EnforcePasswordRotation,
				AuthRateLimit:           c.RateLimit.Auth.RateLimit(),
				APIRateLimit:            c.RateLimit.API.RateLimit(),
				DisableRateLimit:        c.RateLimit.Disabled,
			},
			UploadsDir: c.Uploads.LocalDir(),
			AccessLog:  accessLog,
		},
	)
	if err != nil {
		log.WithError(err).Fatal("could not init server")
	}
	log.Info("Added Endpoints")

	cms.Start()
}
