package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/duration"

	"github.com/saraphi-hospital/infocms/api/cmsapi"
	"github.com/saraphi-hospital/infocms/internal/passwords"
	"github.com/saraphi-hospital/infocms/internal/throttle"
	"github.com/saraphi-hospital/infocms/internal/tokens"
)

// authConf holds everything related to sessions and passwords.
//
// YAML example:
//
//	auth:
//	  secret: change-me
//	  token_lifetime: 24h
//	  cookie_name: token
//	  enforce_password_rotation: true
//	  lockout:
//	    max_failures: 5
//	    window: 15m
//	    duration: 15m
type authConf struct {
	// Secret signs session tokens; JWT_SECRET overrides it
	Secret                  string                   `yaml:"secret"`
	TokenLifetime           duration.DurationOption  `yaml:"token_lifetime"`
	CookieName              string                   `yaml:"cookie_name"`
	EnforcePasswordRotation bool                     `yaml:"enforce_password_rotation"`
	Lockout                 lockoutConf              `yaml:"lockout"`
	PasswordHashing         passwords.Argon2idParams `yaml:"password_hashing"`
}

type lockoutConf struct {
	Disabled    bool                    `yaml:"disabled"`
	MaxFailures int                     `yaml:"max_failures"`
	Window      duration.DurationOption `yaml:"window"`
	Duration    duration.DurationOption `yaml:"duration"`
}

// LockoutConfig converts the config into a throttle.LockoutConfig
func (c lockoutConf) LockoutConfig() throttle.LockoutConfig {
	return throttle.LockoutConfig{
		MaxFailures: c.MaxFailures,
		Window:      c.Window.Duration(),
		Duration:    c.Duration.Duration(),
	}
}

func defaultAuthConf() authConf {
	def := throttle.DefaultLockoutConfig()
	return authConf{
		TokenLifetime:           duration.DurationOption(tokens.DefaultLifetime),
		CookieName:              cmsapi.DefaultCookieName,
		EnforcePasswordRotation: true,
		Lockout: lockoutConf{
			MaxFailures: def.MaxFailures,
			Window:      duration.DurationOption(def.Window),
			Duration:    duration.DurationOption(def.Duration),
		},
		PasswordHashing: passwords.DefaultArgon2idParams(),
	}
}

func (c *authConf) validate() error {
	if c.Secret == "" {
		return errors.New("error in auth conf: no signing secret configured (set auth.secret or JWT_SECRET)")
	}
	if c.TokenLifetime.Duration() < time.Minute {
		return errors.New("error in auth conf: token_lifetime must be at least one minute")
	}
	if c.CookieName == "" {
		c.CookieName = cmsapi.DefaultCookieName
	}
	if c.Lockout.MaxFailures < 0 {
		return errors.New("error in auth conf: lockout.max_failures must not be negative")
	}
	if p := c.PasswordHashing; p.Time == 0 || p.MemoryKiB == 0 || p.Parallelism == 0 || p.KeyLen == 0 ||
		p.SaltLen == 0 {
		return errors.New("error in auth conf: password_hashing parameters must all be positive")
	}
	return nil
}

// rateLimitConf configures the per-IP request limits.
//
// YAML example:
//
//	rate_limit:
//	  disabled: false
//	  auth:
//	    max: 10
//	    window: 15m
//	  api:
//	    max: 500
//	    window: 15m
type rateLimitConf struct {
	Disabled bool      `yaml:"disabled"`
	Auth     limitConf `yaml:"auth"`
	API      limitConf `yaml:"api"`
}

type limitConf struct {
	Max    int                     `yaml:"max"`
	Window duration.DurationOption `yaml:"window"`
}

// RateLimit converts the config into a cmsapi.RateLimit
func (c limitConf) RateLimit() cmsapi.RateLimit {
	return cmsapi.RateLimit{
		Max:    c.Max,
		Window: c.Window.Duration(),
	}
}

func defaultRateLimitConf() rateLimitConf {
	return rateLimitConf{
		Auth: limitConf{
			Max:    cmsapi.DefaultAuthRateLimit.Max,
			Window: duration.DurationOption(cmsapi.DefaultAuthRateLimit.Window),
		},
		API: limitConf{
			Max:    cmsapi.DefaultAPIRateLimit.Max,
			Window: duration.DurationOption(cmsapi.DefaultAPIRateLimit.Window),
		},
	}
}

func (c *rateLimitConf) validate() error {
	if c.Disabled {
		return nil
	}
	for name, l := range map[string]limitConf{
		"auth": c.Auth,
		"api":  c.API,
	} {
		if l.Max <= 0 || l.Window.Duration() <= 0 {
			return errors.Errorf("error in rate_limit conf: %s needs a positive max and window", name)
		}
	}
	return nil
}
