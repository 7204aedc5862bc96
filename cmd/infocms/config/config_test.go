package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saraphi-hospital/infocms/storage"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestParseDefaults(t *testing.T) {
	conf, err := parse(
		nil, env(
			map[string]string{
				"JWT_SECRET":   "s3cret",
				"DATABASE_URL": "sqlite://data/infocms.db",
			},
		),
	)
	require.NoError(t, err)
	assert.Equal(t, 3000, conf.Server.Port)
	assert.Equal(t, "s3cret", conf.Auth.Secret)
	assert.Equal(t, 24*time.Hour, conf.Auth.TokenLifetime.Duration())
	assert.True(t, conf.Auth.EnforcePasswordRotation)
	assert.Equal(t, "token", conf.Auth.CookieName)
	assert.Equal(t, storage.DriverSQLite, conf.Storage.Driver)
	assert.Equal(t, "data/infocms.db", conf.Storage.DSN)
	assert.Equal(t, 5, conf.Auth.Lockout.LockoutConfig().MaxFailures)
	assert.Equal(t, 10, conf.RateLimit.Auth.RateLimit().Max)
	assert.Equal(t, "uploads", conf.Uploads.LocalDir())
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
server:
  port: 8080
  allowed_origins:
    - https://hospital.example.org
auth:
  secret: from-file
  token_lifetime: 2h
  enforce_password_rotation: false
storage:
  driver: postgres
  dsn: host=db user=cms dbname=cms
  max_open_conns: 20
  conn_max_lifetime: 30m
throttle:
  redis_addr: redis:6379
rate_limit:
  auth:
    max: 3
uploads:
  s3:
    bucket: cms-files
    region: eu-central-1
`)
	conf, err := parse(data, env(nil))
	require.NoError(t, err)
	assert.Equal(t, 8080, conf.Server.Port)
	assert.Equal(t, []string{"https://hospital.example.org"}, conf.Server.AllowedOrigins)
	assert.Equal(t, "from-file", conf.Auth.Secret)
	assert.Equal(t, 2*time.Hour, conf.Auth.TokenLifetime.Duration())
	assert.False(t, conf.Auth.EnforcePasswordRotation)
	assert.Equal(t, storage.DriverPostgres, conf.Storage.Driver)
	assert.Equal(t, 20, conf.Storage.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, conf.Storage.ConnMaxLifetime.Duration())
	assert.Equal(t, "redis:6379", conf.Throttle.Config().RedisAddr)
	assert.Equal(t, 3, conf.RateLimit.Auth.Max)
	assert.Equal(t, 15*time.Minute, conf.RateLimit.Auth.Window.Duration())
	assert.Equal(t, "", conf.Uploads.LocalDir())
	assert.Equal(t, "cms-files", conf.Uploads.S3.Bucket)
}

func TestParseEnvOverridesFile(t *testing.T) {
	data := []byte(`
server:
  port: 8080
auth:
  secret: from-file
storage:
  data_dir: /var/lib/infocms
`)
	conf, err := parse(
		data, env(
			map[string]string{
				"JWT_SECRET":   "from-env",
				"PORT":         "9000",
				"DATABASE_URL": "postgres://cms:pw@db:5432/cms?sslmode=disable",
				"REDIS_ADDR":   "cache:6379",
			},
		),
	)
	require.NoError(t, err)
	assert.Equal(t, "from-env", conf.Auth.Secret)
	assert.Equal(t, 9000, conf.Server.Port)
	assert.Equal(t, storage.DriverPostgres, conf.Storage.Driver)
	assert.Equal(t, "postgres://cms:pw@db:5432/cms?sslmode=disable", conf.Storage.DSN)
	assert.Equal(t, "cache:6379", conf.Throttle.RedisAddr)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		env  map[string]string
	}{
		{
			name: "missing secret",
			env:  map[string]string{"DATABASE_URL": "sqlite://x.db"},
		},
		{
			name: "missing database",
			env:  map[string]string{"JWT_SECRET": "x"},
		},
		{
			name: "invalid port",
			env:  map[string]string{"JWT_SECRET": "x", "DATABASE_URL": "sqlite://x.db", "PORT": "http"},
		},
		{
			name: "unsupported database url",
			env:  map[string]string{"JWT_SECRET": "x", "DATABASE_URL": "mongodb://db/cms"},
		},
		{
			name: "unsupported driver",
			data: "storage:\n  driver: oracle\n  dsn: x\n",
			env:  map[string]string{"JWT_SECRET": "x"},
		},
		{
			name: "wildcard origin",
			data: "server:\n  allowed_origins: ['*']\n",
			env:  map[string]string{"JWT_SECRET": "x", "DATABASE_URL": "sqlite://x.db"},
		},
		{
			name: "s3 without bucket",
			data: "uploads:\n  s3:\n    region: eu-central-1\n",
			env:  map[string]string{"JWT_SECRET": "x", "DATABASE_URL": "sqlite://x.db"},
		},
		{
			name: "missing log dir",
			data: "logging:\n  internal:\n    dir: /does/not/exist\n",
			env:  map[string]string{"JWT_SECRET": "x", "DATABASE_URL": "sqlite://x.db"},
		},
		{
			name: "bad log level",
			data: "logging:\n  internal:\n    level: loud\n",
			env:  map[string]string{"JWT_SECRET": "x", "DATABASE_URL": "sqlite://x.db"},
		},
		{
			name: "invalid yaml",
			data: "server: [",
			env:  map[string]string{"JWT_SECRET": "x", "DATABASE_URL": "sqlite://x.db"},
		},
	}
	for _, test := range tests {
		t.Run(
			test.name, func(t *testing.T) {
				_, err := parse([]byte(test.data), env(test.env))
				assert.Error(t, err)
			},
		)
	}
}
