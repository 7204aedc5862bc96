package config

import (
	"slices"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zachmann/go-utils/duration"
	"github.com/zachmann/go-utils/fileutils"

	"github.com/saraphi-hospital/infocms/internal/passwords"
	"github.com/saraphi-hospital/infocms/internal/throttle"
	"github.com/saraphi-hospital/infocms/storage"
	"github.com/saraphi-hospital/infocms/storage/model"
)

type storageConf struct {
	Driver  storage.DriverType `yaml:"driver"`
	DataDir string             `yaml:"data_dir"`
	DSN     string             `yaml:"dsn"`

	storage.DSNConf `yaml:",inline"`

	MaxOpenConns    int                     `yaml:"max_open_conns"`
	MaxIdleConns    int                     `yaml:"max_idle_conns"`
	ConnMaxLifetime duration.DurationOption `yaml:"conn_max_lifetime"`
	Debug           bool                    `yaml:"debug"`
}

func (c *storageConf) validate() error {
	if !slices.Contains(storage.SupportedDrivers, c.Driver) {
		return errors.Errorf("error in storage conf: unsupported driver '%s'", c.Driver)
	}
	if c.Driver == storage.DriverSQLite {
		if c.DataDir == "" && c.DSN == "" {
			return errors.New("error in storage conf: no database configured (set storage.data_dir or DATABASE_URL)")
		}
		return nil
	}
	var err error
	if c.DSN == "" {
		c.DSN, err = storage.DSN(c.Driver, c.DSNConf)
	}
	return errors.Wrap(err, "error in storage conf")
}

var defaultStorageConf = storageConf{
	Driver: storage.DriverSQLite,
	DSNConf: storage.DSNConf{
		User: "infocms",
		Host: "localhost",
		DB:   "infocms",
	},
}

// LoadStorageBackends opens the database and returns the storage backends
func LoadStorageBackends(c storageConf, hashing passwords.Argon2idParams) (model.Backends, error) {
	cfg := storage.Config{
		Driver:    c.Driver,
		DSN:       c.DSN,
		DataDir:   c.DataDir,
		Debug:     c.Debug,
		UsersHash: hashing,

		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
	backs, err := storage.LoadStorageBackends(cfg)
	if err != nil {
		return model.Backends{}, err
	}
	log.WithField("driver", c.Driver).Info("Loaded storage backend")
	return backs, nil
}

// throttleConf selects where rate limit and lockout state is kept. With a
// redis address the state is shared between instances; otherwise badger is
// used, in memory unless dir is set.
type throttleConf struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	Dir           string `yaml:"dir"`
}

func (c *throttleConf) validate() error {
	if c.RedisAddr == "" && c.Dir != "" && !fileutils.FileExists(c.Dir) {
		return errors.Errorf("error in throttle conf: directory '%s' does not exist", c.Dir)
	}
	return nil
}

// Config converts the config into a throttle.Config
func (c throttleConf) Config() throttle.Config {
	return throttle.Config{
		RedisAddr:     c.RedisAddr,
		RedisPassword: c.RedisPassword,
		RedisDB:       c.RedisDB,
		Dir:           c.Dir,
	}
}
