// Package config loads the configuration of the infocms server from a yaml
// file, an optional .env file and the environment.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zachmann/go-utils/fileutils"
	"gopkg.in/yaml.v3"

	"github.com/saraphi-hospital/infocms"
	"github.com/saraphi-hospital/infocms/internal/logger"
	"github.com/saraphi-hospital/infocms/storage"
)

// Config holds the server configuration
type Config struct {
	Server    infocms.ServerConf `yaml:"server"`
	Auth      authConf           `yaml:"auth"`
	RateLimit rateLimitConf      `yaml:"rate_limit"`
	Storage   storageConf        `yaml:"storage"`
	Throttle  throttleConf       `yaml:"throttle"`
	Uploads   uploadsConf        `yaml:"uploads"`
	Logging   logger.Conf        `yaml:"logging"`
	GeoIP     geoIPConf          `yaml:"geoip"`
}

var c *Config

const configFileName = "config.yaml"

var possibleConfigLocations = []string{
	".",
	"config",
	"/config",
	"/etc/infocms",
}

// Get returns the loaded configuration
func Get() *Config {
	return c
}

// Load reads the configuration and terminates the process if it is invalid
func Load(filename string) {
	conf, err := Read(filename)
	if err != nil {
		log.WithError(err).Fatal("could not load config")
	}
	c = conf
}

// Read reads the configuration from filename, or from config.yaml in one of
// the default locations when filename is empty. A missing file is fine as
// long as the environment provides the required values.
func Read(filename string) (*Config, error) {
	if filename == "" {
		filename = findConfigFile()
	}
	var data []byte
	if filename != "" {
		var err error
		data, err = os.ReadFile(filename)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read config file '%s'", filename)
		}
	}
	if fileutils.FileExists(".env") {
		if err := godotenv.Load(); err != nil {
			return nil, errors.Wrap(err, "could not load .env")
		}
	}
	return parse(data, os.LookupEnv)
}

func findConfigFile() string {
	for _, dir := range possibleConfigLocations {
		p := filepath.Join(dir, configFileName)
		if fileutils.FileExists(p) {
			return p
		}
	}
	return ""
}

func parse(data []byte, lookupEnv func(string) (string, bool)) (*Config, error) {
	conf := defaultConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, conf); err != nil {
			return nil, errors.Wrap(err, "could not parse config")
		}
	}
	if err := conf.applyEnv(lookupEnv); err != nil {
		return nil, err
	}
	if err := conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: infocms.ServerConf{
			Port: 3000,
		},
		Auth:      defaultAuthConf(),
		RateLimit: defaultRateLimitConf(),
		Storage:   defaultStorageConf,
		Uploads:   defaultUploadsConf,
		Logging:   defaultLoggingConf(),
	}
}

// applyEnv overrides config values with JWT_SECRET, DATABASE_URL, PORT and
// REDIS_ADDR
func (conf *Config) applyEnv(lookupEnv func(string) (string, bool)) error {
	if v, ok := lookupEnv("JWT_SECRET"); ok && v != "" {
		conf.Auth.Secret = v
	}
	if v, ok := lookupEnv("DATABASE_URL"); ok && v != "" {
		driver, dsn, err := storage.ParseDatabaseURL(v)
		if err != nil {
			return errors.Wrap(err, "invalid DATABASE_URL")
		}
		conf.Storage.Driver = driver
		conf.Storage.DSN = dsn
	}
	if v, ok := lookupEnv("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Errorf("invalid PORT '%s'", v)
		}
		conf.Server.Port = port
	}
	if v, ok := lookupEnv("REDIS_ADDR"); ok && v != "" {
		conf.Throttle.RedisAddr = v
	}
	return nil
}

func (conf *Config) validate() error {
	if err := conf.Server.Validate(); err != nil {
		return errors.Wrap(err, "error in server conf")
	}
	validators := []interface{ validate() error }{
		&conf.Auth,
		&conf.RateLimit,
		&conf.Storage,
		&conf.Throttle,
		&conf.Uploads,
		&conf.GeoIP,
	}
	for _, v := range validators {
		if err := v.validate(); err != nil {
			return err
		}
	}
	return validateLogging(conf.Logging)
}
