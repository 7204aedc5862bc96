package config

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/zachmann/go-utils/fileutils"

	"github.com/saraphi-hospital/infocms/internal/logger"
)

// The logging config lives under the `logging` key.
//
// YAML example:
//
//	logging:
//	  access:
//	    dir: /var/log/infocms
//	    stderr: false
//	  internal:
//	    dir: /var/log/infocms
//	    stderr: false
//	    level: INFO
func defaultLoggingConf() logger.Conf {
	conf := logger.Conf{}
	conf.Internal.Level = "INFO"
	return conf
}

func checkLoggingDirExists(dir string) error {
	if dir != "" && !fileutils.FileExists(dir) {
		return errors.Errorf("logging directory '%s' does not exist", dir)
	}
	return nil
}

func validateLogging(conf logger.Conf) error {
	if err := checkLoggingDirExists(conf.Access.Dir); err != nil {
		return err
	}
	if err := checkLoggingDirExists(conf.Internal.Dir); err != nil {
		return err
	}
	if conf.Internal.Level != "" {
		if _, err := log.ParseLevel(conf.Internal.Level); err != nil {
			return errors.Wrap(err, "error in logging conf")
		}
	}
	return nil
}

// geoIPConf points to an optional MaxMind country database used to annotate
// login audit entries
type geoIPConf struct {
	Database string `yaml:"database"`
}

func (c *geoIPConf) validate() error {
	if c.Database != "" && !fileutils.FileExists(c.Database) {
		return errors.Errorf("error in geoip conf: database '%s' does not exist", c.Database)
	}
	return nil
}
