// Package logger configures the logrus standard logger and the writer used
// for HTTP access logs.
package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	internalLogFile = "infocms.log"
	accessLogFile   = "access.log"
)

// Output selects where a log is written: a file in Dir, stderr, or both
type Output struct {
	Dir    string `yaml:"dir"`
	StdErr bool   `yaml:"stderr"`
}

// Conf configures logging
type Conf struct {
	Access   Output `yaml:"access"`
	Internal struct {
		Output `yaml:",inline"`
		Level  string `yaml:"level"`
	} `yaml:"internal"`
}

func (o Output) writer(file string) (io.Writer, error) {
	if o.Dir == "" {
		return os.Stderr, nil
	}
	f, err := os.OpenFile(filepath.Join(o.Dir, file), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open log file in '%s'", o.Dir)
	}
	if o.StdErr {
		return io.MultiWriter(f, os.Stderr), nil
	}
	return f, nil
}

// Init configures the standard logrus logger
func Init(conf Conf) error {
	level := log.InfoLevel
	if conf.Internal.Level != "" {
		var err error
		level, err = log.ParseLevel(conf.Internal.Level)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	w, err := conf.Internal.writer(internalLogFile)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetOutput(w)
	log.SetFormatter(
		&log.TextFormatter{
			FullTimestamp: true,
		},
	)
	return nil
}

// AccessWriter returns the writer for HTTP access logs
func AccessWriter(conf Conf) (io.Writer, error) {
	return conf.Access.writer(accessLogFile)
}
