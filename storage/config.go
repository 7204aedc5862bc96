package storage

import (
	"fmt"
	"net"
	"strconv"

	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/duration"

	"github.com/saraphi-hospital/infocms/internal/passwords"
)

// DriverType names a supported SQL backend
type DriverType string

// Supported drivers
const (
	DriverSQLite   DriverType = "sqlite"
	DriverMySQL    DriverType = "mysql"
	DriverPostgres DriverType = "postgres"
)

// SupportedDrivers lists every DriverType Connect accepts
var SupportedDrivers = []DriverType{
	DriverSQLite,
	DriverMySQL,
	DriverPostgres,
}

var defaultPorts = map[DriverType]int{
	DriverMySQL:    3306,
	DriverPostgres: 5432,
}

// DSNConf holds the parts of a MySQL or PostgreSQL connection that can be
// configured one by one instead of as a full connection string.
type DSNConf struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       string `yaml:"db"`
}

func (c DSNConf) port(driver DriverType) int {
	if c.Port != 0 {
		return c.Port
	}
	return defaultPorts[driver]
}

// DSN builds the connection string for driver. SQLite has no DSN; its
// database file is derived from Config.DataDir.
func DSN(driver DriverType, conf DSNConf) (string, error) {
	switch driver {
	case DriverMySQL:
		addr := net.JoinHostPort(conf.Host, strconv.Itoa(conf.port(driver)))
		return fmt.Sprintf(
			"%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True",
			conf.User, conf.Password, addr, conf.DB,
		), nil
	case DriverPostgres:
		return fmt.Sprintf(
			"host=%s user=%s password=%s dbname=%s port=%d",
			conf.Host, conf.User, conf.Password, conf.DB, conf.port(driver),
		), nil
	case DriverSQLite:
		return "", errors.Errorf("driver %s does not use dsn", driver)
	}
	return "", errors.Errorf("unsupported driver '%s'", driver)
}

// Config selects and tunes the database
type Config struct {
	Driver DriverType `yaml:"driver"`
	// DSN is the connection string; for SQLite it is the database file and
	// may be left empty to use infocms.db inside DataDir
	DSN     string `yaml:"dsn"`
	DataDir string `yaml:"data_dir"`
	// Debug logs every statement
	Debug bool `yaml:"debug"`

	MaxOpenConns    int                     `yaml:"max_open_conns"`
	MaxIdleConns    int                     `yaml:"max_idle_conns"`
	ConnMaxLifetime duration.DurationOption `yaml:"conn_max_lifetime"`

	// UsersHash are the argon2id parameters for new password digests
	UsersHash passwords.Argon2idParams `yaml:"-"`
}
