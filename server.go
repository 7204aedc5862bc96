package infocms

import (
	"github.com/pkg/errors"
)

// ServerConf configures the HTTP server
type ServerConf struct {
	IPListen          string   `yaml:"ip_listen"`
	Port              int      `yaml:"port"`
	TLS               tlsConf  `yaml:"tls"`
	TrustedProxies    []string `yaml:"trusted_proxies"`
	ForwardedIPHeader string   `yaml:"forwarded_ip_header"`
	// AllowedOrigins enables CORS with credentials for the listed origins
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type tlsConf struct {
	Enabled      bool   `yaml:"enabled"`
	RedirectHTTP bool   `yaml:"redirect_http"`
	Cert         string `yaml:"cert"`
	Key          string `yaml:"key"`
}

// Validate checks the server configuration
func (c ServerConf) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return errors.Errorf("invalid server port %d", c.Port)
	}
	if c.TLS.Enabled && (c.TLS.Cert == "" || c.TLS.Key == "") {
		return errors.New("tls is enabled but cert or key is missing")
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" {
			return errors.New("allowed_origins must list explicit origins, '*' cannot be combined with cookies")
		}
	}
	return nil
}
