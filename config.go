package geoproc

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds connection settings for a geoprocessing service.
type Config struct {
	// BaseURL is the root of the service's REST API, without a
	// trailing slash, e.g. "https://gis.example.com/rest".
	BaseURL string `env:"GEOPROC_URL"`

	// Token is a static credential attached to every request. Leave it
	// empty when the transport is built with a dynamic TokenProvider.
	Token string `env:"GEOPROC_TOKEN"`

	// RequestTimeout bounds a single HTTP exchange. The overall job
	// wait budget is governed separately by poll.Policy.MaxTotalWait.
	RequestTimeout time.Duration `env:"GEOPROC_REQUEST_TIMEOUT" envDefault:"30s"`
}

// DefaultConfig returns a Config with sensible defaults.
// BaseURL must still be set by the caller.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 30 * time.Second,
	}
}

// ConfigFromEnv builds a Config from GEOPROC_* environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks required fields.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("geoproc: BaseURL is required")
	}
	return nil
}
