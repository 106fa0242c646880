// Package config reads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port   int    `env:"PORT"    envDefault:"9001"`
	DBPath string `env:"DB_PATH,required"`

	// TemplatesDir overrides the built-in templates when set.
	TemplatesDir   string `env:"TEMPLATES_DIR"`
	WatchTemplates bool   `env:"WATCH_TEMPLATES" envDefault:"true"`
	AppName        string `env:"APP_NAME"        envDefault:"PrepWise"`
	AppTagline     string `env:"APP_TAGLINE"     envDefault:"Practice job interviews with AI"`

	Issuer         string        `env:"ISSUER"           envDefault:"authform.local"`
	Audience       string        `env:"AUDIENCE"         envDefault:"authform"`
	SigningKeyPath string        `env:"SIGNING_KEY_PATH"`
	IDTokenTTL     time.Duration `env:"ID_TOKEN_TTL"     envDefault:"1h"`

	SessionTTL           time.Duration `env:"SESSION_TTL"            envDefault:"168h"`
	SessionPruneInterval time.Duration `env:"SESSION_PRUNE_INTERVAL" envDefault:"1h"`
	RedisAddr            string        `env:"REDIS_ADDR"`
	CookieSecure         bool          `env:"COOKIE_SECURE"          envDefault:"true"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`
}

var ErrInvalidConfig = errors.New("invalid config")

// Load reads the process environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.validate()
}

// LoadFrom reads the given variables instead of the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("%w: PORT %d out of range", ErrInvalidConfig, c.Port)
	case c.IDTokenTTL <= 0:
		return fmt.Errorf("%w: ID_TOKEN_TTL must be positive", ErrInvalidConfig)
	case c.SessionTTL <= 0:
		return fmt.Errorf("%w: SESSION_TTL must be positive", ErrInvalidConfig)
	case c.SessionPruneInterval <= 0:
		return fmt.Errorf("%w: SESSION_PRUNE_INTERVAL must be positive", ErrInvalidConfig)
	}
	return nil
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
