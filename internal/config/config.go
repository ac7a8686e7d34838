// Package config loads process configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	minJWTSecretLen = 16
)

// Config contains server configuration parameters.
type Config struct {
	Port     int        `env:"PORT" envDefault:"3000"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	Database Database   `envPrefix:"DATABASE_"`
	JWT      JWT        `envPrefix:"JWT_"`
	Gemini   Gemini     `envPrefix:"GEMINI_"`
	Google   Google     `envPrefix:"GOOGLE_"`
	CORS     CORS       `envPrefix:"CORS_"`
	Sentry   Sentry     `envPrefix:"SENTRY_"`
}

// Database selects and locates the relational store.
type Database struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	Path   string `env:"PATH" envDefault:"data/companion.db"`
	DSN    string `env:"DSN"`
}

// JWT contains session token parameters.
type JWT struct {
	Secret string        `env:"SECRET,required"`
	TTL    time.Duration `env:"TTL" envDefault:"24h"`
}

// Gemini contains the generative-language API parameters. An empty key
// leaves the AI routes answering 503.
type Gemini struct {
	APIKey  string        `env:"API_KEY"`
	Model   string        `env:"MODEL" envDefault:"gemini-2.5-flash"`
	BaseURL string        `env:"BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"60s"`
}

// Google contains sign-in parameters. ClientID alone enables /google-login;
// ClientSecret and CallbackURL additionally enable the code flow.
type Google struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	CallbackURL  string `env:"CALLBACK_URL"`
	JWKSURL      string `env:"JWKS_URL" envDefault:"https://www.googleapis.com/oauth2/v3/certs"`
}

// CodeFlowEnabled reports whether the server-side OAuth routes can be served.
func (g Google) CodeFlowEnabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.CallbackURL != ""
}

// CORS lists the origins allowed to call the API from a browser.
type CORS struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`
}

// Sentry contains error reporting parameters. An empty DSN disables it.
type Sentry struct {
	DSN         string `env:"DSN"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the values env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if len(c.JWT.Secret) < minJWTSecretLen {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLen))
	}
	if c.JWT.TTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("DATABASE_PATH is required for the sqlite driver"))
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.Database.Driver))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ClientConfig configures the terminal client.
type ClientConfig struct {
	APIURL        string `env:"API_URL" envDefault:"http://localhost:3000"`
	CharactersURL string `env:"CHARACTERS_URL" envDefault:"https://genshin.jmp.blue"`
	SessionFile   string `env:"SESSION_FILE"`
}

// NewClientConfig loads COMPANION_* variables.
func NewClientConfig() (*ClientConfig, error) {
	cfg := ClientConfig{}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "COMPANION_"}); err != nil {
		return nil, fmt.Errorf("failed to parse client config: %w", err)
	}

	return &cfg, nil
}
