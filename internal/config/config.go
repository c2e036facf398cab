// Package config loads runtime settings.
//
// SOURCES, LOWEST PRIORITY FIRST:
//  1. env-default tags below
//  2. a YAML file named by CONFIG_PATH (optional)
//  3. a .env file in the working directory (optional, local development)
//  4. real environment variables
//
// cleanenv reads the struct tags, so every setting is declared exactly once
// with its variable name, default and description.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env     string  `yaml:"env" env:"APP_ENV" env-default:"local" env-description:"local, dev or prod"`
	HTTP    HTTP    `yaml:"http"`
	Storage Storage `yaml:"storage"`
	Auth    Auth    `yaml:"auth"`
}

type HTTP struct {
	Address         string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"15s"`
}

type Storage struct {
	Driver          string        `yaml:"driver" env:"STORAGE_DRIVER" env-default:"sqlite" env-description:"sqlite or postgres"`
	DSN             string        `yaml:"dsn" env:"STORAGE_DSN" env-default:"data/accounts.db" env-description:"file path for sqlite, URL for postgres"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"STORAGE_MAX_OPEN_CONNS" env-default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"STORAGE_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"STORAGE_CONN_MAX_LIFETIME" env-default:"30m"`
}

type Auth struct {
	TokenSecret string `yaml:"token_secret" env:"TOKEN_SECRET" env-required:"true" env-description:"HMAC key for token keys, 16+ chars"`
	BcryptCost  int    `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"12"`
}

// Load reads the configuration and validates it.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad is Load for main packages: it exits on error after printing
// the list of supported variables.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		help, _ := cleanenv.GetDescription(&Config{}, nil)
		fmt.Fprintln(os.Stderr, help)
		os.Exit(1)
	}
	return cfg
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("config: APP_ENV %q must be local, dev or prod", c.Env))
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("config: STORAGE_DRIVER %q must be sqlite or postgres", c.Storage.Driver))
	}
	if c.Storage.DSN == "" {
		errs = append(errs, errors.New("config: STORAGE_DSN is empty"))
	}
	if len(c.Auth.TokenSecret) < 16 {
		errs = append(errs, errors.New("config: TOKEN_SECRET must be at least 16 characters"))
	}
	return errors.Join(errs...)
}

// String renders the config for startup logs with the secret masked.
func (c *Config) String() string {
	return fmt.Sprintf("env=%s http=%s storage=%s auth.bcrypt_cost=%d auth.token_secret=***",
		c.Env, c.HTTP.Address, c.Storage.Driver, c.Auth.BcryptCost)
}
