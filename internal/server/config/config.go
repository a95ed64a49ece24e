// Package config handles configuration for the server component:
// defaults, then a JSON file, then MAILAUTH_* environment variables, then
// command-line flags, each layer overriding the previous one.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"
)

// Config holds runtime settings for the mailauth server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the HTTP API.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory user store.
//   - SecretKey / RefreshSecretKey: HMAC secrets for access and refresh JWTs.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - MasterKey: hex-encoded 32-byte key sealing the per-user mail secret.
//   - BcryptCost: password hashing cost; 0 means bcrypt.DefaultCost.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	EndpointAddrHTTP             string        `env:"ADDRESS"`
	DatabaseDSN                  string        `env:"DATABASE_DSN"`
	SecretKey                    string        `env:"SECRET_KEY"`
	RefreshSecretKey             string        `env:"REFRESH_SECRET_KEY"`
	AccessTokenValidityDuration  time.Duration `env:"ACCESS_TOKEN_TTL"`
	RefreshTokenValidityDuration time.Duration `env:"REFRESH_TOKEN_TTL"`
	MasterKey                    string        `env:"MASTER_KEY"`
	BcryptCost                   int           `env:"BCRYPT_COST"`
	LogLevel                     string        `env:"LOG_LEVEL"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secrets are insecure and MasterKey is left empty on purpose, so a
// production deployment has to provide them.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.RefreshSecretKey = "refreshSecretKey"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 7 * 24 * time.Hour
	c.MasterKey = ""
	c.BcryptCost = 0
	c.LogLevel = "info"
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	if c.SecretKey == "" {
		errs = append(errs, errors.New("secret key is empty"))
	}
	if c.RefreshSecretKey == "" {
		errs = append(errs, errors.New("refresh secret key is empty"))
	}
	if c.SecretKey != "" && c.SecretKey == c.RefreshSecretKey {
		errs = append(errs, errors.New("access and refresh secret keys must differ"))
	}
	if c.AccessTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("access token validity must be positive"))
	}
	if c.RefreshTokenValidityDuration <= c.AccessTokenValidityDuration {
		errs = append(errs, errors.New("refresh token validity must exceed access token validity"))
	}
	if key, err := hex.DecodeString(c.MasterKey); err != nil || len(key) != 32 {
		errs = append(errs, errors.New("master key must be 64 hex characters"))
	}

	return errors.Join(errs...)
}

// LoadConfig builds a Config from defaults, the optional JSON file named by
// -c/-config, the environment and finally the command-line flags.
func LoadConfig() (*Config, error) {
	args := os.Args[1:]

	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, fmt.Errorf("json config: %w", err)
	}
	if err := parseEnv(cfg); err != nil {
		return nil, fmt.Errorf("env config: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	return cfg, nil
}
