// Package config loads application configuration from the environment and an
// optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	// CardEncryptionSecret derives the card number key. Changing it makes
	// every stored card number unreadable.
	CardEncryptionSecret string `mapstructure:"CARD_ENCRYPTION_SECRET"`

	JWTSecret string `mapstructure:"JWT_SECRET"`
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	JWTTTL    string `mapstructure:"JWT_TTL"`

	BcryptCost  int    `mapstructure:"BCRYPT_COST"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	AutoMigrate bool   `mapstructure:"AUTO_MIGRATE"`

	// AdminUsername and AdminPassword, when both set, provision an
	// administrator at startup if the username does not exist yet.
	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`
}

var defaults = map[string]interface{}{
	"SERVER_PORT":  "8080",
	"DB_HOST":      "localhost",
	"DB_PORT":      "5432",
	"DB_USER":      "postgres",
	"DB_PASSWORD":  "",
	"DB_NAME":      "bank_cards",
	"DB_SSLMODE":   "disable",
	"JWT_ISSUER":   "bank-cards",
	"JWT_TTL":      "1h",
	"BCRYPT_COST":  12,
	"LOG_LEVEL":    "info",
	"AUTO_MIGRATE": true,

	"CARD_ENCRYPTION_SECRET": "",
	"JWT_SECRET":             "",
	"ADMIN_USERNAME":         "",
	"ADMIN_PASSWORD":         "",
}

// Load reads .env (if present), then the environment. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing .env is fine

	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.CardEncryptionSecret == "" {
		return errors.New("config: CARD_ENCRYPTION_SECRET must be set")
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET must be set")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 12
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	return nil
}

// GetDBConnectionString returns a lib/pq keyword/value DSN.
func (c *Config) GetDBConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.sslMode())
}

// GetDatabaseURL returns the same connection as a postgres:// URL, which is
// the form the migration runner expects.
func (c *Config) GetDatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.sslMode()),
	}
	return u.String()
}

func (c *Config) sslMode() string {
	if c.DBSSLMode == "" {
		return "disable"
	}
	return c.DBSSLMode
}

// TokenTTL parses JWTTTL. Returns 1h if unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
