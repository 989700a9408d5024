// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config handles application configuration loading from environment
// variables. It provides a centralized Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// devSecret is the APP_SECRET used outside production when none is set.
const devSecret = "qbadmin-development-secret-not-for-production"

// minSecretLen is the shortest APP_SECRET accepted in production.
const minSecretLen = 32

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host   string
	Port   string
	Env    string // "development", "production", "testing"
	Secret string // derives the session token encryption key

	// Upstream question-bank API
	APIBaseURL string
	APITimeout time.Duration

	// PostgreSQL connection (audit log, second factors)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Valkey (sessions and API response cache)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string
	CacheTTL       time.Duration // 0 disables the response cache

	// TwoFactor enables TOTP enrolment and verification after login.
	TwoFactor bool

	// Question image handling
	ImageMaxWidth int

	// Optional S3-compatible archive for uploaded images
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string
}

// LoadDotEnv reads KEY=value pairs from the given files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables, applying defaults
// for development where appropriate. Returns an error if critical values
// are missing in production mode.
func Load() (*Config, error) {
	cfg := &Config{
		Host:   envOrDefault("APP_HOST", "0.0.0.0"),
		Port:   envOrDefault("APP_PORT", "8080"),
		Env:    envOrDefault("APP_ENV", "development"),
		Secret: os.Getenv("APP_SECRET"),

		APIBaseURL: envOrDefault("API_BASE_URL", "http://localhost:3000/api"),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "qbadmin"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "qbadmin"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    envOrDefault("S3_REGION", "us-east-1"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3Bucket:    envOrDefault("S3_BUCKET", "qbadmin-archive"),
		S3PublicURL: os.Getenv("S3_PUBLIC_URL"),
	}

	var err error
	if cfg.APITimeout, err = durationOrDefault("API_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = durationOrDefault("CACHE_TTL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.TwoFactor, err = boolOrDefault("TWO_FACTOR", false); err != nil {
		return nil, err
	}
	if cfg.ImageMaxWidth, err = intOrDefault("IMAGE_MAX_WIDTH", 1600); err != nil {
		return nil, err
	}

	if cfg.Env == "production" {
		if cfg.DBPassword == "changeme" {
			return nil, fmt.Errorf("POSTGRES_PASSWORD must be set in production")
		}
		if len(cfg.Secret) < minSecretLen {
			return nil, fmt.Errorf("APP_SECRET must be at least %d characters in production", minSecretLen)
		}
	}
	if cfg.Secret == "" {
		cfg.Secret = devSecret
	}

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

func boolOrDefault(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return b, nil
}

func intOrDefault(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: invalid positive integer %q", key, v)
	}
	return n, nil
}
