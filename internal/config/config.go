// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

// Package config loads the server configuration from a YAML file and
// applies environment variable overrides.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/passkeyblog/backend/pkg/logging"
	"github.com/passkeyblog/backend/pkg/passkey"
	"github.com/passkeyblog/backend/pkg/storage/dynamodb"
)

// Storage backend names
const (
	StorageMemory   = "memory"
	StorageDynamoDB = "dynamodb"
)

// Config represents the complete server configuration
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Logging  logging.Config  `yaml:"logging"`
	Session  SessionConfig   `yaml:"session"`
	CORS     CORSConfig      `yaml:"cors"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Passkey  passkey.Config  `yaml:"passkey"`
	Storage  StorageConfig   `yaml:"storage"`
	DynamoDB dynamodb.Config `yaml:"dynamodb"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SessionConfig controls the encrypted session cookie.
type SessionConfig struct {
	// CookieName is the session cookie's name.
	CookieName string `yaml:"cookie_name"`

	// HashKey authenticates the cookie (HMAC). At least 32 bytes.
	HashKey string `yaml:"hash_key"`

	// BlockKey encrypts the cookie contents. 16, 24 or 32 bytes.
	BlockKey string `yaml:"block_key"`

	// Domain scopes the cookie. Empty means host-only.
	Domain string `yaml:"domain"`

	// MaxAge bounds the session lifetime. Default: 48 hours.
	MaxAge time.Duration `yaml:"max_age"`

	// Secure marks the cookie HTTPS-only. Disable for local development
	// only.
	Secure bool `yaml:"secure"`
}

// CORSConfig controls cross-origin access to the API.
type CORSConfig struct {
	// Origin is the single allowed browser origin. Defaults to the
	// relying party origin.
	Origin string `yaml:"origin"`
}

// MetricsConfig controls the Prometheus metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// StorageConfig selects the credential store backend
type StorageConfig struct {
	Backend string `yaml:"backend"`
}

// Load reads configuration from a YAML file and applies environment
// variable overrides.
func Load(path string) (*Config, error) {
	// #nosec G304 - Config file path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("BLOG_API_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portValue := os.Getenv("BLOG_API_PORT"); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil {
			log.Printf("Warning: invalid BLOG_API_PORT value %q, using default %d: %v",
				portValue, cfg.Server.Port, err)
		} else if port < 1 || port > 65535 {
			log.Printf("Warning: invalid BLOG_API_PORT value %q (out of range 1-65535), using default %d",
				portValue, cfg.Server.Port)
		} else {
			cfg.Server.Port = port
		}
	}

	// Logging
	if level := os.Getenv("BLOG_API_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("BLOG_API_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	// Session cookie keys carry secrets, so they are usually injected
	// through the environment rather than the config file.
	if hashKey := os.Getenv("BLOG_API_SESSION_HASH_KEY"); hashKey != "" {
		cfg.Session.HashKey = hashKey
	}
	if blockKey := os.Getenv("BLOG_API_SESSION_BLOCK_KEY"); blockKey != "" {
		cfg.Session.BlockKey = blockKey
	}

	// Storage selection and environment name
	if backend := os.Getenv("BLOG_API_STORAGE_BACKEND"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if envName := os.Getenv("BLOG_API_ENV_NAME"); envName != "" {
		cfg.DynamoDB.EnvName = envName
	}

	// AWS settings follow the SDK's conventional variable names
	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.DynamoDB.Region = region
	}
	if accessKey := os.Getenv("AWS_ACCESS_KEY_ID"); accessKey != "" {
		cfg.DynamoDB.AccessKeyID = accessKey
	}
	if secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY"); secretKey != "" {
		cfg.DynamoDB.SecretAccessKey = secretKey
	}
	if endpoint := os.Getenv("AWS_ENDPOINT"); endpoint != "" {
		cfg.DynamoDB.Endpoint = endpoint
	}
}

// SetDefaults sets default values for unset configuration fields.
func (c *Config) SetDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "blog-session"
	}
	if c.Session.MaxAge == 0 {
		c.Session.MaxAge = 48 * time.Hour
	}
	if c.CORS.Origin == "" {
		c.CORS.Origin = c.Passkey.RPOrigin
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageMemory
	}
	c.Passkey.SetDefaults()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	if err := c.Passkey.Validate(); err != nil {
		return fmt.Errorf("passkey: %w", err)
	}

	if len(c.Session.HashKey) < 32 {
		return fmt.Errorf("session hash_key must be at least 32 bytes")
	}
	switch len(c.Session.BlockKey) {
	case 16, 24, 32:
	default:
		return fmt.Errorf("session block_key must be 16, 24 or 32 bytes")
	}

	switch strings.ToLower(c.Storage.Backend) {
	case StorageMemory:
	case StorageDynamoDB:
		if err := c.DynamoDB.Validate(); err != nil {
			return fmt.Errorf("dynamodb: %w", err)
		}
	default:
		return fmt.Errorf("unknown storage backend: %s (must be memory or dynamodb)", c.Storage.Backend)
	}

	return nil
}
