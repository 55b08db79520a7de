// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

package passkey

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{
		RPID:          "blog.example.com",
		RPDisplayName: "Example Blog",
		RPOrigin:      "https://blog.example.com",
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Valid", func(*Config) {}, false},
		{"MissingRPID", func(c *Config) { c.RPID = "" }, true},
		{"MissingDisplayName", func(c *Config) { c.RPDisplayName = "" }, true},
		{"MissingOrigin", func(c *Config) { c.RPOrigin = "" }, true},
		{"NegativeTimeout", func(c *Config) { c.Timeout = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigSetDefaults(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	assert.Equal(t, 60*time.Second, cfg.Timeout)

	cfg = Config{Timeout: 5 * time.Second}
	cfg.SetDefaults()
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestConfigToWebAuthn(t *testing.T) {
	cfg := Config{
		RPID:          "blog.example.com",
		RPDisplayName: "Example Blog",
		RPOrigin:      "https://blog.example.com",
		Timeout:       30 * time.Second,
	}

	wc := cfg.toWebAuthnConfig()
	assert.Equal(t, "blog.example.com", wc.RPID)
	assert.Equal(t, []string{"https://blog.example.com"}, wc.RPOrigins)
	assert.True(t, wc.Timeouts.Login.Enforce)
	assert.True(t, wc.Timeouts.Registration.Enforce)
	assert.Equal(t, 30*time.Second, wc.Timeouts.Login.Timeout)
}

func TestCredentialParameters(t *testing.T) {
	params := credentialParameters()
	require.Len(t, params, 2)
	assert.EqualValues(t, -7, params[0].Algorithm)
	assert.EqualValues(t, -257, params[1].Algorithm)
}
