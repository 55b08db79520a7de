// Copyright (c) 2026 The passkeyblog Authors
//
// This file is part of the passkeyblog backend.
//
// Licensed under the MIT License. See the LICENSE file for details.

package passkey

import (
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/go-webauthn/webauthn/webauthn"
)

// Config configures the relying party for ceremony operations.
type Config struct {
	// RPID is the relying party identifier, typically the domain name.
	// Example: "blog.example.com"
	RPID string `yaml:"rp_id" json:"rp_id"`

	// RPDisplayName is the human-readable name of the relying party.
	RPDisplayName string `yaml:"rp_display_name" json:"rp_display_name"`

	// RPOrigin is the single allowed origin for ceremony responses.
	// Example: "https://blog.example.com"
	RPOrigin string `yaml:"rp_origin" json:"rp_origin"`

	// Timeout bounds each ceremony. It is embedded in the options sent to
	// the authenticator and enforced server-side when the response comes
	// back. Default: 60 seconds.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Debug enables verbose logging inside the WebAuthn library.
	Debug bool `yaml:"debug" json:"debug"`
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.RPID == "" {
		return fmt.Errorf("RPID is required")
	}
	if c.RPDisplayName == "" {
		return fmt.Errorf("RPDisplayName is required")
	}
	if c.RPOrigin == "" {
		return fmt.Errorf("RPOrigin is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// SetDefaults sets default values for unset configuration fields.
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
}

// toWebAuthnConfig converts the Config to the go-webauthn library's
// configuration. Ceremony timeouts are enforced server-side, so a stale
// challenge is rejected even if the client ignored the advisory timeout.
func (c *Config) toWebAuthnConfig() *webauthn.Config {
	return &webauthn.Config{
		RPID:                  c.RPID,
		RPDisplayName:         c.RPDisplayName,
		RPOrigins:             []string{c.RPOrigin},
		AttestationPreference: protocol.PreferNoAttestation,
		Debug:                 c.Debug,
		Timeouts: webauthn.TimeoutsConfig{
			Login: webauthn.TimeoutConfig{
				Enforce:    true,
				Timeout:    c.Timeout,
				TimeoutUVD: c.Timeout,
			},
			Registration: webauthn.TimeoutConfig{
				Enforce:    true,
				Timeout:    c.Timeout,
				TimeoutUVD: c.Timeout,
			},
		},
	}
}

// credentialParameters returns the signature algorithms offered at
// registration: ES256 and RS256.
func credentialParameters() []protocol.CredentialParameter {
	return []protocol.CredentialParameter{
		{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgES256},
		{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgRS256},
	}
}
