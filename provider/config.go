package provider

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the provider configuration for ID token validation.
type Config struct {
	// Name identifies the provider, e.g. "google" or "auth0". It is recorded
	// on accounts created through this provider.
	Name string

	// Issuer is the expected iss claim.
	Issuer string

	// Audience is the client ID(s) to validate against.
	Audience []string

	// JWKSURL is the provider's key set endpoint. Default:
	// "{Issuer}/.well-known/jwks.json".
	JWKSURL string

	// RefreshInterval is how often the key set is refreshed in the
	// background. Default: 1 hour.
	RefreshInterval time.Duration
}

// Validate reports configuration errors before any network work happens.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("provider: name is required")
	}

	if strings.TrimSpace(c.Issuer) == "" {
		return fmt.Errorf("provider: issuer is required")
	}

	if len(c.Audience) == 0 {
		return fmt.Errorf("provider: at least one audience is required")
	}

	return nil
}

func (c Config) jwksURL() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}

	issuer := c.Issuer
	if !strings.HasSuffix(issuer, "/") {
		issuer += "/"
	}

	return issuer + ".well-known/jwks.json"
}

func (c Config) refreshInterval() time.Duration {
	if c.RefreshInterval > 0 {
		return c.RefreshInterval
	}
	return time.Hour
}
