package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Config is the immutable process configuration, loaded once at
// startup and passed by injection. Business logic never reads the
// environment directly.
type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=production"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// Token signing and hashlink verification.
	Audience            string `env:"AUDIENCE"`
	Issuer              string `env:"ISS_USER"`
	JWTSecretKey        string `env:"JWT_SECRET_KEY"`
	JWTRefreshSecretKey string `env:"JWT_REFRESH_SECRET_KEY"`
	HashSecretKey       string `env:"HASH_SECRET_KEY"`

	// Defaults applied when the hashlink request omits the fields.
	DefaultUserID         string `env:"DEFAULT_USER_ID"`
	DefaultOrganizationID string `env:"DEFAULT_ORGANIZATION_ID"`

	B2C         B2CConfig
	CMS         CMSConfig
	FHIR        FHIRConfig
	Redis       RedisConfig
	Invitations InvitationConfig
}

// B2CConfig identifies the federated identity provider's discovery
// endpoint.
type B2CConfig struct {
	HostName   string `env:"B2C_HOST_NAME"`
	TenantName string `env:"B2C_TENANT_NAME"`
	PolicyName string `env:"B2C_POLICY_NAME"`
}

type CMSConfig struct {
	URL string `env:"CMS_URL"`
}

type FHIRConfig struct {
	BaseURL          string `env:"FHIR_BASE_URL"`
	IdentifierSystem string `env:"FHIR_IDENTIFIER_SYSTEM, default=http://example.com/v2-to-fhir-converter/Identifier/CS"`
}

// RedisConfig is optional; an empty Addr disables the whitelist cache.
type RedisConfig struct {
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

type InvitationConfig struct {
	BaseURL string `env:"INVITATION_BASE_URL"`
}

// Load reads configuration from environment variables using
// go-envconfig. An unset refresh secret falls back to the primary
// secret, so refresh and access tokens are then signed with the same
// key.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	if cfg.JWTRefreshSecretKey == "" {
		cfg.JWTRefreshSecretKey = cfg.JWTSecretKey
	}
	return &cfg
}

// DevMode reports whether the dev override is active. In dev mode
// token expiry is never enforced; the flag must not be set on
// production-equivalent configuration.
func (c *Config) DevMode() bool {
	return c.Env == "dev"
}
