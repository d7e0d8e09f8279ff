// Package config manages environment variables.
//
// It reads variables from the process environment (and an optional `.env`
// file), maps them into structured Go types and validates that required
// values are present so the service fails fast on bad configuration.
//
// Keys use the BACKEND_ prefix. A double underscore separates nesting levels:
//
//	BACKEND_SERVER__PORT        -> server.port
//	BACKEND_KEYCLOAK__BASE_URL  -> keycloak.base_url
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix   = "BACKEND_"
	serviceName = "backend-resources"
)

// Config is the root configuration object for the application.
//
// Observability is optional; defaults are injected when it is absent.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Redis         RedisConfig          `koanf:"redis" validate:"required"`
	Keycloak      KeycloakConfig       `koanf:"keycloak" validate:"required"`
	Auth          AuthConfig           `koanf:"auth"`
	Integration   IntegrationConfig    `koanf:"integration"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are expressed in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
	// RateLimit is the sustained number of requests per second allowed per
	// client IP. Zero disables rate limiting.
	RateLimit      float64 `koanf:"rate_limit" validate:"gte=0"`
	RateLimitBurst int     `koanf:"rate_limit_burst" validate:"gte=0"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
// The database only stores the audit trail; identities live in Keycloak.
type DatabaseConfig struct {
	Host            string `koanf:"host" validate:"required"`
	Port            int    `koanf:"port" validate:"required"`
	User            string `koanf:"user" validate:"required"`
	Password        string `koanf:"password" validate:"required"`
	Name            string `koanf:"name" validate:"required"`
	SSLMode         string `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
}

// RedisConfig contains Redis connection details. Address is "host:port".
type RedisConfig struct {
	Address string `koanf:"address" validate:"required"`
}

// KeycloakConfig points at the identity provider's admin API.
//
// ClientID/ClientSecret identify a confidential client whose service account
// holds the realm-management roles needed to manage users.
type KeycloakConfig struct {
	BaseURL      string        `koanf:"base_url" validate:"required,url"`
	Realm        string        `koanf:"realm" validate:"required"`
	ClientID     string        `koanf:"client_id" validate:"required"`
	ClientSecret string        `koanf:"client_secret" validate:"required"`
	Timeout      time.Duration `koanf:"timeout"`
}

// TokenURL is the realm's OpenID Connect token endpoint.
func (k KeycloakConfig) TokenURL() string {
	return k.IssuerURL() + "/protocol/openid-connect/token"
}

// IssuerURL is the realm issuer, e.g. http://localhost:8080/realms/ITM.
func (k KeycloakConfig) IssuerURL() string {
	return strings.TrimRight(k.BaseURL, "/") + "/realms/" + k.Realm
}

// AuthConfig controls bearer-token verification for incoming requests.
type AuthConfig struct {
	// Issuer defaults to the Keycloak realm issuer.
	Issuer string `koanf:"issuer"`
	// Audience, when set, must appear in the token's aud claim.
	Audience string `koanf:"audience"`
	// ClientID selects which resource_access entry contributes client roles.
	ClientID string `koanf:"client_id"`
	// RequiredRole guards every user-management endpoint.
	RequiredRole string `koanf:"required_role"`
}

// JWKSURL is where the realm publishes its signing keys.
func (a AuthConfig) JWKSURL() string {
	return a.Issuer + "/protocol/openid-connect/certs"
}

type IntegrationConfig struct {
	ResendAPIKey string `koanf:"resend_api_key"`
	EmailFrom    string `koanf:"email_from"`
}

// LoadConfig loads configuration from environment variables, validates it and
// applies defaults for optional blocks.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load initial env variables: %w", err)
	}

	mainConfig := &Config{}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	mainConfig.applyDefaults()

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}

func (c *Config) applyDefaults() {
	if c.Keycloak.Timeout <= 0 {
		c.Keycloak.Timeout = 10 * time.Second
	}

	if c.Auth.Issuer == "" {
		c.Auth.Issuer = c.Keycloak.IssuerURL()
	}
	c.Auth.Issuer = strings.TrimRight(c.Auth.Issuer, "/")
	if c.Auth.ClientID == "" {
		c.Auth.ClientID = c.Keycloak.ClientID
	}
	if c.Auth.RequiredRole == "" {
		c.Auth.RequiredRole = "MODERATOR"
	}

	if c.Integration.EmailFrom == "" {
		c.Integration.EmailFrom = "ITM Space <onboarding@resend.dev>"
	}

	if c.Observability == nil {
		c.Observability = DefaultObservabilityConfig()
	}
	c.Observability.ServiceName = serviceName
	c.Observability.Environment = c.Primary.Env
}
