package types

import (
	"strings"
	"time"
)

const (
	ProductionHostname = "ruralschools.tw"
	ProductionAPIURL   = "https://api.ruralschools.tw"
	DevelopmentAPIURL  = "http://localhost:3001"
)

type Config struct {
	Environment     string `envconfig:"ENVIRONMENT" default:"development"`
	ServerPort      uint   `envconfig:"SERVER_PORT" default:"8080"`
	DatabaseURL     string `envconfig:"DATABASE_URL"`
	ReadTimeoutSec  uint   `envconfig:"READ_TIMEOUT_SEC" default:"10"`
	WriteTimeoutSec uint   `envconfig:"WRITE_TIMEOUT_SEC" default:"15"`

	// Marketplace backend
	APIBaseURL           string `envconfig:"API_BASE_URL"`
	PublicHostname       string `envconfig:"PUBLIC_HOSTNAME"`
	FallbackEnabled      bool   `envconfig:"FALLBACK_ENABLED" default:"false"`
	HealthCheckTimeoutMS uint   `envconfig:"HEALTH_CHECK_TIMEOUT_MS" default:"3000"`

	// Optional signature verification of backend issued tokens
	JWKSURL string `envconfig:"JWKS_URL"`

	// Need image uploads
	S3BucketName    string `envconfig:"S3_BUCKET_NAME"`
	S3PublicBaseURL string `envconfig:"S3_PUBLIC_BASE_URL"`

	CookieName       string `envconfig:"SESSION_COOKIE_NAME" default:"schoolbridge_session"`
	SessionMaxAgeSec int    `envconfig:"SESSION_MAX_AGE_SEC" default:"604800"` // 7 days

	// openssl rand -base64 32
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`  // 32 or 64 bytes
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"` // 16, 24, or 32 bytes
}

// ResolveAPIBaseURL picks the backend base URL: explicit override, then the
// production API when served from the production hostname, then localhost.
func (c *Config) ResolveAPIBaseURL() string {
	if v := strings.TrimSpace(c.APIBaseURL); v != "" {
		return strings.TrimSuffix(v, "/")
	}

	if strings.EqualFold(strings.TrimSpace(c.PublicHostname), ProductionHostname) {
		return ProductionAPIURL
	}

	return DevelopmentAPIURL
}

func (c *Config) HealthCheckTimeout() time.Duration {
	return time.Duration(c.HealthCheckTimeoutMS) * time.Millisecond
}
