package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"schoolbridge/internal/api"
	"schoolbridge/internal/auth"
	"schoolbridge/internal/fallback"
	"schoolbridge/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/gorilla/securecookie"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func loadConfig(cCtx *cli.Context) (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process(cCtx.String("env-prefix"), c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if c.ServerPort == 0 {
		c.ServerPort = 8080
	}

	if c.ReadTimeoutSec == 0 {
		c.ReadTimeoutSec = 10
	}

	if c.WriteTimeoutSec == 0 {
		c.WriteTimeoutSec = 15
	}

	if c.HealthCheckTimeoutMS == 0 {
		c.HealthCheckTimeoutMS = 3000
	}

	return c, nil
}

func requireDatabase(c *types.Config) error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("set DATABASE_URL")
	}
	return nil
}

func loadAWSConfig(ctx context.Context) (aws.Config, error) {
	config, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load aws config: %w", err)
	}

	return config, nil
}

// cookieKeys decodes the session cookie keys. Outside production missing
// keys are generated, which invalidates sessions on every restart.
func cookieKeys(c *types.Config, logger logrus.FieldLogger) (hashKey, blockKey []byte, err error) {
	if c.CookieHashKey == "" || c.CookieBlockKey == "" {
		if c.Environment == "production" {
			return nil, nil, fmt.Errorf("set COOKIE_HASH_KEY and COOKIE_BLOCK_KEY")
		}

		logger.Warn("cookie keys not configured, generating ephemeral keys")
		return securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(16), nil
	}

	hashKey, err = base64.StdEncoding.DecodeString(c.CookieHashKey)
	if err != nil {
		return nil, nil, fmt.Errorf("decode COOKIE_HASH_KEY: %w", err)
	}

	blockKey, err = base64.StdEncoding.DecodeString(c.CookieBlockKey)
	if err != nil {
		return nil, nil, fmt.Errorf("decode COOKIE_BLOCK_KEY: %w", err)
	}

	return hashKey, blockKey, nil
}

// newBackend builds the authenticator and API client shared by every command.
func newBackend(c *types.Config, logger logrus.FieldLogger, src fallback.Source) (*auth.Authenticator, *api.Client) {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	baseURL := c.ResolveAPIBaseURL()

	authn := auth.NewAuthenticator(baseURL, httpClient, logger)
	client := api.New(api.Config{
		BaseURL:            baseURL,
		HTTPClient:         httpClient,
		Logger:             logger,
		Fallback:           src,
		FallbackEnabled:    c.FallbackEnabled,
		HealthCheckTimeout: c.HealthCheckTimeout(),
		DemoTokens:         authn,
	})

	return authn, client
}
