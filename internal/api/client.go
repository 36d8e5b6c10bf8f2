package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"schoolbridge/internal/fallback"
	"schoolbridge/pkg/types"

	"github.com/sirupsen/logrus"
)

const healthPath = "/health"

// DemoTokenSource mints bearer tokens for the demo personas.
type DemoTokenSource interface {
	DemoToken(ctx context.Context, role types.Role) (string, error)
}

type Config struct {
	BaseURL            string
	HTTPClient         *http.Client
	Logger             logrus.FieldLogger
	Fallback           fallback.Source
	FallbackEnabled    bool
	HealthCheckTimeout time.Duration
	DemoTokens         DemoTokenSource
}

// Client talks to the marketplace backend. When fallback is enabled it
// substitutes the offline dataset for any failed read.
type Client struct {
	baseURL         string
	httpClient      *http.Client
	logger          logrus.FieldLogger
	fallback        fallback.Source
	fallbackEnabled bool
	healthTimeout   time.Duration
	demoTokens      DemoTokenSource

	healthOnce sync.Once
	available  bool

	mu        sync.Mutex
	demoCache map[types.Role]string
}

func New(cfg Config) *Client {
	c := &Client{
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient:      cfg.HTTPClient,
		logger:          cfg.Logger,
		fallback:        cfg.Fallback,
		fallbackEnabled: cfg.FallbackEnabled,
		healthTimeout:   cfg.HealthCheckTimeout,
		demoTokens:      cfg.DemoTokens,
		demoCache:       make(map[types.Role]string),
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.logger == nil {
		c.logger = logrus.StandardLogger()
	}
	if c.fallback == nil {
		c.fallback = fallback.NewStatic()
	}
	if c.healthTimeout == 0 {
		c.healthTimeout = 3 * time.Second
	}

	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Offline reports whether reads are being served from the fallback dataset
// because the health check failed.
func (c *Client) Offline() bool {
	return c.fallbackEnabled && !c.isAvailable()
}

type RequestOptions struct {
	Method string
	// Body is encoded as JSON.
	Body any
	// Form, when set, is sent form-encoded instead of Body.
	Form url.Values
}

func (o *RequestOptions) method() string {
	if o == nil || o.Method == "" {
		return http.MethodGet
	}
	return o.Method
}

// Do performs one request and decodes the JSON response into out, which may
// be nil when the response body is not needed.
func (c *Client) Do(ctx context.Context, endpoint Endpoint, opts *RequestOptions, out any) error {
	method := opts.method()

	if !c.isAvailable() {
		return c.serveFallback(ctx, endpoint, method, ErrUnavailable, out)
	}

	body, err := c.send(ctx, endpoint, method, opts)
	if err != nil {
		if c.fallbackEnabled {
			return c.serveFallback(ctx, endpoint, method, err, out)
		}
		return err
	}

	return decode(body, out)
}

// Fetch performs a GET against a literal endpoint path and returns the raw body.
func (c *Client) Fetch(ctx context.Context, path string) (json.RawMessage, error) {
	endpoint, err := ParseEndpoint(path)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if err := c.Do(ctx, endpoint, nil, &raw); err != nil {
		return nil, err
	}

	return raw, nil
}

func (c *Client) send(ctx context.Context, endpoint Endpoint, method string, opts *RequestOptions) ([]byte, error) {
	var (
		reader      io.Reader
		contentType = "application/json"
	)

	switch {
	case opts != nil && opts.Form != nil:
		reader = strings.NewReader(opts.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case opts != nil && opts.Body != nil:
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body for %s: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint.Path(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", endpoint, err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	token, err := c.authToken(ctx, endpoint.scope(method))
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response for %s: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, NewError(endpoint.Path(), resp.StatusCode, data)
	}

	return data, nil
}

// authToken prefers the caller's session token for any protected endpoint.
// Without one, role scoped endpoints get a cached demo token for that role.
func (c *Client) authToken(ctx context.Context, scope authScope) (string, error) {
	if scope == scopePublic {
		return "", nil
	}

	if token := TokenFromContext(ctx); token != "" {
		return token, nil
	}

	role := scope.role()
	if role == "" || c.demoTokens == nil {
		return "", nil
	}

	c.mu.Lock()
	token, ok := c.demoCache[role]
	c.mu.Unlock()
	if ok {
		return token, nil
	}

	token, err := c.demoTokens.DemoToken(ctx, role)
	if err != nil {
		return "", fmt.Errorf("obtain %s demo token: %w", role, err)
	}

	c.mu.Lock()
	c.demoCache[role] = token
	c.mu.Unlock()

	c.logger.WithField("role", role).Debug("cached demo token")

	return token, nil
}

// isAvailable checks the backend once. With fallback disabled the backend
// is assumed reachable and never checked.
func (c *Client) isAvailable() bool {
	if !c.fallbackEnabled {
		return true
	}

	c.healthOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.healthTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
		if err != nil {
			c.logger.WithError(err).Warn("failed to build health check, using fallback data")
			return
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.WithError(err).Warn("api health check failed, using fallback data")
			return
		}
		resp.Body.Close()

		c.available = resp.StatusCode < http.StatusInternalServerError
		if !c.available {
			c.logger.WithField("status", resp.StatusCode).Warn("api health check unhealthy, using fallback data")
		}
	})

	return c.available
}

// serveFallback substitutes offline data for reads. Writes and endpoints
// without a registered slice fail with ErrNoFallback wrapping cause.
func (c *Client) serveFallback(ctx context.Context, endpoint Endpoint, method string, cause error, out any) error {
	key, ok := endpoint.fallbackKey()
	if !ok || method != http.MethodGet {
		return fmt.Errorf("%w: %s: %w", ErrNoFallback, endpoint, cause)
	}

	var (
		raw json.RawMessage
		err error
	)
	if endpoint.Kind == KindSchoolNeed {
		raw, err = fallback.FindNeed(ctx, c.fallback, endpoint.ID)
	} else {
		raw, err = c.fallback.Lookup(ctx, key)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrNoFallback, endpoint, err)
	}

	c.logger.WithError(cause).WithField("endpoint", endpoint.Path()).Warn("serving fallback data")

	return decode(raw, out)
}

func decode(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], body...)
		return nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
