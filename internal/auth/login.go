package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"schoolbridge/internal/api"
	"schoolbridge/pkg/types"

	"github.com/sirupsen/logrus"
)

var ErrUnknownDemoRole = errors.New("unknown demo role")

type DemoRole string

const (
	DemoSchool      DemoRole = "school"
	DemoCompany     DemoRole = "company"
	DemoRuralSchool DemoRole = "rural_school"
)

// SessionRole is the dashboard role a demo persona signs in as.
func (r DemoRole) SessionRole() types.Role {
	if r == DemoCompany {
		return types.RoleCompany
	}
	return types.RoleSchool
}

type credentials struct {
	username string
	password string
}

// Publicly known demo accounts.
var demoAccounts = map[DemoRole]credentials{
	DemoSchool:      {username: "school_demo@ruralschools.tw", password: "demo1234"},
	DemoCompany:     {username: "company_demo@ruralschools.tw", password: "demo1234"},
	DemoRuralSchool: {username: "rural_school_demo@ruralschools.tw", password: "demo1234"},
}

type LoginResult struct {
	Token string
	User  *UserInfo
}

// Authenticator exchanges credentials for bearer tokens against the backend.
type Authenticator struct {
	baseURL    string
	httpClient *http.Client
	logger     logrus.FieldLogger
}

func NewAuthenticator(baseURL string, httpClient *http.Client, logger logrus.FieldLogger) *Authenticator {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Authenticator{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

func (a *Authenticator) DemoLogin(ctx context.Context, role DemoRole) (*LoginResult, error) {
	creds, ok := demoAccounts[role]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDemoRole, role)
	}

	result, err := a.login(ctx, api.DemoLoginEndpoint(), creds.username, creds.password)
	if err != nil {
		return nil, fmt.Errorf("demo login as %s failed: %w", role, err)
	}

	a.logger.WithField("role", role).Debug("demo login succeeded")

	return result, nil
}

func (a *Authenticator) RealLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	result, err := a.login(ctx, api.AuthLoginEndpoint(), email, password)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	return result, nil
}

// DemoToken satisfies api.DemoTokenSource.
func (a *Authenticator) DemoToken(ctx context.Context, role types.Role) (string, error) {
	demo := DemoSchool
	if role == types.RoleCompany {
		demo = DemoCompany
	}

	result, err := a.DemoLogin(ctx, demo)
	if err != nil {
		return "", err
	}

	return result.Token, nil
}

func (a *Authenticator) login(ctx context.Context, endpoint api.Endpoint, username, password string) (*LoginResult, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	client := api.New(api.Config{
		BaseURL:    a.baseURL,
		HTTPClient: a.httpClient,
		Logger:     a.logger,
	})

	var token types.TokenResponse
	err := client.Do(ctx, endpoint, &api.RequestOptions{Method: http.MethodPost, Form: form}, &token)
	if err != nil {
		return nil, err
	}

	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrInvalidToken)
	}

	user, err := DecodeToken(token.AccessToken)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Token: token.AccessToken, User: user}, nil
}
