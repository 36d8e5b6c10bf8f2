package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"schoolbridge/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestDemoLogin(t *testing.T) {
	token := unsignedToken(t, map[string]any{"sub": "demo-1", "role": "school", "is_demo": true, "name": "示範學校"})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/auth/login", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, demoAccounts[DemoRuralSchool].username, r.PostForm.Get("username"))
		assert.Equal(t, demoAccounts[DemoRuralSchool].password, r.PostForm.Get("password"))

		_ = json.NewEncoder(w).Encode(types.TokenResponse{AccessToken: token, TokenType: "bearer"})
	}))
	defer srv.Close()

	authn := NewAuthenticator(srv.URL, srv.Client(), quietLogger())

	result, err := authn.DemoLogin(context.Background(), DemoRuralSchool)
	require.NoError(t, err)
	assert.Equal(t, token, result.Token)
	assert.Equal(t, "demo-1", result.User.ID)
	assert.Equal(t, types.RoleSchool, result.User.Role)
	assert.True(t, result.User.IsDemo)
	assert.Equal(t, types.RoleSchool, DemoRuralSchool.SessionRole())
}

func TestDemoLoginUnknownRole(t *testing.T) {
	authn := NewAuthenticator("http://127.0.0.1:0", nil, quietLogger())
	_, err := authn.DemoLogin(context.Background(), DemoRole("admin"))
	assert.ErrorIs(t, err, ErrUnknownDemoRole)
}

func TestRealLoginSurfacesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Incorrect email or password"}`))
	}))
	defer srv.Close()

	authn := NewAuthenticator(srv.URL, srv.Client(), quietLogger())
	_, err := authn.RealLogin(context.Background(), "a@b.tw", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect email or password")
}

func TestRealLoginRejectsUndecodableToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"nope","token_type":"bearer"}`))
	}))
	defer srv.Close()

	authn := NewAuthenticator(srv.URL, srv.Client(), quietLogger())
	_, err := authn.RealLogin(context.Background(), "a@b.tw", "pw")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDemoTokenMapsRole(t *testing.T) {
	usernames := make(chan string, 1)
	issued := unsignedToken(t, map[string]any{"sub": "c"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		usernames <- r.PostForm.Get("username")
		_ = json.NewEncoder(w).Encode(types.TokenResponse{AccessToken: issued})
	}))
	defer srv.Close()

	authn := NewAuthenticator(srv.URL, srv.Client(), quietLogger())
	token, err := authn.DemoToken(context.Background(), types.RoleCompany)
	require.NoError(t, err)
	assert.Equal(t, issued, token)
	assert.Equal(t, demoAccounts[DemoCompany].username, <-usernames)
}
