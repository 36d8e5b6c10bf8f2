package server

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"schoolbridge/internal"
	"schoolbridge/internal/api"
	"schoolbridge/internal/auth"
	"schoolbridge/internal/session"
	"schoolbridge/internal/utils"
	"schoolbridge/pkg/types"

	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/sirupsen/logrus"
)

// Context key types to avoid collisions
type contextKey string

const (
	contextKeyRequestID contextKey = "request_id"
	contextKeyUser      contextKey = "user"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Service) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = utils.NanoID()
		}
		rw.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), contextKeyRequestID, requestID)
		next.ServeHTTP(rw, r.WithContext(ctx))

		s.logger.WithFields(logrus.Fields{
			"request_id":  requestID,
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rw.statusCode,
			"duration_ms": time.Since(started).Milliseconds(),
		}).Info("http request")
	})
}

// RecoverMiddleware turns a panicking handler into a 500 error page.
func (s *Service) RecoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.WithFields(logrus.Fields{
					"panic": fmt.Sprint(rec),
					"path":  r.URL.Path,
					"stack": string(debug.Stack()),
				}).Error("recovered from panic")
				s.internalServerError(w)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// SessionMiddleware loads the auth session from its cookie and forwards the
// session token to backend calls made with the request context.
func (s *Service) SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := session.Load(s.sessions.Bind(w, r))

		ctx := session.WithAuthState(r.Context(), state)
		if state.IsAuthenticated() {
			ctx = api.WithToken(ctx, state.Token())
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth redirects to /login unless the session holds a usable token.
// With a JWKS URL configured the token signature is verified as well.
func (s *Service) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := session.FromContext(r.Context())

		if !state.IsAuthenticated() {
			s.logger.Debug("no session found")
			s.setRedirectCookie(w, r.URL.RequestURI(), time.Minute*5)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		if err := s.verifyToken(r.Context(), state.Token()); err != nil {
			s.logger.WithError(err).Info("session token rejected")
			if err := state.Logout(); err != nil {
				s.logger.WithError(err).Error("failed to clear session")
			}
			s.setRedirectCookie(w, r.URL.RequestURI(), time.Minute*5)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		user, err := auth.DecodeToken(state.Token())
		if err != nil {
			s.logger.WithError(err).Debug("session token carries no readable claims")
			user = &auth.UserInfo{Role: state.Role(), IsDemo: state.IsDemo()}
		}

		ctx := context.WithValue(r.Context(), contextKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Service) verifyToken(ctx context.Context, token string) error {
	if s.jwksCache == nil || s.jwksURL == "" {
		if auth.IsTokenExpired(token, time.Now()) {
			return fmt.Errorf("token expired")
		}
		return nil
	}

	set, err := s.jwksCache.Lookup(ctx, s.jwksURL)
	if err != nil {
		return fmt.Errorf("fetch JWKS: %w", err)
	}

	if _, err := jwt.Parse([]byte(token), jwt.WithKeySet(set), jwt.WithValidate(true)); err != nil {
		return fmt.Errorf("verify JWT: %w", err)
	}

	return nil
}

// RequireRole sends users of another role to their own dashboard.
func (s *Service) RequireRole(role types.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session.FromContext(r.Context()).Role() != role {
				http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Service) StripTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		// Only strip if path is not root and has trailing slash
		if path != "/" && strings.HasSuffix(path, "/") {
			newURL := *r.URL
			newURL.Path = strings.TrimSuffix(path, "/")

			http.Redirect(w, r, newURL.String(), http.StatusMovedPermanently)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func userFromContext(ctx context.Context) *auth.UserInfo {
	user, _ := ctx.Value(contextKeyUser).(*auth.UserInfo)
	return user
}

func (s *Service) setRedirectCookie(w http.ResponseWriter, path string, age time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_REDIRECT_NAME,
		Value:    path,
		HttpOnly: true,
		Secure:   s.secureCookies(),
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   int(age.Seconds()),
	})
}

func (s *Service) clearRedirectCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_REDIRECT_NAME,
		Value:    "",
		HttpOnly: true,
		Secure:   s.secureCookies(),
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

// consumeRedirect returns the path stored before an unauthenticated redirect,
// or fallback. Only local paths are honored.
func (s *Service) consumeRedirect(w http.ResponseWriter, r *http.Request, fallback string) string {
	cookie, err := r.Cookie(internal.COOKIE_REDIRECT_NAME)
	if err != nil {
		return fallback
	}

	s.clearRedirectCookie(w)

	path := cookie.Value
	if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return fallback
	}

	return path
}

func (s *Service) secureCookies() bool {
	return s.config.Environment == "production"
}
