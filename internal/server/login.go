package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"schoolbridge/internal"
	"schoolbridge/internal/api"
	"schoolbridge/internal/auth"
	"schoolbridge/internal/session"
	"schoolbridge/pkg/types"
)

func (s *Service) handleGetLogin(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).IsAuthenticated() {
		s.logger.Debug("user is already logged in, redirecting to dashboard")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	data := &types.LoginPageData{BasePageData: flash(r)}
	data.Title = "登入"

	s.renderPage(w, r, "page.login", data)
}

func (s *Service) handlePostLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	data := &types.LoginPageData{Email: email}
	data.Title = "登入"

	if !required(email) || !required(password) {
		data.Error = "請輸入電子郵件與密碼"
		s.renderPageStatus(w, r, http.StatusUnprocessableEntity, "page.login", data)
		return
	}

	result, err := s.authn.RealLogin(ctx, email, password)
	if err != nil {
		s.logger.WithError(err).Info("login failed")
		data.Error = "登入失敗：" + userMessage(err, "帳號或密碼錯誤")
		s.renderPageStatus(w, r, http.StatusUnauthorized, "page.login", data)
		return
	}

	if !result.User.Role.Valid() {
		s.logger.WithField("role", result.User.Role).Warn("login token carries an unsupported role")
		data.Error = "登入失敗：不支援的帳號角色"
		s.renderPageStatus(w, r, http.StatusForbidden, "page.login", data)
		return
	}

	if err := s.startSession(ctx, result.Token, result.User.Role, false); err != nil {
		s.logger.WithError(err).Error("failed to persist session")
		s.internalServerError(w)
		return
	}

	http.Redirect(w, r, s.consumeRedirect(w, r, "/dashboard"), http.StatusSeeOther)
}

func (s *Service) handlePostDemoLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	role := auth.DemoRole(r.FormValue("role"))

	result, err := s.authn.DemoLogin(ctx, role)
	if err != nil {
		s.logger.WithError(err).WithField("role", role).Warn("demo login failed")
		msg := "示範帳號登入失敗，請稍後再試"
		if errors.Is(err, auth.ErrUnknownDemoRole) {
			msg = "未知的示範角色"
		}
		s.redirectWithError(w, r, "/login", msg)
		return
	}

	if err := s.startSession(ctx, result.Token, role.SessionRole(), true); err != nil {
		s.logger.WithError(err).Error("failed to persist demo session")
		s.internalServerError(w)
		return
	}

	http.Redirect(w, r, s.consumeRedirect(w, r, "/dashboard"), http.StatusSeeOther)
}

func (s *Service) handlePostLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := session.FromContext(ctx)

	if state.IsAuthenticated() && !state.IsDemo() {
		if err := s.api.Logout(ctx); err != nil {
			s.logger.WithError(err).Info("backend logout failed, clearing local session anyway")
		}
	}

	if err := state.Logout(); err != nil {
		s.logger.WithError(err).Error("failed to clear session")
	}

	if cookie, err := r.Cookie(internal.COOKIE_CONVERSATION_NAME); err == nil {
		s.explore.Delete(cookie.Value)
		s.clearConversationCookie(w)
	}

	s.redirectWithNotice(w, r, "/", "已登出")
}

func (s *Service) startSession(ctx context.Context, token string, role types.Role, demo bool) error {
	state := session.FromContext(ctx)
	if err := state.Login(token, role, demo); err != nil {
		return err
	}

	s.logger.WithField("role", role).WithField("demo", demo).Info("user logged in")
	return nil
}

// userMessage extracts the backend's message from err, or returns def.
func userMessage(err error, def string) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return def
}
