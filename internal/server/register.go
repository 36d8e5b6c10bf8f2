package server

import (
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"schoolbridge/internal/session"
	"schoolbridge/pkg/types"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 8

func (s *Service) handleGetRegister(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).IsAuthenticated() {
		s.logger.Debug("user is already logged in, redirecting to dashboard")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	data := &types.RegisterPageData{
		BasePageData: flash(r),
		Role:         types.Role(r.URL.Query().Get("role")),
	}
	data.Title = "註冊"

	s.renderPage(w, r, "page.register", data)
}

func (s *Service) handlePostRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		s.logger.WithError(err).Error("failed to parse form")
		s.redirectWithError(w, r, "/register", "表單格式錯誤")
		return
	}

	req := new(types.RegisterRequest)
	if err := decoder.Decode(req, r.PostForm); err != nil {
		s.logger.WithError(err).Error("failed to decode form")
		s.internalServerError(w)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	req.Organization = strings.TrimSpace(req.Organization)

	data := &types.RegisterPageData{
		Email:        req.Email,
		Name:         req.Name,
		Organization: req.Organization,
		Role:         req.Role,
	}
	data.Title = "註冊"

	data.FieldErrors = validateRegisterInput(req)
	if len(data.FieldErrors) > 0 {
		s.logger.WithField("field_errors", data.FieldErrors).Info("validation errors during registration")

		data.Error = "請修正標示的欄位"
		s.renderPageStatus(w, r, http.StatusUnprocessableEntity, "page.register", data)
		return
	}

	if _, err := s.api.Register(ctx, req); err != nil {
		s.logger.WithError(err).Error("failed to register user")

		data.Error = "註冊失敗：" + userMessage(err, "請稍後再試")
		s.renderPageStatus(w, r, http.StatusBadGateway, "page.register", data)
		return
	}

	s.logger.WithField("role", req.Role).Info("user registered")

	s.redirectWithNotice(w, r, "/login", "註冊成功，請登入")
}

func validateRegisterInput(req *types.RegisterRequest) map[string]string {
	errs := make(map[string]string)

	switch {
	case req.Email == "":
		errs["email"] = "請輸入電子郵件"
	case !emailPattern.MatchString(req.Email):
		errs["email"] = "請輸入有效的電子郵件地址"
	}

	if req.Name == "" {
		errs["name"] = "請輸入名稱"
	}

	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		errs["password"] = "密碼長度至少需要 8 個字元"
	}

	if req.ConfirmPassword != req.Password {
		errs["confirm_password"] = "兩次輸入的密碼不一致"
	}

	if !req.Role.Valid() {
		errs["role"] = "請選擇帳號類型"
	}

	return errs
}
