package server

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"schoolbridge/internal/api"
	"schoolbridge/internal/auth"
	"schoolbridge/internal/explore"
	"schoolbridge/internal/fallback"
	"schoolbridge/internal/session"
	"schoolbridge/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   []byte
}

// fakeBackend records every request and answers from a route table keyed
// by "METHOD /path".
type fakeBackend struct {
	t      *testing.T
	mu     sync.Mutex
	seen   []recordedRequest
	routes map[string]any
	srv    *httptest.Server
}

func newFakeBackend(t *testing.T, routes map[string]any) *fakeBackend {
	t.Helper()

	fb := &fakeBackend{t: t, routes: routes}
	fb.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		fb.mu.Lock()
		fb.seen = append(fb.seen, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
			Body:   body,
		})
		fb.mu.Unlock()

		resp, ok := fb.routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(fb.srv.Close)

	return fb
}

func (fb *fakeBackend) requests() []recordedRequest {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([]recordedRequest(nil), fb.seen...)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

var (
	testHashKey  = []byte("0123456789abcdef0123456789abcdef")
	testBlockKey = []byte("abcdef0123456789")
)

func newTestService(t *testing.T, baseURL string, fallbackEnabled bool) *Service {
	t.Helper()

	logger := quietLogger()
	authn := auth.NewAuthenticator(baseURL, nil, logger)
	client := api.New(api.Config{
		BaseURL:            baseURL,
		Logger:             logger,
		FallbackEnabled:    fallbackEnabled,
		HealthCheckTimeout: time.Second,
		DemoTokens:         authn,
	})

	cfg := &types.Config{Environment: "test", ServerPort: 0, ReadTimeoutSec: 5, WriteTimeoutSec: 5}
	codec := session.NewCookieCodec("sb_session", 3600, false, testHashKey, testBlockKey)

	svc, err := New(cfg, logger, client, authn, explore.NewRegistry(client, logger), nil, codec, nil, "")
	require.NoError(t, err)

	return svc
}

func unsignedToken(t *testing.T, claims map[string]any) string {
	t.Helper()

	header, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	enc := base64.RawURLEncoding
	return enc.EncodeToString(header) + "." + enc.EncodeToString(payload) + "." + enc.EncodeToString([]byte("signature"))
}

func tokenFor(t *testing.T, role types.Role) string {
	return unsignedToken(t, map[string]any{
		"sub":  "user-1",
		"role": string(role),
		"name": "測試使用者",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
}

// sessionCookie encodes a logged-in session the same way the login handlers do.
func sessionCookie(t *testing.T, svc *Service, token string, role types.Role) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	state := session.Load(svc.sessions.Bind(rec, httptest.NewRequest(http.MethodGet, "/", nil)))
	require.NoError(t, state.Login(token, role, false))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func serve(svc *Service, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rec, req)
	return rec
}

func postForm(path string, form url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func locationPath(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return loc.Path
}

func TestCreateNeedPostsOnceAndRedirects(t *testing.T) {
	backend := newFakeBackend(t, map[string]any{
		"POST /school_needs": map[string]any{"id": "need-new", "title": "需要課桌椅"},
	})
	svc := newTestService(t, backend.srv.URL, false)

	token := tokenFor(t, types.RoleSchool)
	cookie := sessionCookie(t, svc, token, types.RoleSchool)

	form := url.Values{
		"title":        {"需要課桌椅"},
		"category":     {"硬體設備"},
		"urgency":      {"medium"},
		"studentCount": {"30"},
		"location":     {"花蓮縣"},
		"sdgs":         {"4"},
	}
	rec := serve(svc, postForm("/dashboard/school/needs/new", form, cookie))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard/school", locationPath(t, rec))

	reqs := backend.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/school_needs", reqs[0].Path)
	assert.Equal(t, "Bearer "+token, reqs[0].Auth)

	var body map[string]any
	require.NoError(t, json.Unmarshal(reqs[0].Body, &body))
	assert.Equal(t, "需要課桌椅", body["title"])
	assert.Equal(t, "硬體設備", body["category"])
	assert.Equal(t, "medium", body["urgency"])
	assert.Equal(t, float64(30), body["student_count"])
	assert.Equal(t, "花蓮縣", body["location"])
	assert.Equal(t, []any{float64(4)}, body["sdgs"])
	assert.Equal(t, fallback.DefaultNeedImageURL, body["image_url"])
}

func TestCreateNeedEmptyTitleSendsNothing(t *testing.T) {
	backend := newFakeBackend(t, nil)
	svc := newTestService(t, backend.srv.URL, false)

	cookie := sessionCookie(t, svc, tokenFor(t, types.RoleSchool), types.RoleSchool)

	form := url.Values{
		"title":        {""},
		"category":     {"硬體設備"},
		"urgency":      {"medium"},
		"studentCount": {"30"},
		"location":     {"花蓮縣"},
		"sdgs":         {"4"},
	}
	rec := serve(svc, postForm("/dashboard/school/needs/new", form, cookie))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "標題為必填項")
	assert.Contains(t, rec.Body.String(), "花蓮縣")
	assert.Empty(t, backend.requests())
}

func TestCreateNeedValidatesEveryRequiredField(t *testing.T) {
	backend := newFakeBackend(t, nil)
	svc := newTestService(t, backend.srv.URL, false)

	cookie := sessionCookie(t, svc, tokenFor(t, types.RoleSchool), types.RoleSchool)

	rec := serve(svc, postForm("/dashboard/school/needs/new", url.Values{"studentCount": {"0"}}, cookie))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	for _, msg := range []string{"標題為必填項", "類別為必填項", "地點為必填項", "受益學生數必須至少為 1"} {
		assert.Contains(t, rec.Body.String(), msg)
	}
	assert.Empty(t, backend.requests())
}

func TestDashboardRequiresSession(t *testing.T) {
	backend := newFakeBackend(t, nil)
	svc := newTestService(t, backend.srv.URL, false)

	rec := serve(svc, httptest.NewRequest(http.MethodGet, "/dashboard/school", nil))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	var redirect *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "schoolbridge_redirect" {
			redirect = c
		}
	}
	require.NotNil(t, redirect)
	assert.Equal(t, "/dashboard/school", redirect.Value)
}

func TestExpiredSessionIsCleared(t *testing.T) {
	backend := newFakeBackend(t, nil)
	svc := newTestService(t, backend.srv.URL, false)

	expired := unsignedToken(t, map[string]any{"sub": "user-1", "role": "school", "exp": time.Now().Add(-time.Hour).Unix()})
	cookie := sessionCookie(t, svc, expired, types.RoleSchool)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/school", nil)
	req.AddCookie(cookie)
	rec := serve(svc, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Empty(t, backend.requests())
}

func TestRoleGateRedirectsToOwnDashboard(t *testing.T) {
	backend := newFakeBackend(t, nil)
	svc := newTestService(t, backend.srv.URL, false)

	cookie := sessionCookie(t, svc, tokenFor(t, types.RoleCompany), types.RoleCompany)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/school/needs/new", nil)
	req.AddCookie(cookie)
	rec := serve(svc, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookie)
	rec = serve(svc, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard/company", rec.Header().Get("Location"))
}

func sampleNeedsPayload() []map[string]any {
	return []map[string]any{
		{"id": "n1", "title": "Computer Lab", "category": "數位設備", "urgency": "high", "location": "台東縣", "student_count": 40},
		{"id": "n2", "title": "課後輔導志工老師", "category": "師資", "urgency": "medium", "location": "花蓮縣", "student_count": 25},
		{"id": "n3", "title": "圖書館藏書更新", "category": "圖書", "urgency": "low", "location": "屏東縣", "student_count": 60},
	}
}

func TestNeedsPageFiltersBySearch(t *testing.T) {
	backend := newFakeBackend(t, map[string]any{"GET /school_needs": sampleNeedsPayload()})
	svc := newTestService(t, backend.srv.URL, false)

	rec := serve(svc, httptest.NewRequest(http.MethodGet, "/needs?q=computer", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Computer Lab")
	assert.NotContains(t, body, "課後輔導志工老師")
	assert.NotContains(t, body, "圖書館藏書更新")
	assert.Contains(t, body, "符合條件 1 筆")
}

func TestNeedsPageShowsErrorWithRetry(t *testing.T) {
	backend := newFakeBackend(t, nil)
	svc := newTestService(t, backend.srv.URL, false)

	rec := serve(svc, httptest.NewRequest(http.MethodGet, "/needs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Not Found")
	assert.Contains(t, rec.Body.String(), "重試")
	assert.Contains(t, rec.Body.String(), "fallback-hint")
}

func TestNeedDetailUsesPathID(t *testing.T) {
	backend := newFakeBackend(t, map[string]any{"GET /school_needs/n2": sampleNeedsPayload()[1]})
	svc := newTestService(t, backend.srv.URL, false)

	rec := serve(svc, httptest.NewRequest(http.MethodGet, "/needs/n2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "課後輔導志工老師")

	reqs := backend.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/school_needs/n2", reqs[0].Path)
}

func TestEditNeedLoadsByPathID(t *testing.T) {
	backend := newFakeBackend(t, map[string]any{"GET /school_needs/n1": sampleNeedsPayload()[0]})
	svc := newTestService(t, backend.srv.URL, false)
	cookie := sessionCookie(t, svc, tokenFor(t, types.RoleSchool), types.RoleSchool)

	req := httptest.NewRequest(http.MethodGet, "/dashboard/school/needs/n1/edit", nil)
	req.AddCookie(cookie)
	rec := serve(svc, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Computer Lab")
	assert.Contains(t, body, "/dashboard/school/needs/n1/edit")
}

func TestStoriesPageFiltersBySearch(t *testing.T) {
	backend := newFakeBackend(t, map[string]any{"GET /impact_stories": []map[string]any{
		{"id": "s1", "title": "偏鄉數位教室啟用", "school_name": "太麻里國小", "company_name": "科技公司", "summary": "平板電腦進入課堂"},
		{"id": "s2", "title": "閱讀角落落成", "school_name": "光復國小", "company_name": "出版社", "summary": "新書上架"},
	}})
	svc := newTestService(t, backend.srv.URL, false)

	rec := serve(svc, httptest.NewRequest(http.MethodGet, "/stories?q=平板", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "偏鄉數位教室啟用")
	assert.NotContains(t, body, "閱讀角落落成")
	assert.NotContains(t, body, "fallback-hint")
}

func TestStoriesPageEmptyPayloadShowsError(t *testing.T) {
	backend := newFakeBackend(t, map[string]any{"GET /impact_stories": nil})
	svc := newTestService(t, backend.srv.URL, false)

	rec := serve(svc, httptest.NewRequest(http.MethodGet, "/stories", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "重試")
	assert.Contains(t, rec.Body.String(), "fallback-hint")
}

func TestOfflineServesFallbackData(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()

	svc := newTestService(t, closed.URL, true)

	rec := serve(svc, httptest.NewRequest(http.MethodGet, "/needs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "圖書館藏書更新")
	assert.Contains(t, rec.Body.String(), "banner-offline")

	rec = serve(svc, httptest.NewRequest(http.MethodGet, "/needs/need-003", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "圖書館藏書更新")

	rec = serve(svc, httptest.NewRequest(http.MethodGet, "/needs/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterValidationSendsNothing(t *testing.T) {
	backend := newFakeBackend(t, nil)
	svc := newTestService(t, backend.srv.URL, false)

	form := url.Values{
		"email":            {"not-an-email"},
		"name":             {"山海國小"},
		"password":         {"short"},
		"confirm_password": {"different"},
		"role":             {"school"},
	}
	rec := serve(svc, postForm("/register", form))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "請輸入有效的電子郵件地址")
	assert.Contains(t, body, "密碼長度至少需要 8 個字元")
	assert.Contains(t, body, "兩次輸入的密碼不一致")
	assert.Empty(t, backend.requests())
}

func TestRegisterSuccess(t *testing.T) {
	backend := newFakeBackend(t, map[string]any{
		"POST /auth/register": map[string]any{"id": "u1", "email": "school@example.tw", "role": "school"},
	})
	svc := newTestService(t, backend.srv.URL, false)

	form := url.Values{
		"email":            {"school@example.tw"},
		"name":             {"山海國小"},
		"password":         {"password123"},
		"confirm_password": {"password123"},
		"role":             {"school"},
	}
	rec := serve(svc, postForm("/register", form))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", locationPath(t, rec))

	reqs := backend.requests()
	require.Len(t, reqs, 1)

	var body map[string]any
	require.NoError(t, json.Unmarshal(reqs[0].Body, &body))
	assert.Equal(t, "school@example.tw", body["email"])
	assert.NotContains(t, body, "confirm_password")
}

func TestDemoLoginStartsSession(t *testing.T) {
	var token string
	backend := newFakeBackend(t, nil)
	token = unsignedToken(t, map[string]any{"sub": "demo-company", "role": "company", "is_demo": true})
	backend.routes = map[string]any{
		"POST /demo/auth/login": map[string]any{"access_token": token, "token_type": "bearer"},
	}
	svc := newTestService(t, backend.srv.URL, false)

	rec := serve(svc, postForm("/login/demo", url.Values{"role": {"company"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = serve(svc, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard/company", rec.Header().Get("Location"))
}

func TestDemoLoginUnknownRole(t *testing.T) {
	backend := newFakeBackend(t, nil)
	svc := newTestService(t, backend.srv.URL, false)

	rec := serve(svc, postForm("/login/demo", url.Values{"role": {"admin"}}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", locationPath(t, rec))
	assert.Empty(t, backend.requests())
}

func TestExploreGenerateWithoutCountiesFallsThrough(t *testing.T) {
	backend := newFakeBackend(t, map[string]any{
		"POST /ai/extract_parameters": map[string]any{
			"parameters":         map[string]any{"resource_type": "digital_devices"},
			"follow_up_question": "請問您關注哪些縣市？",
			"is_complete":        false,
		},
	})
	svc := newTestService(t, backend.srv.URL, false)

	cookie := sessionCookie(t, svc, tokenFor(t, types.RoleCompany), types.RoleCompany)

	rec := serve(svc, postForm("/dashboard/explore", url.Values{"message": {"生成報告"}}, cookie))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/dashboard/explore", loc.Path)
	assert.Contains(t, loc.Query().Get("notice"), "目標縣市")

	var paths []string
	for _, r := range backend.requests() {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{"/ai/extract_parameters"}, paths)
}

func TestHealthz(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:0", false)

	rec := serve(svc, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestTrailingSlashRedirect(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:0", false)

	rec := serve(svc, httptest.NewRequest(http.MethodGet, "/needs/?q=a", nil))
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/needs?q=a", rec.Header().Get("Location"))
}

func TestRecoverRendersErrorPage(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:0", false)

	handler := svc.RecoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "重新整理")
}
