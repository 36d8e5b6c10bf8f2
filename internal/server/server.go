package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"schoolbridge/internal/api"
	"schoolbridge/internal/auth"
	"schoolbridge/internal/explore"
	"schoolbridge/internal/session"
	"schoolbridge/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/sirupsen/logrus"
)

//go:embed templates static
var uiFS embed.FS
var decoder = form.NewDecoder()

// ImageStore uploads need images and returns their public URL. Remove
// ignores URLs the store did not issue.
type ImageStore interface {
	Upload(ctx context.Context, name, contentType string, body io.Reader) (string, error)
	Remove(ctx context.Context, imageURL string) error
}

type Service struct {
	logger    *logrus.Logger
	config    *types.Config
	api       *api.Client
	authn     *auth.Authenticator
	explore   *explore.Registry
	images    ImageStore
	sessions  *session.CookieCodec
	templates *template.Template

	jwksCache *jwk.Cache
	jwksURL   string

	server *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	client *api.Client,
	authn *auth.Authenticator,
	conversations *explore.Registry,
	images ImageStore,
	sessions *session.CookieCodec,
	jwkCache *jwk.Cache,
	jwksURL string,
) (*Service, error) {
	mux := flow.New()

	s := &Service{
		logger:   logger,
		config:   config,
		api:      client,
		authn:    authn,
		explore:  conversations,
		images:   images,
		sessions: sessions,

		jwksCache: jwkCache,
		jwksURL:   jwksURL,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	s.templates = templates

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.RecoverMiddleware)
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)
	r.Use(s.SessionMiddleware)

	r.HandleFunc("/", s.handleHome, http.MethodGet)
	r.HandleFunc("/needs", s.handleNeeds, http.MethodGet)
	r.HandleFunc("/needs/:id", s.handleNeedDetail, http.MethodGet)
	r.HandleFunc("/for-schools", s.handleForSchools, http.MethodGet)
	r.HandleFunc("/for-companies", s.handleForCompanies, http.MethodGet)
	r.HandleFunc("/about", s.handleAbout, http.MethodGet)
	r.HandleFunc("/stories", s.handleStories, http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	r.HandleFunc("/login", s.handleGetLogin, http.MethodGet)
	r.HandleFunc("/login", s.handlePostLogin, http.MethodPost)
	r.HandleFunc("/login/demo", s.handlePostDemoLogin, http.MethodPost)
	r.HandleFunc("/register", s.handleGetRegister, http.MethodGet)
	r.HandleFunc("/register", s.handlePostRegister, http.MethodPost)
	r.HandleFunc("/logout", s.handlePostLogout, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/dashboard", s.handleDashboard, http.MethodGet)
		r.HandleFunc("/dashboard/profile", s.handleProfile, http.MethodGet)

		r.HandleFunc("/dashboard/explorer", s.handleExplorer, http.MethodGet)
		r.HandleFunc("/dashboard/explore", s.handleGetExplore, http.MethodGet)
		r.HandleFunc("/dashboard/explore", s.handlePostExploreMessage, http.MethodPost)
		r.HandleFunc("/dashboard/explore/reset", s.handlePostExploreReset, http.MethodPost)

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireRole(types.RoleSchool))

			r.HandleFunc("/dashboard/school", s.handleSchoolDashboard, http.MethodGet)
			r.HandleFunc("/dashboard/school/needs/new", s.handleGetNewNeed, http.MethodGet)
			r.HandleFunc("/dashboard/school/needs/new", s.handlePostNewNeed, http.MethodPost)
			r.HandleFunc("/dashboard/school/needs/:id/edit", s.handleGetEditNeed, http.MethodGet)
			r.HandleFunc("/dashboard/school/needs/:id/edit", s.handlePostEditNeed, http.MethodPost)
			r.HandleFunc("/dashboard/school/needs/:id/delete", s.handleGetDeleteNeed, http.MethodGet)
			r.HandleFunc("/dashboard/school/needs/:id/delete", s.handlePostDeleteNeed, http.MethodPost)
		})

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireRole(types.RoleCompany))

			r.HandleFunc("/dashboard/company", s.handleCompanyDashboard, http.MethodGet)
			r.HandleFunc("/dashboard/company/needs/:id/sponsor", s.handleGetSponsor, http.MethodGet)
			r.HandleFunc("/dashboard/company/needs/:id/sponsor", s.handlePostSponsor, http.MethodPost)
			r.HandleFunc("/dashboard/company/donations", s.handleDonations, http.MethodGet)
		})
	})

	staticRoot, err := fs.Sub(uiFS, "static")
	if err != nil {
		s.logger.WithError(err).Fatal("failed to mount static assets")
	}
	r.Handle("/static/...", http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))), http.MethodGet)

	r.NotFound = http.HandlerFunc(s.handleNotFound)
}

func loadTemplates() (*template.Template, error) {
	t := template.New("").Funcs(templateFuncs())
	err := fs.WalkDir(uiFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		data, err := fs.ReadFile(uiFS, path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}

		if _, err := t.Parse(string(data)); err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}
