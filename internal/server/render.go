package server

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"schoolbridge/internal/filter"
	"schoolbridge/internal/resource"
	"schoolbridge/internal/session"
	"schoolbridge/pkg/types"
)

func (s *Service) renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) error {
	return s.renderTemplateStatus(w, r, http.StatusOK, templateName, data)
}

func (s *Service) renderTemplateStatus(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) error {
	state := session.FromContext(r.Context())

	if setter, ok := data.(types.NavbarDataSetter); ok {
		nav := types.NavbarData{
			IsAuthenticated: state.IsAuthenticated(),
			Role:            state.Role(),
			RoleLabel:       state.Role().Label(),
			IsDemo:          state.IsDemo(),
			Offline:         s.api.Offline(),
			CurrentPath:     r.URL.Path,
		}
		if user := userFromContext(r.Context()); user != nil {
			nav.UserName = user.Name
		}
		setter.SetNavbarData(nav)
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func (s *Service) renderPage(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	s.renderPageStatus(w, r, http.StatusOK, templateName, data)
}

func (s *Service) renderPageStatus(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) {
	if err := s.renderTemplateStatus(w, r, status, templateName, data); err != nil {
		s.logger.WithError(err).WithField("template", templateName).Error("failed to render page")
		s.internalServerError(w)
	}
}

// section renders one fetched block of a page through the named partial,
// with the shared loading, empty and error presentations.
func section[T any](s *Service, snap resource.Snapshot[T], partial, retryURL string) template.HTML {
	return resource.Render(snap, resource.Slots[T]{
		RetryURL: retryURL,
		Ready: func(data T) (template.HTML, error) {
			var buf bytes.Buffer
			if err := s.templates.ExecuteTemplate(&buf, partial, data); err != nil {
				s.logger.WithError(err).WithField("template", partial).Error("failed to render section")
				return "", fmt.Errorf("無法顯示此區塊")
			}
			return template.HTML(buf.String()), nil
		},
	})
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"urgencyLabel": urgencyLabel,
		"urgencyClass": func(u types.Urgency) string {
			return "urgency-" + string(u)
		},
		"statusLabel": func(s types.DonationStatus) string {
			return s.Label()
		},
		"date": func(t any) string {
			switch v := t.(type) {
			case time.Time:
				if v.IsZero() {
					return ""
				}
				return v.Format("2006-01-02")
			case *time.Time:
				if v == nil {
					return ""
				}
				return v.Format("2006-01-02")
			case string:
				return v
			}
			return ""
		},
		"sdgs": func(goals []int) string {
			parts := make([]string, len(goals))
			for i, g := range goals {
				parts[i] = fmt.Sprintf("SDG %d", g)
			}
			return strings.Join(parts, "、")
		},
		"cell": func(v any) string {
			switch t := v.(type) {
			case nil:
				return "—"
			case float64:
				if t == float64(int64(t)) {
					return fmt.Sprintf("%d", int64(t))
				}
				return fmt.Sprintf("%.2f", t)
			case bool:
				if t {
					return "是"
				}
				return "否"
			}
			return fmt.Sprint(v)
		},
		"sortLink": func(base string, state filter.SortState, column string) string {
			next := state.Toggle(column)
			v := url.Values{}
			v.Set("sort", next.Column)
			v.Set("dir", string(next.Direction))
			return base + "&" + v.Encode()
		},
		"sortMark": func(state filter.SortState, column string) string {
			if state.Column != column {
				return ""
			}
			if state.Direction == filter.Descending {
				return "▼"
			}
			return "▲"
		},
		"same": func(a, b any) bool { return fmt.Sprint(a) == fmt.Sprint(b) },
	}
}

func urgencyLabel(u types.Urgency) string {
	switch u {
	case types.UrgencyHigh:
		return "緊急"
	case types.UrgencyMedium:
		return "中等"
	case types.UrgencyLow:
		return "一般"
	}
	return string(u)
}

const errorPage = `<!doctype html>
<html lang="zh-Hant"><head><meta charset="utf-8"><title>發生錯誤</title><link rel="stylesheet" href="/static/css/app.css"></head>
<body><main class="container error-boundary"><h1>發生錯誤</h1><p>頁面發生預期外的錯誤，請稍後再試。</p><a class="btn btn-primary" href="">重新整理</a> <a class="btn btn-secondary" href="/">回到首頁</a></main></body></html>`

func (s *Service) internalServerError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(errorPage))
}

func (s *Service) handleNotFound(w http.ResponseWriter, r *http.Request) {
	data := &types.BasePageData{Title: "找不到頁面"}
	s.renderPageStatus(w, r, http.StatusNotFound, "page.not-found", data)
}

func (s *Service) redirectWithNotice(w http.ResponseWriter, r *http.Request, path, notice string) {
	v := url.Values{}
	v.Set("notice", notice)
	http.Redirect(w, r, path+"?"+v.Encode(), http.StatusSeeOther)
}

func (s *Service) redirectWithError(w http.ResponseWriter, r *http.Request, path, msg string) {
	v := url.Values{}
	v.Set("error", msg)
	http.Redirect(w, r, path+"?"+v.Encode(), http.StatusSeeOther)
}

func flash(r *http.Request) types.BasePageData {
	q := r.URL.Query()
	return types.BasePageData{
		Notice: q.Get("notice"),
		Error:  q.Get("error"),
	}
}

func required(v string) bool {
	return strings.TrimSpace(v) != ""
}
