package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"schoolbridge/internal/fallback"
	"schoolbridge/pkg/types"
)

var ErrUnknownEndpoint = errors.New("unknown endpoint")

type Kind int

const (
	KindSchoolNeeds Kind = iota + 1
	KindSchoolNeed
	KindCompanyNeeds
	KindCompanyDashboardStats
	KindSchoolDashboardStats
	KindPlatformStats
	KindAIRecommendedNeeds
	KindCompanyAIRecommendedNeeds
	KindSponsorNeed
	KindRecentProjects
	KindImpactStories
	KindMyNeeds
	KindCompanyDonations
	KindRecentActivity
	KindAuthLogin
	KindAuthRegister
	KindAuthLogout
	KindAuthProfile
	KindAuthMe
	KindSchools
	KindFarawaySchools
	KindEducationStatistics
	KindConnectedDevices
	KindVolunteerTeams
	KindDataStatistics
	KindExtractParameters
	KindAnalyze
	KindDemoLogin
)

// Endpoint is one logical backend resource. ID is set for the item
// endpoints, Query for the school search.
type Endpoint struct {
	Kind  Kind
	ID    string
	Query string
}

func SchoolNeedsEndpoint() Endpoint         { return Endpoint{Kind: KindSchoolNeeds} }
func SchoolNeedEndpoint(id string) Endpoint { return Endpoint{Kind: KindSchoolNeed, ID: id} }
func SponsorNeedEndpoint(id string) Endpoint {
	return Endpoint{Kind: KindSponsorNeed, ID: id}
}
func SchoolsEndpoint(query string) Endpoint { return Endpoint{Kind: KindSchools, Query: query} }
func AuthLoginEndpoint() Endpoint           { return Endpoint{Kind: KindAuthLogin} }
func DemoLoginEndpoint() Endpoint           { return Endpoint{Kind: KindDemoLogin} }

func (e Endpoint) String() string {
	return e.Path()
}

// Path is the request path relative to the backend base URL.
func (e Endpoint) Path() string {
	switch e.Kind {
	case KindSchoolNeeds:
		return "/school_needs"
	case KindSchoolNeed:
		return "/school_needs/" + url.PathEscape(e.ID)
	case KindCompanyNeeds:
		return "/company_needs"
	case KindCompanyDashboardStats:
		return "/company_dashboard_stats"
	case KindSchoolDashboardStats:
		return "/school_dashboard_stats"
	case KindPlatformStats:
		return "/platform_stats"
	case KindAIRecommendedNeeds:
		return "/ai_recommended_needs"
	case KindCompanyAIRecommendedNeeds:
		return "/company_ai_recommended_needs"
	case KindSponsorNeed:
		return "/sponsor_need/" + url.PathEscape(e.ID)
	case KindRecentProjects:
		return "/recent_projects"
	case KindImpactStories:
		return "/impact_stories"
	case KindMyNeeds:
		return "/my_needs"
	case KindCompanyDonations:
		return "/company_donations"
	case KindRecentActivity:
		return "/recent_activity"
	case KindAuthLogin:
		return "/auth/login"
	case KindAuthRegister:
		return "/auth/register"
	case KindAuthLogout:
		return "/auth/logout"
	case KindAuthProfile:
		return "/auth/profile"
	case KindAuthMe:
		return "/auth/users/me"
	case KindSchools:
		return "/schools?" + url.Values{"query": []string{e.Query}}.Encode()
	case KindFarawaySchools:
		return "/data/faraway-schools"
	case KindEducationStatistics:
		return "/data/education-statistics"
	case KindConnectedDevices:
		return "/data/connected-devices"
	case KindVolunteerTeams:
		return "/data/volunteer-teams"
	case KindDataStatistics:
		return "/data/statistics"
	case KindExtractParameters:
		return "/ai/extract_parameters"
	case KindAnalyze:
		return "/ai/analyze"
	case KindDemoLogin:
		return "/demo/auth/login"
	default:
		return ""
	}
}

type authScope int

const (
	scopePublic authScope = iota
	scopeCommon
	scopeSchool
	scopeCompany
)

func (s authScope) role() types.Role {
	switch s {
	case scopeSchool:
		return types.RoleSchool
	case scopeCompany:
		return types.RoleCompany
	default:
		return ""
	}
}

// scope decides which bearer token, if any, a request carries.
func (e Endpoint) scope(method string) authScope {
	switch e.Kind {
	case KindSchoolNeeds, KindSchoolNeed:
		if method == http.MethodGet {
			return scopeCommon
		}
		return scopeSchool
	case KindSchoolDashboardStats, KindMyNeeds:
		return scopeSchool
	case KindCompanyNeeds, KindCompanyDashboardStats, KindCompanyAIRecommendedNeeds,
		KindSponsorNeed, KindCompanyDonations:
		return scopeCompany
	case KindAIRecommendedNeeds, KindRecentActivity, KindAuthLogout, KindAuthProfile, KindAuthMe,
		KindFarawaySchools, KindEducationStatistics, KindConnectedDevices, KindVolunteerTeams,
		KindDataStatistics, KindExtractParameters, KindAnalyze:
		return scopeCommon
	case KindPlatformStats, KindRecentProjects, KindImpactStories, KindAuthLogin, KindAuthRegister,
		KindSchools, KindDemoLogin:
		return scopePublic
	default:
		return scopePublic
	}
}

// fallbackKey maps an endpoint to its offline dataset slice. Item lookups
// on KindSchoolNeed are served by scanning the needs slice.
func (e Endpoint) fallbackKey() (fallback.Key, bool) {
	switch e.Kind {
	case KindSchoolNeeds, KindSchoolNeed:
		return fallback.KeySchoolNeeds, true
	case KindCompanyNeeds:
		return fallback.KeyCompanyNeeds, true
	case KindCompanyDashboardStats:
		return fallback.KeyCompanyDashboardStats, true
	case KindSchoolDashboardStats:
		return fallback.KeySchoolDashboardStats, true
	case KindPlatformStats:
		return fallback.KeyPlatformStats, true
	case KindAIRecommendedNeeds:
		return fallback.KeyAIRecommendedNeeds, true
	case KindCompanyAIRecommendedNeeds:
		return fallback.KeyCompanyAIRecommendedNeeds, true
	case KindRecentProjects:
		return fallback.KeyRecentProjects, true
	case KindImpactStories:
		return fallback.KeyImpactStories, true
	case KindMyNeeds:
		return fallback.KeyMyNeeds, true
	case KindCompanyDonations:
		return fallback.KeyCompanyDonations, true
	case KindRecentActivity:
		return fallback.KeyRecentActivity, true
	case KindSponsorNeed, KindAuthLogin, KindAuthRegister, KindAuthLogout, KindAuthProfile, KindAuthMe,
		KindSchools, KindFarawaySchools, KindEducationStatistics, KindConnectedDevices, KindVolunteerTeams,
		KindDataStatistics, KindExtractParameters, KindAnalyze, KindDemoLogin:
		return "", false
	default:
		return "", false
	}
}

var fixedEndpoints = map[string]Kind{
	"/school_needs":                 KindSchoolNeeds,
	"/company_needs":                KindCompanyNeeds,
	"/company_dashboard_stats":      KindCompanyDashboardStats,
	"/school_dashboard_stats":       KindSchoolDashboardStats,
	"/platform_stats":               KindPlatformStats,
	"/ai_recommended_needs":         KindAIRecommendedNeeds,
	"/company_ai_recommended_needs": KindCompanyAIRecommendedNeeds,
	"/recent_projects":              KindRecentProjects,
	"/impact_stories":               KindImpactStories,
	"/my_needs":                     KindMyNeeds,
	"/company_donations":            KindCompanyDonations,
	"/recent_activity":              KindRecentActivity,
	"/auth/login":                   KindAuthLogin,
	"/auth/register":                KindAuthRegister,
	"/auth/logout":                  KindAuthLogout,
	"/auth/profile":                 KindAuthProfile,
	"/auth/users/me":                KindAuthMe,
	"/data/faraway-schools":         KindFarawaySchools,
	"/data/education-statistics":    KindEducationStatistics,
	"/data/connected-devices":       KindConnectedDevices,
	"/data/volunteer-teams":         KindVolunteerTeams,
	"/data/statistics":              KindDataStatistics,
	"/ai/extract_parameters":        KindExtractParameters,
	"/ai/analyze":                   KindAnalyze,
	"/demo/auth/login":              KindDemoLogin,
}

// ParseEndpoint maps a literal request path onto an Endpoint.
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %s: %w", ErrUnknownEndpoint, raw, err)
	}

	path := strings.TrimSuffix(u.Path, "/")

	if kind, ok := fixedEndpoints[path]; ok {
		return Endpoint{Kind: kind}, nil
	}

	if path == "/schools" {
		return SchoolsEndpoint(u.Query().Get("query")), nil
	}

	for prefix, kind := range map[string]Kind{"/school_needs/": KindSchoolNeed, "/sponsor_need/": KindSponsorNeed} {
		id, ok := strings.CutPrefix(path, prefix)
		if ok && id != "" && !strings.Contains(id, "/") {
			return Endpoint{Kind: kind, ID: id}, nil
		}
	}

	return Endpoint{}, fmt.Errorf("%w: %s", ErrUnknownEndpoint, raw)
}

// Datasets lists the data explorer collections by their URL name.
var Datasets = map[string]Kind{
	"faraway-schools":      KindFarawaySchools,
	"education-statistics": KindEducationStatistics,
	"connected-devices":    KindConnectedDevices,
	"volunteer-teams":      KindVolunteerTeams,
}

func DatasetEndpoint(name string) (Endpoint, error) {
	kind, ok := Datasets[name]
	if !ok {
		return Endpoint{}, fmt.Errorf("%w: dataset %s", ErrUnknownEndpoint, name)
	}
	return Endpoint{Kind: kind}, nil
}

// SnapshotEndpoints maps every fallback key to the list endpoint that
// produces it.
func SnapshotEndpoints() map[fallback.Key]Endpoint {
	out := make(map[fallback.Key]Endpoint)
	for kind := KindSchoolNeeds; kind <= KindDemoLogin; kind++ {
		if kind == KindSchoolNeed {
			continue
		}

		endpoint := Endpoint{Kind: kind}
		if key, ok := endpoint.fallbackKey(); ok {
			out[key] = endpoint
		}
	}
	return out
}
