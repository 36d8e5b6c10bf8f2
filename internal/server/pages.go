package server

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"schoolbridge/internal/api"
	"schoolbridge/internal/fallback"
	"schoolbridge/internal/filter"
	"schoolbridge/internal/resource"
	"schoolbridge/internal/session"
	"schoolbridge/pkg/types"
)

type HomePageData struct {
	types.BasePageData
	Stats    template.HTML
	Needs    template.HTML
	Projects template.HTML
	Stories  template.HTML
}

type NeedsPageData struct {
	types.BasePageData
	Filters    filter.NeedFilter
	Categories []string
	Locations  []string
	Urgencies  []types.Urgency
	Count      int
	Total      int
	Needs      template.HTML
}

type NeedDetailPageData struct {
	types.BasePageData
	Need       *types.Need
	Content    template.HTML
	CanSponsor bool
}

type InfoPageData struct {
	types.BasePageData
	Stats template.HTML
	Needs template.HTML
}

type StoriesPageData struct {
	types.BasePageData
	Query   string
	Stories template.HTML
}

// newLoader wraps fetch in a resource loader that logs failures.
func newLoader[T any](s *Service, name string, fetch resource.Fetcher[T]) *resource.Loader[T] {
	return resource.New(fetch, resource.OnError[T](func(err error) {
		s.logger.WithError(err).WithField("resource", name).Warn("failed to load resource")
	}))
}

func wait(chans ...<-chan struct{}) {
	for _, ch := range chans {
		<-ch
	}
}

func (s *Service) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats := newLoader(s, "platform_stats", s.api.PlatformStats)
	needs := newLoader(s, "school_needs", func(ctx context.Context) ([]types.Need, error) {
		all, err := s.api.SchoolNeeds(ctx)
		if len(all) > 3 {
			all = all[:3]
		}
		return all, err
	})
	projects := newLoader(s, "recent_projects", resource.ForEndpoint[[]types.Project](s.api, "/recent_projects"))
	stories := newLoader(s, "impact_stories", resource.ForEndpoint[[]types.ImpactStory](s.api, "/impact_stories"))

	wait(stats.Start(ctx), needs.Start(ctx), projects.Start(ctx), stories.Start(ctx))

	data := &HomePageData{
		BasePageData: flash(r),
		Stats:        section(s, stats.Snapshot(), "section.platform-stats", "/"),
		Needs:        section(s, needs.Snapshot(), "section.need-cards", "/"),
		Projects:     section(s, projects.Snapshot(), "section.projects", "/"),
		Stories:      section(s, stories.Snapshot(), "section.stories", "/"),
	}
	data.Title = "偏鄉學校資源媒合平台"

	s.renderPage(w, r, "page.home", data)
}

func (s *Service) handleNeeds(w http.ResponseWriter, r *http.Request) {
	var filters filter.NeedFilter
	if err := decoder.Decode(&filters, r.URL.Query()); err != nil {
		s.logger.WithError(err).Debug("ignoring malformed need filters")
	}

	needs := newLoader(s, "school_needs", s.api.SchoolNeeds)
	snap := needs.Load(r.Context())

	data := &NeedsPageData{
		BasePageData: flash(r),
		Filters:      filters,
		Urgencies:    []types.Urgency{types.UrgencyHigh, types.UrgencyMedium, types.UrgencyLow},
		Total:        len(snap.Data),
	}
	data.Title = "瀏覽需求"

	if snap.HasData {
		data.Categories = filter.Categories(snap.Data)
		data.Locations = filter.Locations(snap.Data)
		needs.Update(func(all []types.Need) []types.Need {
			return filter.Needs(all, filters)
		})
		snap = needs.Snapshot()
		data.Count = len(snap.Data)
	}

	data.Needs = section(s, snap, "section.need-cards", r.URL.RequestURI())

	s.renderPage(w, r, "page.needs", data)
}

func (s *Service) handleNeedDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	snap := newLoader(s, "school_need", func(ctx context.Context) (*types.Need, error) {
		return s.api.SchoolNeed(ctx, id)
	}).Load(r.Context())

	if isNotFound(snap.Err) {
		s.handleNotFound(w, r)
		return
	}

	state := session.FromContext(r.Context())
	data := &NeedDetailPageData{
		BasePageData: flash(r),
		Need:         snap.Data,
		Content:      section(s, snap, "section.need-detail", r.URL.Path),
		CanSponsor:   state.IsAuthenticated() && state.Role() == types.RoleCompany,
	}
	data.Title = "需求詳情"
	if snap.Data != nil {
		data.Title = snap.Data.Title
	}

	s.renderPage(w, r, "page.need-detail", data)
}

func (s *Service) handleForSchools(w http.ResponseWriter, r *http.Request) {
	stats := newLoader(s, "platform_stats", s.api.PlatformStats).Load(r.Context())

	data := &InfoPageData{
		BasePageData: flash(r),
		Stats:        section(s, stats, "section.platform-stats", r.URL.Path),
	}
	data.Title = "學校專區"

	s.renderPage(w, r, "page.for-schools", data)
}

func (s *Service) handleForCompanies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats := newLoader(s, "platform_stats", s.api.PlatformStats)
	needs := newLoader(s, "ai_recommended_needs", s.api.AIRecommendedNeeds)
	wait(stats.Start(ctx), needs.Start(ctx))

	data := &InfoPageData{
		BasePageData: flash(r),
		Stats:        section(s, stats.Snapshot(), "section.platform-stats", r.URL.Path),
		Needs:        section(s, needs.Snapshot(), "section.need-cards", r.URL.Path),
	}
	data.Title = "企業專區"

	s.renderPage(w, r, "page.for-companies", data)
}

func (s *Service) handleAbout(w http.ResponseWriter, r *http.Request) {
	stats := newLoader(s, "platform_stats", s.api.PlatformStats).Load(r.Context())

	data := &InfoPageData{
		BasePageData: flash(r),
		Stats:        section(s, stats, "section.platform-stats", r.URL.Path),
	}
	data.Title = "關於我們"

	s.renderPage(w, r, "page.about", data)
}

func (s *Service) handleStories(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	stories := newLoader(s, "impact_stories", resource.ForEndpoint[[]types.ImpactStory](s.api, "/impact_stories"))
	snap := stories.Load(r.Context())
	if snap.HasData {
		stories.Update(func(all []types.ImpactStory) []types.ImpactStory {
			return filter.Stories(all, query)
		})
		snap = stories.Snapshot()
	}

	data := &StoriesPageData{
		BasePageData: flash(r),
		Query:        query,
		Stories:      section(s, snap, "section.stories", r.URL.RequestURI()),
	}
	data.Title = "影響力故事"

	s.renderPage(w, r, "page.stories", data)
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func isNotFound(err error) bool {
	return errors.Is(err, fallback.ErrNeedNotFound) || api.StatusCode(err) == http.StatusNotFound
}
