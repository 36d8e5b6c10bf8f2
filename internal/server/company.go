package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"schoolbridge/internal/filter"
	"schoolbridge/pkg/types"
)

var donationTypes = []string{"物資捐贈", "經費贊助", "志工服務", "設備捐贈"}

type CompanyDashboardPageData struct {
	types.BasePageData
	Stats       template.HTML
	Recommended template.HTML
	Needs       template.HTML
	Donations   template.HTML
}

type SponsorPageData struct {
	types.BasePageData
	Need          *types.Need
	Request       *types.SponsorRequest
	DonationTypes []string
	FieldErrors   map[string]string
}

type DonationsPageData struct {
	types.BasePageData
	Filters   filter.DonationFilter
	Statuses  []types.DonationStatus
	Companies []string
	Schools   []string
	Count     int
	Total     int
	Donations template.HTML
}

func (s *Service) handleCompanyDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats := newLoader(s, "company_dashboard_stats", s.api.CompanyDashboardStats)
	recommended := newLoader(s, "company_ai_recommended_needs", s.api.CompanyAIRecommendedNeeds)
	needs := newLoader(s, "company_needs", s.api.CompanyNeeds)
	donations := newLoader(s, "company_donations", func(ctx context.Context) ([]types.Donation, error) {
		all, err := s.api.CompanyDonations(ctx)
		if len(all) > 5 {
			all = all[:5]
		}
		return all, err
	})

	wait(stats.Start(ctx), recommended.Start(ctx), needs.Start(ctx), donations.Start(ctx))

	data := &CompanyDashboardPageData{
		BasePageData: flash(r),
		Stats:        section(s, stats.Snapshot(), "section.company-stats", r.URL.Path),
		Recommended:  section(s, recommended.Snapshot(), "section.need-cards", r.URL.Path),
		Needs:        section(s, needs.Snapshot(), "section.need-cards", r.URL.Path),
		Donations:    section(s, donations.Snapshot(), "section.donations", r.URL.Path),
	}
	data.Title = "企業儀表板"

	s.renderPage(w, r, "page.dashboard.company", data)
}

func (s *Service) handleGetSponsor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	need, err := s.api.SchoolNeed(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			s.handleNotFound(w, r)
			return
		}
		s.logger.WithError(err).WithField("need_id", id).Error("failed to load need for sponsorship")
		s.redirectWithError(w, r, "/dashboard/company", "無法載入需求："+userMessage(err, "請稍後再試"))
		return
	}

	data := &SponsorPageData{
		BasePageData:  flash(r),
		Need:          need,
		Request:       &types.SponsorRequest{DonationType: donationTypes[0]},
		DonationTypes: donationTypes,
	}
	data.Title = "贊助需求"

	s.renderPage(w, r, "page.sponsor", data)
}

func (s *Service) handlePostSponsor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	if err := r.ParseForm(); err != nil {
		s.logger.WithError(err).Error("failed to parse form")
		s.redirectWithError(w, r, fmt.Sprintf("/dashboard/company/needs/%s/sponsor", id), "表單格式錯誤")
		return
	}

	req := new(types.SponsorRequest)
	if err := decoder.Decode(req, r.PostForm); err != nil {
		s.logger.WithError(err).Error("failed to decode form")
		s.internalServerError(w)
		return
	}
	req.DonationType = strings.TrimSpace(req.DonationType)
	req.Description = strings.TrimSpace(req.Description)

	if !required(req.DonationType) {
		need, _ := s.api.SchoolNeed(ctx, id)
		data := &SponsorPageData{
			Need:          need,
			Request:       req,
			DonationTypes: donationTypes,
			FieldErrors:   map[string]string{"donation_type": "請選擇贊助方式"},
		}
		data.Title = "贊助需求"
		data.Error = "請選擇贊助方式"
		s.renderPageStatus(w, r, http.StatusUnprocessableEntity, "page.sponsor", data)
		return
	}

	donation, err := s.api.SponsorNeed(ctx, id, req)
	if err != nil {
		s.logger.WithError(err).WithField("need_id", id).Error("failed to sponsor need")
		s.redirectWithError(w, r, fmt.Sprintf("/dashboard/company/needs/%s/sponsor", id), "贊助失敗："+userMessage(err, "請稍後再試"))
		return
	}

	s.logger.WithField("need_id", id).WithField("donation_id", donation.ID).Info("need sponsored")

	s.redirectWithNotice(w, r, "/dashboard/company/donations", "感謝您的贊助！")
}

func (s *Service) handleDonations(w http.ResponseWriter, r *http.Request) {
	var filters filter.DonationFilter
	if err := decoder.Decode(&filters, r.URL.Query()); err != nil {
		s.logger.WithError(err).Debug("ignoring malformed donation filters")
	}

	snap := newLoader(s, "company_donations", s.api.CompanyDonations).Load(r.Context())

	data := &DonationsPageData{
		BasePageData: flash(r),
		Filters:      filters,
		Statuses: []types.DonationStatus{
			types.DonationStatusPending,
			types.DonationStatusInProgress,
			types.DonationStatusCompleted,
			types.DonationStatusCancelled,
		},
		Total: len(snap.Data),
	}
	data.Title = "捐贈紀錄"

	if snap.HasData {
		data.Companies = filter.Companies(snap.Data)
		data.Schools = filter.SchoolNames(snap.Data)
		snap.Data = filter.Donations(snap.Data, filters)
		data.Count = len(snap.Data)
	}

	data.Donations = section(s, snap, "section.donations", r.URL.RequestURI())

	s.renderPage(w, r, "page.donations", data)
}
