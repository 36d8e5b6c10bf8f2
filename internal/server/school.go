package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"schoolbridge/internal/fallback"
	"schoolbridge/internal/session"
	"schoolbridge/internal/utils"
	"schoolbridge/pkg/types"

	"github.com/go-playground/form/v4"
)

const maxImageUpload = 5 << 20

var needCategories = []string{"硬體設備", "數位設備", "教學資源", "圖書", "師資", "體育器材", "其他"}

type SchoolDashboardPageData struct {
	types.BasePageData
	Stats    template.HTML
	Needs    template.HTML
	Activity template.HTML
}

type DeleteNeedPageData struct {
	types.BasePageData
	Need *types.Need
}

func (s *Service) handleDashboard(w http.ResponseWriter, r *http.Request) {
	switch session.FromContext(r.Context()).Role() {
	case types.RoleCompany:
		http.Redirect(w, r, "/dashboard/company", http.StatusSeeOther)
	default:
		http.Redirect(w, r, "/dashboard/school", http.StatusSeeOther)
	}
}

func (s *Service) handleSchoolDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats := newLoader(s, "school_dashboard_stats", s.api.SchoolDashboardStats)
	needs := newLoader(s, "my_needs", s.api.MyNeeds)
	activity := newLoader(s, "recent_activity", s.api.RecentActivity)

	wait(stats.Start(ctx), needs.Start(ctx), activity.Start(ctx))

	data := &SchoolDashboardPageData{
		BasePageData: flash(r),
		Stats:        section(s, stats.Snapshot(), "section.school-stats", r.URL.Path),
		Needs:        section(s, needs.Snapshot(), "section.my-needs", r.URL.Path),
		Activity:     section(s, activity.Snapshot(), "section.activity", r.URL.Path),
	}
	data.Title = "學校儀表板"

	s.renderPage(w, r, "page.dashboard.school", data)
}

func newNeedFormData(input *types.NeedInput) *types.NeedFormPageData {
	sdgs := make([]int, 17)
	for i := range sdgs {
		sdgs[i] = i + 1
	}

	return &types.NeedFormPageData{
		Input:       input,
		FieldErrors: make(map[string]string),
		Categories:  needCategories,
		Urgencies:   []types.Urgency{types.UrgencyHigh, types.UrgencyMedium, types.UrgencyLow},
		SDGOptions:  sdgs,
	}
}

func (s *Service) handleGetNewNeed(w http.ResponseWriter, r *http.Request) {
	data := newNeedFormData(&types.NeedInput{Urgency: types.UrgencyMedium})
	data.BasePageData = flash(r)
	data.Title = "新增需求"
	data.Action = "/dashboard/school/needs/new"

	s.renderPage(w, r, "page.need-form", data)
}

func (s *Service) handlePostNewNeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	input, fieldErrors, err := parseNeedForm(r)
	if err != nil {
		s.logger.WithError(err).Error("failed to parse need form")
		s.redirectWithError(w, r, "/dashboard/school/needs/new", "表單格式錯誤")
		return
	}

	data := newNeedFormData(input)
	data.Title = "新增需求"
	data.Action = "/dashboard/school/needs/new"

	if len(fieldErrors) > 0 {
		s.logger.WithField("field_errors", fieldErrors).Info("validation errors creating need")

		data.FieldErrors = fieldErrors
		data.Error = firstError(fieldErrors)
		s.renderPageStatus(w, r, http.StatusUnprocessableEntity, "page.need-form", data)
		return
	}

	if err := s.attachImage(ctx, r, input); err != nil {
		s.logger.WithError(err).Error("failed to upload need image")
		data.Error = "圖片上傳失敗，請稍後再試"
		s.renderPageStatus(w, r, http.StatusBadGateway, "page.need-form", data)
		return
	}

	need, err := s.api.CreateNeed(ctx, input)
	if err != nil {
		s.logger.WithError(err).Error("failed to create need")
		data.Error = "新增需求失敗：" + userMessage(err, "請稍後再試")
		s.renderPageStatus(w, r, http.StatusBadGateway, "page.need-form", data)
		return
	}

	s.logger.WithField("need_id", need.ID).Info("need created")

	s.redirectWithNotice(w, r, "/dashboard/school", "需求已新增")
}

func (s *Service) handleGetEditNeed(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	need, err := s.api.SchoolNeed(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			s.handleNotFound(w, r)
			return
		}
		s.logger.WithError(err).WithField("need_id", id).Error("failed to load need for editing")
		s.redirectWithError(w, r, "/dashboard/school", "無法載入需求："+userMessage(err, "請稍後再試"))
		return
	}

	data := newNeedFormData(types.NeedInputFromNeed(need))
	data.BasePageData = flash(r)
	data.Title = "編輯需求"
	data.Action = fmt.Sprintf("/dashboard/school/needs/%s/edit", id)
	data.IsEdit = true
	data.NeedID = id

	s.renderPage(w, r, "page.need-form", data)
}

func (s *Service) handlePostEditNeed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	input, fieldErrors, err := parseNeedForm(r)
	if err != nil {
		s.logger.WithError(err).Error("failed to parse need form")
		s.redirectWithError(w, r, fmt.Sprintf("/dashboard/school/needs/%s/edit", id), "表單格式錯誤")
		return
	}

	data := newNeedFormData(input)
	data.Title = "編輯需求"
	data.Action = fmt.Sprintf("/dashboard/school/needs/%s/edit", id)
	data.IsEdit = true
	data.NeedID = id

	if len(fieldErrors) > 0 {
		data.FieldErrors = fieldErrors
		data.Error = firstError(fieldErrors)
		s.renderPageStatus(w, r, http.StatusUnprocessableEntity, "page.need-form", data)
		return
	}

	if err := s.attachImage(ctx, r, input); err != nil {
		s.logger.WithError(err).Error("failed to upload need image")
		data.Error = "圖片上傳失敗，請稍後再試"
		s.renderPageStatus(w, r, http.StatusBadGateway, "page.need-form", data)
		return
	}

	if _, err := s.api.UpdateNeed(ctx, id, input); err != nil {
		s.logger.WithError(err).WithField("need_id", id).Error("failed to update need")
		data.Error = "更新需求失敗：" + userMessage(err, "請稍後再試")
		s.renderPageStatus(w, r, http.StatusBadGateway, "page.need-form", data)
		return
	}

	s.redirectWithNotice(w, r, "/dashboard/school", "需求已更新")
}

func (s *Service) handleGetDeleteNeed(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	need, err := s.api.SchoolNeed(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			s.handleNotFound(w, r)
			return
		}
		s.logger.WithError(err).WithField("need_id", id).Error("failed to load need for deletion")
		s.redirectWithError(w, r, "/dashboard/school", "無法載入需求："+userMessage(err, "請稍後再試"))
		return
	}

	data := &DeleteNeedPageData{BasePageData: flash(r), Need: need}
	data.Title = "刪除需求"

	s.renderPage(w, r, "page.need-delete", data)
}

func (s *Service) handlePostDeleteNeed(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	need, err := s.api.SchoolNeed(r.Context(), id)
	if err != nil {
		s.logger.WithError(err).WithField("need_id", id).Warn("failed to load need before deletion")
	}

	if err := s.api.DeleteNeed(r.Context(), id); err != nil {
		s.logger.WithError(err).WithField("need_id", id).Error("failed to delete need")
		s.redirectWithError(w, r, "/dashboard/school", "刪除需求失敗："+userMessage(err, "請稍後再試"))
		return
	}

	s.logger.WithField("need_id", id).Info("need deleted")

	if need != nil && s.images != nil {
		if err := s.images.Remove(r.Context(), need.ImageURL); err != nil {
			s.logger.WithError(err).WithField("need_id", id).WithField("image_url", need.ImageURL).Error("failed to delete need image from S3")
		}
	}

	s.redirectWithNotice(w, r, "/dashboard/school", "需求已刪除")
}

// parseNeedForm decodes and validates the need form. A non-nil error means
// the request body itself was unreadable.
func parseNeedForm(r *http.Request) (*types.NeedInput, map[string]string, error) {
	if err := r.ParseMultipartForm(maxImageUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, err
	}

	input := new(types.NeedInput)
	fieldErrors := make(map[string]string)

	if err := decoder.Decode(input, r.PostForm); err != nil {
		var decodeErrs form.DecodeErrors
		if !errors.As(err, &decodeErrs) {
			return nil, nil, err
		}
		for field := range decodeErrs {
			fieldErrors[field] = "欄位格式不正確"
		}
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)
	input.Location = strings.TrimSpace(input.Location)
	if input.Urgency == "" {
		input.Urgency = types.UrgencyMedium
	}
	if input.SDGs == nil {
		input.SDGs = []int{}
	}

	for field, msg := range validateNeedInput(input) {
		fieldErrors[field] = msg
	}

	return input, fieldErrors, nil
}

func validateNeedInput(input *types.NeedInput) map[string]string {
	errs := make(map[string]string)

	if !required(input.Title) {
		errs["title"] = "標題為必填項"
	}
	if !required(input.Category) {
		errs["category"] = "類別為必填項"
	}
	if !required(input.Location) {
		errs["location"] = "地點為必填項"
	}
	if input.StudentCount < 1 {
		errs["studentCount"] = "受益學生數必須至少為 1"
	}
	if !input.Urgency.Valid() {
		errs["urgency"] = "請選擇緊急程度"
	}
	for _, goal := range input.SDGs {
		if goal < 1 || goal > 17 {
			errs["sdgs"] = "SDG 目標必須介於 1 到 17"
			break
		}
	}

	return errs
}

var fieldOrder = []string{"title", "category", "location", "studentCount", "urgency", "sdgs", "description", "image_url"}

// firstError picks the message of the first invalid field in form order.
func firstError(fieldErrors map[string]string) string {
	for _, field := range fieldOrder {
		if msg, ok := fieldErrors[field]; ok {
			return msg
		}
	}
	for _, msg := range fieldErrors {
		return msg
	}
	return ""
}

// attachImage uploads the optional image file and falls back to the default
// need image when none is set.
func (s *Service) attachImage(ctx context.Context, r *http.Request, input *types.NeedInput) error {
	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		return err
	case s.images == nil:
		file.Close()
		s.logger.Warn("image upload received but no image store is configured")
	default:
		defer file.Close()

		url, err := s.uploadImage(ctx, file, header)
		if err != nil {
			return err
		}
		input.ImageURL = url
	}

	if input.ImageURL == "" {
		input.ImageURL = fallback.DefaultNeedImageURL
	}

	return nil
}

func (s *Service) uploadImage(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error) {
	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", fmt.Errorf("unsupported image content type %q", contentType)
	}

	name := fmt.Sprintf("needs/%s%s", utils.NanoID(), strings.ToLower(filepath.Ext(header.Filename)))

	return s.images.Upload(ctx, name, contentType, file)
}
