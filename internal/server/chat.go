package server

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"schoolbridge/internal"
	"schoolbridge/internal/explore"
	"schoolbridge/pkg/types"
)

var parameterLabels = map[string]string{
	explore.ParamResourceType:   "資源類型",
	explore.ParamTargetCounties: "目標縣市",
}

type ExplorePageData struct {
	types.BasePageData
	Stage      explore.Stage
	History    []types.ChatMessage
	Parameters map[string]any
	Report     template.HTML
	Result     *types.AnalyzeResponse
}

func (s *Service) conversation(w http.ResponseWriter, r *http.Request) (*explore.Conversation, error) {
	var id string
	if cookie, err := r.Cookie(internal.COOKIE_CONVERSATION_NAME); err == nil {
		id = cookie.Value
	}

	conv, err := s.explore.Get(id)
	if err != nil {
		return nil, err
	}

	if conv.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     internal.COOKIE_CONVERSATION_NAME,
			Value:    conv.ID,
			HttpOnly: true,
			Secure:   s.secureCookies(),
			SameSite: http.SameSiteLaxMode,
			Path:     "/",
		})
	}

	return conv, nil
}

func (s *Service) clearConversationCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     internal.COOKIE_CONVERSATION_NAME,
		Value:    "",
		HttpOnly: true,
		Secure:   s.secureCookies(),
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}

func (s *Service) handleGetExplore(w http.ResponseWriter, r *http.Request) {
	conv, err := s.conversation(w, r)
	if err != nil {
		s.logger.WithError(err).Error("failed to start conversation")
		s.internalServerError(w)
		return
	}

	data := &ExplorePageData{
		BasePageData: flash(r),
		Stage:        conv.Stage(),
		History:      conv.History(),
		Parameters:   conv.Parameters(),
		Result:       conv.Result(),
	}
	data.Title = "智慧探索"

	if data.Result != nil {
		report, err := explore.RenderReport(data.Result.Report)
		if err != nil {
			s.logger.WithError(err).Error("failed to render analysis report")
		}
		data.Report = report
	}

	s.renderPage(w, r, "page.explore", data)
}

func (s *Service) handlePostExploreMessage(w http.ResponseWriter, r *http.Request) {
	conv, err := s.conversation(w, r)
	if err != nil {
		s.logger.WithError(err).Error("failed to start conversation")
		s.internalServerError(w)
		return
	}

	turn, err := conv.Send(r.Context(), r.FormValue("message"))
	switch {
	case errors.Is(err, explore.ErrEmptyMessage):
		s.redirectWithError(w, r, "/dashboard/explore", "請輸入訊息")
		return
	case err != nil:
		s.logger.WithError(err).WithField("conversation_id", conv.ID).Error("exploration turn failed")
		s.redirectWithError(w, r, "/dashboard/explore", "分析服務暫時無法使用："+userMessage(err, "請稍後再試"))
		return
	}

	if len(turn.Missing) > 0 {
		labels := make([]string, len(turn.Missing))
		for i, name := range turn.Missing {
			labels[i] = parameterLabels[name]
		}
		s.redirectWithNotice(w, r, "/dashboard/explore", "產生報告前還需要："+strings.Join(labels, "、"))
		return
	}

	http.Redirect(w, r, "/dashboard/explore", http.StatusSeeOther)
}

func (s *Service) handlePostExploreReset(w http.ResponseWriter, r *http.Request) {
	conv, err := s.conversation(w, r)
	if err != nil {
		s.logger.WithError(err).Error("failed to start conversation")
		s.internalServerError(w)
		return
	}

	conv.Reset()

	http.Redirect(w, r, "/dashboard/explore", http.StatusSeeOther)
}
