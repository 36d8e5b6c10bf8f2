package server

import (
	"net/http"

	"schoolbridge/internal/session"
	"schoolbridge/pkg/types"
)

type ProfilePageData struct {
	types.BasePageData
	Profile *types.UserProfile
	Session types.Session
}

func (s *Service) handleProfile(w http.ResponseWriter, r *http.Request) {
	state := session.FromContext(r.Context())

	data := &ProfilePageData{
		BasePageData: flash(r),
		Session:      state.Session(),
	}
	data.Title = "個人資料"

	profile, err := s.api.Profile(r.Context())
	if err != nil {
		s.logger.WithError(err).Debug("profile endpoint failed, trying users/me")
		profile, err = s.api.Me(r.Context())
	}
	if err != nil {
		s.logger.WithError(err).Warn("failed to load profile, using token claims")

		data.Profile = &types.UserProfile{Role: state.Role()}
		if user := userFromContext(r.Context()); user != nil {
			data.Profile.ID = user.ID
			data.Profile.Name = user.Name
			data.Profile.Email = user.Email
		}
		data.Error = "無法從伺服器載入完整個人資料"
	} else {
		data.Profile = profile
	}

	s.renderPage(w, r, "page.profile", data)
}
