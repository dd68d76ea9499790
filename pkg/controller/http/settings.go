package http

import (
	"net/http"

	"github.com/secmon-lab/instaflow/pkg/domain/model"
)

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.uc.Settings.GetSettings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, settings)
}

func (s *Server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var settings model.Settings
	if err := decodeJSON(w, r, &settings); err != nil {
		writeError(w, r, err)
		return
	}

	stored, err := s.uc.Settings.UpdateSettings(r.Context(), &settings)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stored)
}
