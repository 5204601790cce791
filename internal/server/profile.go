package server

import (
	"net/http"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.GetProfile(currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleSaveProfile applies the posted fields over the stored profile, so
// fields absent from the body keep their values.
func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r).ID
	p, err := s.service.GetProfile(userID)
	if err != nil {
		s.writeError(w, r, err, "Failed to save profile")
		return
	}
	if !decodeJSON(w, r, p) {
		return
	}

	saved, err := s.service.SaveProfile(userID, *p)
	if err != nil {
		s.writeError(w, r, err, "Failed to save profile")
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
