package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"visitnotes/internal/model"
	"visitnotes/internal/visit"
)

type saveAnalysisResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Created bool   `json:"created"`
}

type analysesResponse[T any] struct {
	Success  bool `json:"success"`
	Analyses []T  `json:"analyses"`
	Count    int  `json:"count"`
}

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) handlePutAnalysis(w http.ResponseWriter, r *http.Request) {
	var rec model.AnalysisRecord
	if !decodeJSON(w, r, &rec) {
		return
	}
	s.saveAnalysis(w, r, chi.URLParam(r, "appointmentID"), rec)
}

type legacyAnalysisRequest struct {
	AppointmentID string                `json:"appointmentId"`
	AnalysisData  *model.AnalysisRecord `json:"analysisData"`
}

func (s *Server) handleLegacySaveAnalysis(w http.ResponseWriter, r *http.Request) {
	var req legacyAnalysisRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AppointmentID == "" || req.AnalysisData == nil {
		writeMessage(w, http.StatusBadRequest, "appointmentId and analysisData are required")
		return
	}
	s.saveAnalysis(w, r, req.AppointmentID, *req.AnalysisData)
}

func (s *Server) saveAnalysis(w http.ResponseWriter, r *http.Request, appointmentID string, rec model.AnalysisRecord) {
	created, err := s.service.SaveAnalysis(currentUser(r).ID, appointmentID, rec)
	if err != nil {
		s.writeError(w, r, err, "Failed to save analysis")
		return
	}
	msg := "Analysis updated"
	if created {
		msg = "Analysis saved"
	}
	writeJSON(w, http.StatusOK, saveAnalysisResponse{Success: true, Message: msg, Created: created})
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	recs, err := s.service.ListAnalyses(currentUser(r).ID, chi.URLParam(r, "appointmentID"))
	if err != nil {
		s.writeError(w, r, err, "Failed to load analyses")
		return
	}
	if recs == nil {
		recs = []model.AnalysisRecord{}
	}
	writeJSON(w, http.StatusOK, analysesResponse[model.AnalysisRecord]{Success: true, Analyses: recs, Count: len(recs)})
}

func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "analysisID"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: analysis id must be a number", visit.ErrInvalidInput), "Failed to delete analysis")
		return
	}
	if err := s.service.DeleteAnalysis(currentUser(r).ID, chi.URLParam(r, "appointmentID"), id); err != nil {
		s.writeError(w, r, err, "Failed to delete analysis")
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: "Analysis deleted"})
}

func (s *Server) handleRecentAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, fmt.Errorf("%w: limit must be a non-negative number", visit.ErrInvalidInput), "Failed to load analyses")
			return
		}
		limit = n
	}
	recs, err := s.service.ListRecentAnalyses(currentUser(r).ID, limit)
	if err != nil {
		s.writeError(w, r, err, "Failed to load analyses")
		return
	}
	if recs == nil {
		recs = []*model.RecentAnalysis{}
	}
	writeJSON(w, http.StatusOK, analysesResponse[*model.RecentAnalysis]{Success: true, Analyses: recs, Count: len(recs)})
}
