package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"visitnotes/internal/model"
	"visitnotes/internal/visit"
)

type appointmentRequest struct {
	Doctor   string `json:"doctor"`
	Date     string `json:"date"`
	Reason   string `json:"reason"`
	Goal     string `json:"goal"`
	Symptoms string `json:"symptoms"`
}

func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := s.service.ListAppointments(currentUser(r).ID)
	if err != nil {
		s.writeError(w, r, err, "Failed to fetch appointments")
		return
	}
	if appts == nil {
		appts = []*model.Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

func (s *Server) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := visit.AppointmentInput{
		Doctor:   req.Doctor,
		Reason:   req.Reason,
		Goal:     req.Goal,
		Symptoms: req.Symptoms,
	}
	if strings.TrimSpace(req.Date) == "" {
		s.writeError(w, r, fmt.Errorf("%w: date is required", visit.ErrInvalidInput), "Server error")
		return
	}
	date, err := visit.ParseDate(req.Date)
	if err != nil {
		s.writeError(w, r, err, "Server error")
		return
	}
	in.Date = date

	appt, err := s.service.CreateAppointment(currentUser(r).ID, in)
	if err != nil {
		s.writeError(w, r, err, "Server error")
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

func (s *Server) handleDeleteAppointment(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteAppointment(currentUser(r).ID, chi.URLParam(r, "appointmentID")); err != nil {
		s.writeError(w, r, err, "Server error")
		return
	}
	writeMessage(w, http.StatusOK, "Deleted")
}
