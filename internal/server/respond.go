package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"visitnotes/internal/visit"
)

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// writeError maps a service error to a status code. Unrecognized errors are
// logged and answered with fallback.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, visit.ErrNotFound):
		writeMessage(w, http.StatusNotFound, notFoundMessage(err))
	case errors.Is(err, visit.ErrInvalidCredentials):
		writeMessage(w, http.StatusBadRequest, "Invalid credentials")
	case errors.Is(err, visit.ErrAlreadyExists):
		writeMessage(w, http.StatusBadRequest, "User already exists")
	case errors.Is(err, visit.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, detail(err, visit.ErrInvalidInput))
	case errors.Is(err, visit.ErrUnauthorized):
		writeMessage(w, http.StatusUnauthorized, "Authentication required")
	case errors.Is(err, visit.ErrQuotaExceeded):
		writeMessage(w, http.StatusPaymentRequired, "AI provider quota exceeded. Please check your billing settings.")
	case errors.Is(err, visit.ErrProviderAuth):
		s.logger.Error("AI provider rejected credentials", "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusBadGateway, "AI provider rejected the configured API key")
	default:
		s.logger.Error(strings.ToLower(fallback), "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusInternalServerError, fallback)
	}
}

// detail strips the sentinel prefix from a wrapped error message.
func detail(err, sentinel error) string {
	msg := err.Error()
	if i := strings.Index(msg, sentinel.Error()+": "); i >= 0 {
		msg = msg[i+len(sentinel.Error())+2:]
	}
	if msg == "" {
		return "Invalid request"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func notFoundMessage(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "appointment"):
		return "Appointment not found"
	case strings.Contains(msg, "analysis"):
		return "Analysis not found"
	case strings.Contains(msg, "audio"):
		return "Audio not found"
	default:
		return "Not found"
	}
}

// decodeJSON decodes the request body into v, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}
