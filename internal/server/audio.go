package server

import (
	"errors"
	"net/http"

	"visitnotes/internal/model"
	"visitnotes/internal/visit"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

type processAudioResponse struct {
	Success bool `json:"success"`
	*model.AnalysisResult
}

func (s *Server) handleProcessAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, visit.MaxAudioSize+1<<20)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeMessage(w, http.StatusRequestEntityTooLarge, "Audio file exceeds 50MB")
			return
		}
		writeMessage(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "No audio file provided")
		return
	}
	defer file.Close()

	res, err := s.service.ProcessAudio(r.Context(), currentUser(r).ID, visit.AudioInput{
		AppointmentID: r.FormValue("appointmentId"),
		Filename:      header.Filename,
		MimeType:      header.Header.Get("Content-Type"),
		Body:          file,
	})
	if err != nil {
		s.writeError(w, r, err, "Failed to process audio")
		return
	}
	writeJSON(w, http.StatusOK, processAudioResponse{Success: true, AnalysisResult: res})
}

func (s *Server) handleAudioInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.GetAudioInfo())
}
