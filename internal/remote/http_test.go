package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"visitnotes/internal/model"
)

func newTestStore(t *testing.T, h http.HandlerFunc) *HTTPStore {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPStore(srv.URL, "tok-1", 5*time.Second)
}

func TestHTTPStore_PutAnalysis(t *testing.T) {
	var gotMethod, gotPath, gotAuth string
	var gotBody map[string]any

	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotAuth = r.Method, r.URL.Path, r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"success":true,"message":"Analysis saved","created":true}`))
	})

	rec := model.AnalysisRecord{ID: 2, Timestamp: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), Summary: "ok", Source: model.SourceLocal}
	if err := s.PutAnalysis(context.Background(), "appt-1", rec); err != nil {
		t.Fatalf("PutAnalysis() error = %v", err)
	}

	if gotMethod != http.MethodPut || gotPath != "/api/analyses/appt-1" {
		t.Errorf("request = %s %s, want PUT /api/analyses/appt-1", gotMethod, gotPath)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok-1")
	}
	if _, ok := gotBody["source"]; ok {
		t.Error("request body carries source")
	}
	if kp, ok := gotBody["keyPoints"].([]any); !ok || len(kp) != 0 {
		t.Errorf("keyPoints = %v, want []", gotBody["keyPoints"])
	}
	if gotBody["timestamp"] != "2024-01-01T10:00:00Z" {
		t.Errorf("timestamp = %v, want 2024-01-01T10:00:00Z", gotBody["timestamp"])
	}
}

func TestHTTPStore_ListAnalyses(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"count":2,"analyses":[
			{"id":1,"timestamp":"2024-01-01T10:00:00Z","summary":"a","keyPoints":[],"questions":[],"actionItems":[]},
			{"id":3,"timestamp":"2024-01-02T10:00:00Z","summary":"b","keyPoints":["k"],"questions":[],"actionItems":[]}]}`))
	})

	recs, err := s.ListAnalyses(context.Background(), "appt-1")
	if err != nil {
		t.Fatalf("ListAnalyses() error = %v", err)
	}
	if len(recs) != 2 || recs[0].ID != 1 || recs[1].ID != 3 {
		t.Fatalf("ListAnalyses() = %+v", recs)
	}
	if recs[1].KeyPoints[0] != "k" {
		t.Errorf("KeyPoints = %v, want [k]", recs[1].KeyPoints)
	}
}

func TestHTTPStore_Errors(t *testing.T) {
	t.Run("non-2xx becomes StatusError", func(t *testing.T) {
		s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message":"Failed to load analyses"}`))
		})

		_, err := s.ListAnalyses(context.Background(), "appt-1")
		var se *StatusError
		if !errors.As(err, &se) {
			t.Fatalf("ListAnalyses() error = %v, want *StatusError", err)
		}
		if se.StatusCode != http.StatusInternalServerError || se.Message != "Failed to load analyses" {
			t.Errorf("StatusError = %+v", se)
		}
	})

	t.Run("delete 404 is success", func(t *testing.T) {
		s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete || r.URL.Path != "/api/analyses/appt-1/7" {
				t.Errorf("request = %s %s", r.Method, r.URL.Path)
			}
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Analysis not found"}`))
		})

		if err := s.DeleteAnalysis(context.Background(), "appt-1", 7); err != nil {
			t.Errorf("DeleteAnalysis() error = %v, want nil", err)
		}
	})

	t.Run("delete 500 is an error", func(t *testing.T) {
		s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		if err := s.DeleteAnalysis(context.Background(), "appt-1", 7); err == nil {
			t.Error("DeleteAnalysis() error = nil, want error")
		}
	})

	t.Run("unreachable server", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		s := NewHTTPStore(url, "tok-1", time.Second)
		if err := s.Ping(context.Background()); err == nil {
			t.Error("Ping() error = nil, want error")
		}
	})
}

func TestHTTPStore_Login(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			var c credentials
			json.NewDecoder(r.Body).Decode(&c)
			if c.Email != "a@example.com" || c.Password != "pw" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Write([]byte(`{"token":"fresh"}`))
		case "/api/me":
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Write([]byte(`{"id":"u1","email":"a@example.com"}`))
		}
	})

	token, err := s.Login(context.Background(), "a@example.com", "pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token != "fresh" {
		t.Errorf("token = %q, want %q", token, "fresh")
	}

	u, err := s.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if u.ID != "u1" {
		t.Errorf("Me().ID = %q, want %q", u.ID, "u1")
	}
}

func TestHTTPStore_ProcessAudio(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if got := r.FormValue("appointmentId"); got != "appt-1" {
			t.Errorf("appointmentId = %q, want %q", got, "appt-1")
		}
		f, hdr, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if string(data) != "RIFFdata" {
			t.Errorf("audio = %q, want %q", data, "RIFFdata")
		}
		if hdr.Header.Get("Content-Type") != "audio/wav" {
			t.Errorf("part Content-Type = %q, want audio/wav", hdr.Header.Get("Content-Type"))
		}
		w.Write([]byte(`{"transcript":"hello","summary":"s","keyPoints":[],"questions":[],"actionItems":[],"processedAt":"2024-01-15T10:30:00Z"}`))
	})

	res, err := s.ProcessAudio(context.Background(), "appt-1", "visit.wav", "audio/wav", strings.NewReader("RIFFdata"))
	if err != nil {
		t.Fatalf("ProcessAudio() error = %v", err)
	}
	if res.Transcript != "hello" {
		t.Errorf("Transcript = %q, want %q", res.Transcript, "hello")
	}
}
