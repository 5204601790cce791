package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"visitnotes/internal/model"
	"visitnotes/internal/notesync"
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// HTTPStore talks to the visitnotes API. It implements notesync.RemoteStore
// and carries the other client calls the CLI needs.
type HTTPStore struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ notesync.RemoteStore = (*HTTPStore)(nil)

// NewHTTPStore creates a client for the server at baseURL. token may be empty
// for unauthenticated calls.
func NewHTTPStore(baseURL, token string, timeout time.Duration) *HTTPStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// SetToken replaces the bearer token used for later calls.
func (s *HTTPStore) SetToken(token string) { s.token = token }

func (s *HTTPStore) do(ctx context.Context, method, path string, body any, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req, out)
}

func (s *HTTPStore) send(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Method: req.Method, Path: req.URL.Path, StatusCode: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); err == nil && json.Unmarshal(data, &msg) == nil {
			se.Message = msg.Message
		}
		return se
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func analysesPath(appointmentID string) string {
	return "/api/analyses/" + url.PathEscape(appointmentID)
}

// PutAnalysis creates or replaces one record on the server.
func (s *HTTPStore) PutAnalysis(ctx context.Context, appointmentID string, rec model.AnalysisRecord) error {
	return s.do(ctx, http.MethodPut, analysesPath(appointmentID), rec.Normalized(), nil)
}

// ListAnalyses returns the server's records for the appointment.
func (s *HTTPStore) ListAnalyses(ctx context.Context, appointmentID string) ([]model.AnalysisRecord, error) {
	var out struct {
		Success  bool                   `json:"success"`
		Analyses []model.AnalysisRecord `json:"analyses"`
		Count    int                    `json:"count"`
	}
	if err := s.do(ctx, http.MethodGet, analysesPath(appointmentID), nil, &out); err != nil {
		return nil, err
	}
	return out.Analyses, nil
}

// DeleteAnalysis removes one record. A 404 means the record is already gone
// and is not an error.
func (s *HTTPStore) DeleteAnalysis(ctx context.Context, appointmentID string, id int) error {
	err := s.do(ctx, http.MethodDelete, analysesPath(appointmentID)+"/"+strconv.Itoa(id), nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}

// Ping checks that the server is reachable and the token is accepted.
func (s *HTTPStore) Ping(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, "/api/me", nil, nil)
}

// Me returns the authenticated user.
func (s *HTTPStore) Me(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := s.do(ctx, http.MethodGet, "/api/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account.
func (s *HTTPStore) Register(ctx context.Context, email, password string) error {
	return s.do(ctx, http.MethodPost, "/api/register", credentials{email, password}, nil)
}

// Login exchanges credentials for a session token and starts using it.
func (s *HTTPStore) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := s.do(ctx, http.MethodPost, "/api/login", credentials{email, password}, &out); err != nil {
		return "", err
	}
	s.token = out.Token
	return out.Token, nil
}

// Logout invalidates the current token.
func (s *HTTPStore) Logout(ctx context.Context) error {
	return s.do(ctx, http.MethodPost, "/api/logout", nil, nil)
}

// AppointmentRequest is the body of a create-appointment call.
type AppointmentRequest struct {
	Doctor   string `json:"doctor"`
	Date     string `json:"date"`
	Reason   string `json:"reason,omitempty"`
	Goal     string `json:"goal,omitempty"`
	Symptoms string `json:"symptoms,omitempty"`
}

// ListAppointments returns the user's appointments.
func (s *HTTPStore) ListAppointments(ctx context.Context) ([]*model.Appointment, error) {
	var appts []*model.Appointment
	if err := s.do(ctx, http.MethodGet, "/api/appointments", nil, &appts); err != nil {
		return nil, err
	}
	return appts, nil
}

// CreateAppointment creates an appointment.
func (s *HTTPStore) CreateAppointment(ctx context.Context, req AppointmentRequest) (*model.Appointment, error) {
	var appt model.Appointment
	if err := s.do(ctx, http.MethodPost, "/api/appointments", req, &appt); err != nil {
		return nil, err
	}
	return &appt, nil
}

// ProcessAudio uploads a recording for transcription and summary.
func (s *HTTPStore) ProcessAudio(ctx context.Context, appointmentID, filename, mimeType string, r io.Reader) (*model.AnalysisResult, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeAudioForm(mw, appointmentID, filename, mimeType, r)
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/process-audio", pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out model.AnalysisResult
	if err := s.send(req, &out); err != nil {
		pr.Close()
		return nil, err
	}
	return &out, nil
}

func writeAudioForm(mw *multipart.Writer, appointmentID, filename, mimeType string, r io.Reader) error {
	if appointmentID != "" {
		if err := mw.WriteField("appointmentId", appointmentID); err != nil {
			return err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filename))
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	return mw.Close()
}
