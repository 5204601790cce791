package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"
	"time"

	"visitnotes/internal/visit"
)

// WhisperTranscriber calls an OpenAI-compatible /audio/transcriptions
// endpoint.
type WhisperTranscriber struct {
	baseURL  string
	model    string
	apiKey   string
	language string
	client   *http.Client
}

var _ visit.Transcriber = (*WhisperTranscriber)(nil)

// NewWhisperTranscriber creates a transcriber for the given endpoint.
func NewWhisperTranscriber(baseURL, model, apiKey string, timeout time.Duration) *WhisperTranscriber {
	return &WhisperTranscriber{
		baseURL:  strings.TrimRight(baseURL, "/"),
		model:    model,
		apiKey:   apiKey,
		language: "en",
		client:   &http.Client{Timeout: timeout},
	}
}

// Transcribe uploads the audio and returns the plain-text transcript.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, r io.Reader, filename, mimeType string) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(w.writeForm(mw, r, filename, mimeType))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/audio/transcriptions", pr)
	if err != nil {
		pr.Close()
		return "", fmt.Errorf("creating transcription request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.client.Do(req)
	if err != nil {
		pr.Close()
		return "", fmt.Errorf("sending transcription request: %w", err)
	}
	defer resp.Body.Close()
	pr.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading transcription response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", providerError(resp.StatusCode, body)
	}
	return strings.TrimSpace(string(body)), nil
}

func (w *WhisperTranscriber) writeForm(mw *multipart.Writer, r io.Reader, filename, mimeType string) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, uploadName(filename, mimeType)))
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return err
	}
	for _, f := range [][2]string{{"model", w.model}, {"language", w.language}, {"response_format", "text"}} {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return err
		}
	}
	return mw.Close()
}

// providerError maps an OpenAI-style error body to a service error.
func providerError(status int, body []byte) error {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	json.Unmarshal(body, &apiErr)
	msg := apiErr.Error.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}

	switch {
	case apiErr.Error.Code == "insufficient_quota" || apiErr.Error.Type == "insufficient_quota" || status == http.StatusPaymentRequired:
		return fmt.Errorf("%w: %s", visit.ErrQuotaExceeded, msg)
	case apiErr.Error.Code == "invalid_api_key" || status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", visit.ErrProviderAuth, msg)
	default:
		return fmt.Errorf("transcription failed with status %d: %s", status, msg)
	}
}

// uploadName gives the upload a file extension matching its container so
// the provider can detect the format.
func uploadName(filename, mimeType string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." || base == "/" {
		base = "recording"
	}
	return base + Extension(mimeType, filename)
}

// Extension returns the file extension for an audio mime type. Unknown types
// keep the extension of filename, falling back to .webm.
func Extension(mimeType, filename string) string {
	mt := strings.ToLower(mimeType)
	switch {
	case strings.Contains(mt, "webm"):
		return ".webm"
	case strings.Contains(mt, "mp4"):
		return ".mp4"
	case strings.Contains(mt, "mpeg"):
		return ".mp3"
	case strings.Contains(mt, "wav"):
		return ".wav"
	case strings.Contains(mt, "m4a"):
		return ".m4a"
	case strings.Contains(mt, "ogg"):
		return ".ogg"
	}
	if ext := filepath.Ext(filename); ext != "" {
		return ext
	}
	return ".webm"
}
