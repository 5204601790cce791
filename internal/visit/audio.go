package visit

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"strings"

	"visitnotes/internal/model"
)

// MaxAudioSize is the largest accepted upload.
const MaxAudioSize = 50 << 20

// AudioInput is one uploaded recording.
type AudioInput struct {
	AppointmentID string // optional
	Filename      string
	MimeType      string
	Body          io.Reader
}

// AudioInfo describes the accepted upload formats.
type AudioInfo struct {
	SupportedFormats  []string `json:"supportedFormats"`
	MaxFileSize       string   `json:"maxFileSize"`
	RecommendedFormat string   `json:"recommendedFormat"`
	Notes             []string `json:"notes"`
}

// GetAudioInfo returns the accepted upload formats.
func (s *Service) GetAudioInfo() AudioInfo {
	return AudioInfo{
		SupportedFormats:  []string{"mp3", "mp4", "mpeg", "mpga", "m4a", "wav", "webm", "ogg", "flac"},
		MaxFileSize:       "50MB",
		RecommendedFormat: "webm or mp3",
		Notes: []string{
			"Higher quality audio produces better transcriptions",
			"Reduce background noise for best results",
			"Clear speech is essential for accurate transcription",
		},
	}
}

// IsAudioType reports whether the media type is audio/*.
func IsAudioType(mimeType string) bool {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "audio/")
}

// ProcessAudio stores the recording encrypted in the audio vault, transcribes
// it and summarizes the transcript. A vault failure is logged and does not
// stop processing.
func (s *Service) ProcessAudio(ctx context.Context, userID string, in AudioInput) (*model.AnalysisResult, error) {
	if in.Body == nil {
		return nil, fmt.Errorf("%w: no audio file provided", ErrInvalidInput)
	}
	if !IsAudioType(in.MimeType) {
		return nil, fmt.Errorf("%w: only audio files are allowed", ErrInvalidInput)
	}
	if in.AppointmentID != "" {
		if _, err := s.GetAppointment(userID, in.AppointmentID); err != nil {
			return nil, err
		}
	}

	data, err := io.ReadAll(io.LimitReader(in.Body, MaxAudioSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	if len(data) > MaxAudioSize {
		return nil, fmt.Errorf("%w: audio exceeds %d bytes", ErrInvalidInput, MaxAudioSize)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: audio file is empty", ErrInvalidInput)
	}

	s.logger.Info("processing audio", "user", userID, "appointment", in.AppointmentID, "type", in.MimeType, "size", len(data))

	if err := s.storeAudio(userID, in, data); err != nil {
		s.logger.Warn("storing audio failed", "user", userID, "error", err)
	}

	transcript, err := s.transcriber.Transcribe(ctx, bytes.NewReader(data), in.Filename, in.MimeType)
	if err != nil {
		return nil, fmt.Errorf("transcribing audio: %w", err)
	}
	s.logger.Debug("transcription completed", "user", userID, "chars", len(transcript))

	summary, err := s.summarizer.Summarize(ctx, transcript)
	if err != nil {
		return nil, fmt.Errorf("summarizing transcript: %w", err)
	}

	result := &model.AnalysisResult{
		Transcript:  transcript,
		Summary:     summary.Summary,
		KeyPoints:   orEmpty(summary.KeyPoints),
		Questions:   orEmpty(summary.Questions),
		ActionItems: orEmpty(summary.ActionItems),
		ProcessedAt: s.clock.Now().UTC(),
	}
	s.logger.Info("audio processed", "user", userID, "appointment", in.AppointmentID)
	return result, nil
}

func (s *Service) storeAudio(userID string, in AudioInput, data []byte) error {
	if s.vault == nil || s.encryptor == nil {
		return nil
	}

	var enc bytes.Buffer
	if err := s.encryptor.Encrypt(bytes.NewReader(data), &enc); err != nil {
		return fmt.Errorf("encrypting audio: %w", err)
	}

	id := s.idgen.New()
	key := "audio/" + userID + "/" + id
	if err := s.vault.Put(key, &enc, int64(enc.Len())); err != nil {
		return fmt.Errorf("uploading audio: %w", err)
	}

	upload := &model.AudioUpload{
		ID:            id,
		UserID:        userID,
		AppointmentID: in.AppointmentID,
		VaultKey:      key,
		MimeType:      in.MimeType,
		Size:          int64(len(data)),
		CreatedAt:     s.clock.Now().UTC(),
	}
	if err := s.database.CreateAudioUpload(upload); err != nil {
		if delErr := s.vault.Delete(key); delErr != nil {
			s.logger.Warn("removing orphaned audio failed", "key", key, "error", delErr)
		}
		return fmt.Errorf("recording audio upload: %w", err)
	}
	return nil
}

// ListAudio returns the user's stored recordings, newest first.
func (s *Service) ListAudio(userID string) ([]*model.AudioUpload, error) {
	uploads, err := s.database.ListAudioUploads(userID)
	if err != nil {
		return nil, fmt.Errorf("listing audio uploads: %w", err)
	}
	return uploads, nil
}

// ReadAudio decrypts a stored recording of the user into w.
func (s *Service) ReadAudio(userID, uploadID string, dec DecryptionContext, w io.Writer) error {
	upload, err := s.database.FindAudioUpload(userID, uploadID)
	if err != nil {
		return fmt.Errorf("finding audio upload: %w", err)
	}
	if upload == nil {
		return fmt.Errorf("%w: audio %s", ErrNotFound, uploadID)
	}

	var enc bytes.Buffer
	if err := s.vault.Get(upload.VaultKey, &enc); err != nil {
		return fmt.Errorf("downloading audio: %w", err)
	}
	if err := dec.Decrypt(&enc, w); err != nil {
		return fmt.Errorf("decrypting audio: %w", err)
	}
	return nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
