package visit

import (
	"context"
	"io"
)

// Transcriber converts recorded speech to text.
type Transcriber interface {
	// Transcribe reads the audio from r. mimeType and filename tell the
	// provider the container format.
	Transcribe(ctx context.Context, r io.Reader, filename, mimeType string) (string, error)
}

// Summary is the structured analysis of one transcript.
type Summary struct {
	Summary     string   `json:"summary"`
	KeyPoints   []string `json:"keyPoints"`
	Questions   []string `json:"questions"`
	ActionItems []string `json:"actionItems"`
}

// Summarizer turns a transcript into a Summary.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) (*Summary, error)
}

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}
