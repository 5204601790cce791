package analysis

import (
	"context"
	"fmt"
	"io"
	"strings"

	"visitnotes/internal/visit"
)

// FakeTranscriber returns a canned transcript built from the audio size.
// Used for local development and tests.
type FakeTranscriber struct {
	Err error
}

var _ visit.Transcriber = (*FakeTranscriber)(nil)

func (f *FakeTranscriber) Transcribe(_ context.Context, r io.Reader, _, mimeType string) (string, error) {
	if f.Err != nil {
		return "", f.Err
	}
	n, err := io.Copy(io.Discard, r)
	if err != nil {
		return "", fmt.Errorf("reading audio: %w", err)
	}
	return fmt.Sprintf("Transcript of %d bytes of %s audio.", n, mimeType), nil
}

// FakeSummarizer returns a fixed summary that quotes the transcript.
type FakeSummarizer struct {
	Err error
}

var _ visit.Summarizer = (*FakeSummarizer)(nil)

func (f *FakeSummarizer) Summarize(_ context.Context, transcript string) (*visit.Summary, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return &visit.Summary{
		Summary:     "Summary: " + strings.TrimSpace(transcript),
		KeyPoints:   []string{"Discussed symptoms"},
		Questions:   []string{"When should I follow up?"},
		ActionItems: []string{"Schedule a follow-up visit"},
	}, nil
}
