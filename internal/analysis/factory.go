package analysis

import (
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"

	"visitnotes/internal/config"
	"visitnotes/internal/visit"
)

const transcriptionTimeout = 5 * time.Minute

// NewTranscriberFromConfig creates a Transcriber based on the configuration type.
func NewTranscriberFromConfig(cfg config.TranscriptionConfig) (visit.Transcriber, error) {
	switch cfg.Type {
	case "whisper", "":
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("whisper transcription requires %s to be set", cfg.APIKeyEnv)
		}
		return NewWhisperTranscriber(cfg.BaseURL, cfg.Model, key, transcriptionTimeout), nil
	case "fake":
		return &FakeTranscriber{}, nil
	default:
		return nil, fmt.Errorf("unknown transcription type: %q", cfg.Type)
	}
}

// NewSummarizerFromConfig creates a Summarizer based on the configuration type.
func NewSummarizerFromConfig(cfg config.SummarizerConfig) (visit.Summarizer, error) {
	switch cfg.Type {
	case "anthropic", "":
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("anthropic summarizer requires %s to be set", cfg.APIKeyEnv)
		}
		var opts []option.RequestOption
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		return NewAnthropicSummarizer(key, cfg.Model, cfg.MaxTokens, opts...), nil
	case "fake":
		return &FakeSummarizer{}, nil
	default:
		return nil, fmt.Errorf("unknown summarizer type: %q", cfg.Type)
	}
}
