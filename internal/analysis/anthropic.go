package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"visitnotes/internal/visit"
)

const systemPrompt = "You are a helpful medical AI assistant. Always provide accurate, helpful information in a patient-friendly format. Respond only with valid JSON."

const promptTemplate = `You are a medical AI assistant helping patients understand their doctor visits.
Analyze this medical visit transcript and provide:

1. A clear, concise summary of what happened during the visit
2. Key medical information discussed (diagnoses, treatments, medications)
3. 5-7 thoughtful follow-up questions the patient should consider asking their doctor
4. Action items and next steps the patient should take

Make the language patient-friendly and easy to understand. Be thorough but concise.

TRANSCRIPT:
%s

Please format your response as JSON with the following structure:
{
  "summary": "Clear summary of the visit...",
  "keyPoints": ["Key point 1", "Key point 2", ...],
  "questions": ["Question 1?", "Question 2?", ...],
  "actionItems": ["Action 1", "Action 2", ...]
}
`

// AnthropicSummarizer summarizes transcripts with the Anthropic Messages API.
type AnthropicSummarizer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

var _ visit.Summarizer = (*AnthropicSummarizer)(nil)

// NewAnthropicSummarizer creates a summarizer. Extra options are passed to
// the SDK client.
func NewAnthropicSummarizer(apiKey, model string, maxTokens int64, opts ...option.RequestOption) *AnthropicSummarizer {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicSummarizer{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (s *AnthropicSummarizer) Summarize(ctx context.Context, transcript string) (*visit.Summary, error) {
	msg, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(s.model),
		MaxTokens:   s.maxTokens,
		Temperature: anthropic.Float(0.3),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(fmt.Sprintf(promptTemplate, transcript))),
		},
	})
	if err != nil {
		return nil, mapAnthropicError(err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return ParseSummary(text.String()), nil
}

func mapAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", visit.ErrProviderAuth, err)
		case http.StatusPaymentRequired, http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", visit.ErrQuotaExceeded, err)
		}
	}
	return fmt.Errorf("summarizing transcript: %w", err)
}
