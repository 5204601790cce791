package analysis

import (
	"encoding/json"
	"strings"

	"visitnotes/internal/visit"
)

// Fallback lists used when the model reply is not the requested JSON.
var (
	fallbackKeyPoints   = []string{"Analysis completed - see summary for details"}
	fallbackQuestions   = []string{"What questions do you have about your visit?"}
	fallbackActionItems = []string{"Review visit notes with your healthcare provider"}
)

// ParseSummary decodes a model reply into a Summary. Replies wrapped in a
// markdown code fence are accepted. A reply that is not a JSON object becomes
// the summary text with fixed fallback lists.
func ParseSummary(raw string) *visit.Summary {
	text := stripFence(strings.TrimSpace(raw))

	var s visit.Summary
	if err := json.Unmarshal([]byte(text), &s); err != nil {
		return &visit.Summary{
			Summary:     strings.TrimSpace(raw),
			KeyPoints:   append([]string(nil), fallbackKeyPoints...),
			Questions:   append([]string(nil), fallbackQuestions...),
			ActionItems: append([]string(nil), fallbackActionItems...),
		}
	}

	if s.KeyPoints == nil {
		s.KeyPoints = []string{}
	}
	if s.Questions == nil {
		s.Questions = []string{}
	}
	if s.ActionItems == nil {
		s.ActionItems = []string{}
	}
	return &s
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
