package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/elonfeng/feedpulse/pkg/feedback"
	"github.com/elonfeng/feedpulse/pkg/llm"
)

// NoFeedbackSummary is returned instead of calling the model when there is
// nothing to summarize.
const NoFeedbackSummary = "No feedback has been collected yet. Submit feedback or load the demo data to generate an executive summary."

const summaryPrompt = `You are preparing an executive briefing from recent customer feedback.

Recent feedback (most recent first):
%s

Write a 2-3 paragraph executive summary covering:
1. Overall sentiment and the main concerns customers raise
2. The most urgent issues that need attention now
3. Recommended priorities for the product team

Write plain prose, no headings or bullet lists.`

// Summarizer produces a free-text narrative over a set of records.
type Summarizer struct {
	model llm.Model
}

func NewSummarizer(model llm.Model) *Summarizer {
	return &Summarizer{model: model}
}

// Summarize returns NoFeedbackSummary for an empty input without a model call.
// Model failures are returned to the caller.
func (s *Summarizer) Summarize(ctx context.Context, records []feedback.Record) (string, error) {
	if len(records) == 0 {
		return NoFeedbackSummary, nil
	}

	out, err := s.model.Complete(ctx, fmt.Sprintf(summaryPrompt, Transcript(records)))
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Transcript renders records as a numbered list for prompting.
func Transcript(records []feedback.Record) string {
	var b strings.Builder
	for i, r := range records {
		sentiment, urgency := string(r.Sentiment), string(r.Urgency)
		if sentiment == "" {
			sentiment = "unknown"
		}
		if urgency == "" {
			urgency = "unknown"
		}
		content := strings.Join(strings.Fields(r.Content), " ")
		fmt.Fprintf(&b, "%d. [%s/%s] %s\n", i+1, sentiment, urgency, content)
	}
	return strings.TrimRight(b.String(), "\n")
}
