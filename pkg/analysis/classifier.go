package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/elonfeng/feedpulse/internal/logger"
	"github.com/elonfeng/feedpulse/pkg/feedback"
	"github.com/elonfeng/feedpulse/pkg/llm"
	"github.com/elonfeng/feedpulse/pkg/metrics"
)

const annotatePrompt = `You are a customer feedback analyst. Analyze the feedback below and classify it.

Feedback:
"""
%s
"""

Respond with a single JSON object with exactly these keys:
- "sentiment": one of "positive", "negative", "neutral"
- "sentiment_score": number from -1 (very negative) to 1 (very positive)
- "urgency": one of "low", "medium", "high", "critical"
- "themes": array of 1 to 3 short theme labels (e.g. "performance", "billing", "onboarding")
- "summary": one sentence summarizing the feedback

Example: {"sentiment":"negative","sentiment_score":-0.7,"urgency":"high","themes":["crash","mobile app"],"summary":"The iOS app crashes when uploading photos."}

Return ONLY the JSON object, no other text.`

// Classifier annotates feedback text with a single model call.
type Classifier struct {
	model llm.Model
	log   *logger.Logger
}

// NewClassifier creates a classifier over the given model channel.
func NewClassifier(model llm.Model, log *logger.Logger) *Classifier {
	if log == nil {
		log = logger.Nop()
	}
	return &Classifier{model: model, log: log}
}

// Annotate never fails: model errors and unusable completions yield the
// fallback annotation so ingestion does not depend on model availability.
func (c *Classifier) Annotate(ctx context.Context, content string) feedback.Annotation {
	raw, err := c.model.Complete(ctx, fmt.Sprintf(annotatePrompt, content))
	if err != nil {
		reason := "model_error"
		if errors.Is(err, llm.ErrDisabled) {
			reason = "disabled"
		}
		return c.fallback(content, reason, "error", err)
	}

	ann, ok := ParseAnnotation(raw)
	if !ok {
		return c.fallback(content, "unparseable", "completion", truncate(raw, 200))
	}
	return *ann
}

func (c *Classifier) fallback(content, reason string, kv ...interface{}) feedback.Annotation {
	metrics.ClassifierFallbacks.WithLabelValues(reason).Inc()
	if reason == "disabled" {
		c.log.Debug("classifier disabled, using fallback annotation")
	} else {
		c.log.Warn("classifier degraded to fallback annotation",
			append([]interface{}{"reason", reason, "model", c.model.Name()}, kv...)...)
	}
	return feedback.FallbackAnnotation(content)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
