package analysis

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/elonfeng/feedpulse/pkg/feedback"
)

// rawAnnotation uses pointers so absent keys can be told apart from zero values.
type rawAnnotation struct {
	Sentiment      *string   `json:"sentiment"`
	SentimentScore *float64  `json:"sentiment_score"`
	Urgency        *string   `json:"urgency"`
	Themes         *[]string `json:"themes"`
	Summary        *string   `json:"summary"`
}

// ParseAnnotation extracts an annotation from a model completion. The model is
// not trusted to emit bare JSON, so the first balanced {...} object is used.
// It returns false when no object is found, it does not decode, a key is
// missing or the summary is blank, or sentiment/urgency are not known values.
func ParseAnnotation(completion string) (*feedback.Annotation, bool) {
	obj, ok := extractObject(completion)
	if !ok {
		return nil, false
	}

	var raw rawAnnotation
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return nil, false
	}
	if raw.Sentiment == nil || raw.SentimentScore == nil || raw.Urgency == nil ||
		raw.Themes == nil || raw.Summary == nil {
		return nil, false
	}

	sentiment := feedback.Sentiment(strings.ToLower(strings.TrimSpace(*raw.Sentiment)))
	urgency := feedback.Urgency(strings.ToLower(strings.TrimSpace(*raw.Urgency)))
	if !sentiment.Valid() || !urgency.Valid() {
		return nil, false
	}
	summary := strings.TrimSpace(*raw.Summary)
	if summary == "" {
		return nil, false
	}

	themes := make([]string, 0, len(*raw.Themes))
	for _, th := range *raw.Themes {
		if th = strings.TrimSpace(th); th != "" {
			themes = append(themes, th)
		}
	}

	return &feedback.Annotation{
		Sentiment:      sentiment,
		SentimentScore: math.Max(-1, math.Min(1, *raw.SentimentScore)),
		Urgency:        urgency,
		Themes:         themes,
		Summary:        summary,
	}, true
}

// extractObject returns the first balanced {...} substring of s. Braces inside
// JSON string literals are ignored.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
