package feedback

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// UnknownBucket groups records with no value for a sentiment, urgency or
// source dimension.
const UnknownBucket = "unknown"

// Sentiment is the overall tone assigned by the classifier.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Valid reports whether s is one of the known sentiments.
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// Urgency is how quickly a feedback item needs attention.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// Valid reports whether u is one of the known urgency levels.
func (u Urgency) Valid() bool {
	return u.Rank() > 0
}

// Rank orders urgency levels from 1 (low) to 4 (critical). Unknown values rank 0.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyLow:
		return 1
	case UrgencyMedium:
		return 2
	case UrgencyHigh:
		return 3
	case UrgencyCritical:
		return 4
	}
	return 0
}

// Submission is a raw feedback item as supplied by a caller or collector.
type Submission struct {
	Source   string `json:"source"`
	Content  string `json:"content"`
	SourceID string `json:"sourceId,omitempty"`
	Author   string `json:"author,omitempty"`
	Metadata string `json:"metadata,omitempty"`
}

// UnmarshalJSON accepts metadata as a string or as any JSON value, which is
// kept as compact JSON text.
func (s *Submission) UnmarshalJSON(data []byte) error {
	type plain Submission
	var aux struct {
		plain
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = Submission(aux.plain)
	s.Metadata = ""

	raw := bytes.TrimSpace(aux.Metadata)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &s.Metadata); err != nil {
			return err
		}
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return err
		}
		s.Metadata = buf.String()
	}
	return nil
}

// ValidationError names a missing or invalid required field.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// Validate checks the required fields.
func (s Submission) Validate() error {
	if strings.TrimSpace(s.Content) == "" {
		return &ValidationError{Field: "content"}
	}
	if strings.TrimSpace(s.Source) == "" {
		return &ValidationError{Field: "source"}
	}
	return nil
}

// Annotation is the classifier's structured view of a feedback item.
type Annotation struct {
	Sentiment      Sentiment `json:"sentiment"`
	SentimentScore float64   `json:"sentiment_score"`
	Urgency        Urgency   `json:"urgency"`
	Themes         []string  `json:"themes"`
	Summary        string    `json:"summary"`
}

const fallbackSummaryLen = 100

// FallbackAnnotation is used whenever the model cannot produce a usable annotation.
func FallbackAnnotation(content string) Annotation {
	summary := content
	if r := []rune(content); len(r) > fallbackSummaryLen {
		summary = string(r[:fallbackSummaryLen])
	}
	return Annotation{
		Sentiment:      SentimentNeutral,
		SentimentScore: 0,
		Urgency:        UrgencyMedium,
		Themes:         []string{},
		Summary:        summary,
	}
}

// Record is a persisted, annotated feedback item.
//
// Sentiment, Urgency and Summary are empty and SentimentScore is nil for rows
// that were never annotated.
type Record struct {
	ID             string     `json:"id"`
	Source         string     `json:"source"`
	SourceID       string     `json:"sourceId"`
	Author         string     `json:"author"`
	Metadata       string     `json:"metadata"`
	Content        string     `json:"content"`
	Sentiment      Sentiment  `json:"sentiment"`
	SentimentScore *float64   `json:"sentimentScore"`
	Urgency        Urgency    `json:"urgency"`
	Themes         []string   `json:"themes"`
	Summary        string     `json:"summary"`
	AnalyzedAt     *time.Time `json:"analyzedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// NewRecord merges a submission with its annotation.
func NewRecord(sub Submission, ann Annotation, analyzedAt time.Time) Record {
	score := ann.SentimentScore
	themes := ann.Themes
	if themes == nil {
		themes = []string{}
	}
	return Record{
		Source:         strings.TrimSpace(sub.Source),
		SourceID:       sub.SourceID,
		Author:         sub.Author,
		Metadata:       sub.Metadata,
		Content:        sub.Content,
		Sentiment:      ann.Sentiment,
		SentimentScore: &score,
		Urgency:        ann.Urgency,
		Themes:         themes,
		Summary:        ann.Summary,
		AnalyzedAt:     &analyzedAt,
	}
}

// Annotation returns the annotation part of the record.
func (r Record) Annotation() Annotation {
	var score float64
	if r.SentimentScore != nil {
		score = *r.SentimentScore
	}
	return Annotation{
		Sentiment:      r.Sentiment,
		SentimentScore: score,
		Urgency:        r.Urgency,
		Themes:         r.Themes,
		Summary:        r.Summary,
	}
}
