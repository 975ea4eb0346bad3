package feedback

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionValidate(t *testing.T) {
	err := Submission{Source: "email"}.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "content", verr.Field)
	assert.EqualError(t, err, "content is required")

	err = Submission{Content: "the app crashes", Source: "   "}.Validate()
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "source", verr.Field)

	assert.NoError(t, Submission{Source: "email", Content: "ok"}.Validate())
}

func TestFallbackAnnotation(t *testing.T) {
	content := strings.Repeat("é", 150)
	ann := FallbackAnnotation(content)

	assert.Equal(t, SentimentNeutral, ann.Sentiment)
	assert.Zero(t, ann.SentimentScore)
	assert.Equal(t, UrgencyMedium, ann.Urgency)
	assert.NotNil(t, ann.Themes)
	assert.Empty(t, ann.Themes)
	assert.Equal(t, strings.Repeat("é", 100), ann.Summary)

	assert.Equal(t, "short", FallbackAnnotation("short").Summary)
}

func TestUrgencyRank(t *testing.T) {
	assert.Less(t, UrgencyLow.Rank(), UrgencyMedium.Rank())
	assert.Less(t, UrgencyHigh.Rank(), UrgencyCritical.Rank())
	assert.False(t, Urgency("urgent").Valid())
	assert.True(t, SentimentPositive.Valid())
	assert.False(t, Sentiment("mixed").Valid())
}

func TestNewRecord(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := NewRecord(
		Submission{Source: " github ", Content: "x", Author: "ana"},
		Annotation{Sentiment: SentimentNegative, SentimentScore: -0.4, Urgency: UrgencyHigh},
		at,
	)
	assert.Equal(t, "github", rec.Source)
	require.NotNil(t, rec.SentimentScore)
	assert.Equal(t, -0.4, *rec.SentimentScore)
	assert.Equal(t, []string{}, rec.Themes)
	assert.Equal(t, at, *rec.AnalyzedAt)
	assert.Equal(t, -0.4, rec.Annotation().SentimentScore)
}

func TestSubmissionMetadataForms(t *testing.T) {
	var sub Submission
	require.NoError(t, json.Unmarshal([]byte(`{"source":"email","content":"hi","metadata":{"plan": "pro"}}`), &sub))
	assert.Equal(t, `{"plan":"pro"}`, sub.Metadata)
	assert.Equal(t, "email", sub.Source)

	require.NoError(t, json.Unmarshal([]byte(`{"source":"email","content":"hi","metadata":"ticket 42"}`), &sub))
	assert.Equal(t, "ticket 42", sub.Metadata)

	require.NoError(t, json.Unmarshal([]byte(`{"source":"email","content":"hi","metadata":null}`), &sub))
	assert.Empty(t, sub.Metadata)
}
