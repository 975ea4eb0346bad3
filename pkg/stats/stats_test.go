package stats

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/feedpulse/pkg/feedback"
)

func score(v float64) *float64 { return &v }

func TestTopThemesStableTieBreak(t *testing.T) {
	records := []feedback.Record{
		{Themes: []string{"a", "b"}},
		{Themes: []string{"a"}},
		{Themes: []string{"c"}},
	}
	assert.Equal(t, []ThemeCount{
		{Name: "a", Count: 2},
		{Name: "b", Count: 1},
		{Name: "c", Count: 1},
	}, TopThemes(records, 10))
}

func TestTopThemesLiteralAndLimited(t *testing.T) {
	var records []feedback.Record
	for i := 0; i < 12; i++ {
		records = append(records, feedback.Record{Themes: []string{fmt.Sprintf("t%02d", i)}})
	}
	records = append(records, feedback.Record{Themes: []string{"t11", "Pricing", "pricing "}})

	top := TopThemes(records, 10)
	require.Len(t, top, 10)
	assert.Equal(t, ThemeCount{Name: "t11", Count: 2}, top[0])
	assert.Equal(t, "t00", top[1].Name)
	assert.Equal(t, "t08", top[9].Name)

	all := TopThemes(records, 100)
	assert.Len(t, all, 14, "case and whitespace variants are distinct themes")
}

func TestTopThemesEmpty(t *testing.T) {
	top := TopThemes(nil, 10)
	assert.NotNil(t, top)
	assert.Empty(t, top)
}

func TestComputeBreakdowns(t *testing.T) {
	now := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)
	records := []feedback.Record{
		{Source: "github", Sentiment: feedback.SentimentNegative, Urgency: feedback.UrgencyHigh, SentimentScore: score(-0.5), CreatedAt: now.Add(-time.Hour)},
		{Source: "email", Sentiment: feedback.SentimentPositive, Urgency: feedback.UrgencyLow, SentimentScore: score(0.8), CreatedAt: now.Add(-2 * time.Hour)},
		{Source: "github", CreatedAt: now.Add(-3 * time.Hour)},
	}

	s := Compute(records, now)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, map[string]int{"github": 2, "email": 1}, s.BySource)
	assert.Equal(t, map[string]int{"negative": 1, "positive": 1, UnknownBucket: 1}, s.BySentiment)
	assert.Equal(t, map[string]int{"high": 1, "low": 1, UnknownBucket: 1}, s.ByUrgency)
	assert.Equal(t, 0.15, s.AvgSentiment, "nil scores are excluded from the mean")
	assert.Equal(t, now, s.GeneratedAt)
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil, time.Now())
	assert.Zero(t, s.Total)
	assert.Zero(t, s.AvgSentiment)
	assert.Empty(t, s.Trend)
	assert.NotNil(t, s.TopThemes)
	assert.NotNil(t, s.BySource)
}

func TestDailyTrend(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	records := []feedback.Record{
		// Outside the window, then exactly on its inclusive lower bound.
		{CreatedAt: now.AddDate(0, 0, -8), SentimentScore: score(1)},
		{CreatedAt: now.AddDate(0, 0, -7), SentimentScore: score(0.5)},
		{CreatedAt: now.Add(-time.Hour), SentimentScore: score(0.2)},
		{CreatedAt: now.Add(-2 * time.Hour), SentimentScore: score(-0.6)},
		{CreatedAt: now.Add(-3 * time.Hour)},
		{CreatedAt: now.AddDate(0, 0, -3), SentimentScore: score(1.0 / 3)},
		// After now.
		{CreatedAt: now.Add(time.Hour), SentimentScore: score(1)},
	}

	assert.Equal(t, []DayTrend{
		{Date: "2026-05-03", Count: 1, AvgSentiment: 0.5},
		{Date: "2026-05-07", Count: 1, AvgSentiment: 0.33},
		{Date: "2026-05-10", Count: 3, AvgSentiment: -0.2},
	}, DailyTrend(records, now, TrendDays))
}
