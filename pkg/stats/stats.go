// Package stats derives dashboard aggregates from feedback records.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/elonfeng/feedpulse/pkg/feedback"
)

const (
	// TopThemesLimit is how many themes the dashboard shows.
	TopThemesLimit = 10
	// TrendDays is the trailing window of the daily trend.
	TrendDays = 7

	// UnknownBucket collects records with no value for a dimension.
	UnknownBucket = feedback.UnknownBucket
)

// ThemeCount is a theme and how many records mention it.
type ThemeCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DayTrend is the activity of one UTC calendar day.
type DayTrend struct {
	Date         string  `json:"date"`
	Count        int     `json:"count"`
	AvgSentiment float64 `json:"avgSentiment"`
}

// Stats is the aggregated dashboard view.
type Stats struct {
	Total        int            `json:"total"`
	BySentiment  map[string]int `json:"bySentiment"`
	BySource     map[string]int `json:"bySource"`
	ByUrgency    map[string]int `json:"byUrgency"`
	TopThemes    []ThemeCount   `json:"topThemes"`
	AvgSentiment float64        `json:"avgSentiment"`
	Trend        []DayTrend     `json:"trend"`
	GeneratedAt  time.Time      `json:"generatedAt"`
}

// Compute aggregates records as of now. It has no side effects; records are
// expected in storage scan order (oldest first), which decides theme ties.
func Compute(records []feedback.Record, now time.Time) Stats {
	s := Stats{
		Total:       len(records),
		BySentiment: make(map[string]int),
		BySource:    make(map[string]int),
		ByUrgency:   make(map[string]int),
		TopThemes:   TopThemes(records, TopThemesLimit),
		Trend:       DailyTrend(records, now, TrendDays),
		GeneratedAt: now,
	}

	var avg mean
	for _, r := range records {
		s.BySentiment[bucket(string(r.Sentiment))]++
		s.BySource[bucket(r.Source)]++
		s.ByUrgency[bucket(string(r.Urgency))]++
		avg.add(r.SentimentScore)
	}
	s.AvgSentiment = avg.value()
	return s
}

// TopThemes returns the k most frequent themes. Themes are compared as literal
// strings. Equal counts keep the order in which the themes were first seen.
func TopThemes(records []feedback.Record, k int) []ThemeCount {
	index := make(map[string]int)
	var counts []ThemeCount
	for _, r := range records {
		for _, th := range r.Themes {
			if i, ok := index[th]; ok {
				counts[i].Count++
				continue
			}
			index[th] = len(counts)
			counts = append(counts, ThemeCount{Name: th, Count: 1})
		}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	if len(counts) > k {
		counts = counts[:k]
	}
	if counts == nil {
		counts = []ThemeCount{}
	}
	return counts
}

// DailyTrend groups records created within [now-days, now] by UTC day,
// ascending. Days without records are omitted.
func DailyTrend(records []feedback.Record, now time.Time, days int) []DayTrend {
	since := now.AddDate(0, 0, -days)
	byDay := make(map[string]*mean)
	counts := make(map[string]int)

	for _, r := range records {
		if r.CreatedAt.Before(since) || r.CreatedAt.After(now) {
			continue
		}
		day := r.CreatedAt.UTC().Format(time.DateOnly)
		if byDay[day] == nil {
			byDay[day] = &mean{}
		}
		byDay[day].add(r.SentimentScore)
		counts[day]++
	}

	trend := make([]DayTrend, 0, len(byDay))
	for day, m := range byDay {
		trend = append(trend, DayTrend{Date: day, Count: counts[day], AvgSentiment: m.value()})
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Date < trend[j].Date })
	return trend
}

func bucket(v string) string {
	if v == "" {
		return UnknownBucket
	}
	return v
}

// mean averages the non-nil scores it is given.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m *mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return round2(m.sum / float64(m.n))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
