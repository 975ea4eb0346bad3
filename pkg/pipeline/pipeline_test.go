package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/feedpulse/internal/store"
	"github.com/elonfeng/feedpulse/pkg/alert"
	"github.com/elonfeng/feedpulse/pkg/analysis"
	"github.com/elonfeng/feedpulse/pkg/cache"
	"github.com/elonfeng/feedpulse/pkg/feedback"
	"github.com/elonfeng/feedpulse/pkg/llm"
	"github.com/elonfeng/feedpulse/pkg/metrics"
)

const criticalCompletion = `{"sentiment":"negative","sentiment_score":-0.9,"urgency":"critical","themes":["outage","login"],"summary":"Users cannot log in."}`

type fakeModel struct {
	out   string
	err   error
	calls atomic.Int32
}

func (f *fakeModel) Name() string { return "fake" }

func (f *fakeModel) Complete(context.Context, string) (string, error) {
	f.calls.Add(1)
	return f.out, f.err
}

type harness struct {
	p     *Pipeline
	store *store.SQLStore
	cache *cache.StatsCache
}

func newHarness(t *testing.T, model llm.Model, alerts *alert.Manager, opts Options) harness {
	t.Helper()
	s, err := store.New("sqlite", filepath.Join(t.TempDir(), "feedback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	tick := 0
	start := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	s.WithClock(func() time.Time {
		tick++
		return start.Add(time.Duration(tick) * time.Second)
	})

	c := cache.NewStatsCache(cache.NewMemory(), time.Minute, nil)
	p := New(s, model, c, alerts, nil, opts).WithClock(func() time.Time { return start.Add(time.Hour) })
	return harness{p: p, store: s, cache: c}
}

func TestSubmitValidation(t *testing.T) {
	model := &fakeModel{out: criticalCompletion}
	h := newHarness(t, model, nil, Options{})

	_, err := h.p.Submit(context.Background(), feedback.Submission{Source: "email", Content: "   "})
	var verr *feedback.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "content", verr.Field)
	assert.Zero(t, model.calls.Load(), "invalid input never reaches the model")
}

func TestSubmitAnnotatesAndAlerts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	alerts := alert.NewManager([]alert.Notifier{alert.NewWebhook(srv.URL, "")}, feedback.UrgencyHigh)
	h := newHarness(t, &fakeModel{out: criticalCompletion}, alerts, Options{})

	rec, err := h.p.Submit(context.Background(), feedback.Submission{Source: "support", Content: "Nobody can log in"})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, feedback.UrgencyCritical, rec.Urgency)
	assert.Equal(t, []string{"outage", "login"}, rec.Themes)
	assert.Equal(t, int32(1), hits.Load())

	tallies, err := h.p.Themes(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, tallies, 2)
}

func TestSubmitFallsBackWhenModelFails(t *testing.T) {
	h := newHarness(t, &fakeModel{err: errors.New("timeout")}, nil, Options{})

	rec, err := h.p.Submit(context.Background(), feedback.Submission{Source: "email", Content: "Just saying hi"})
	require.NoError(t, err)
	assert.Equal(t, feedback.SentimentNeutral, rec.Sentiment)
	assert.Equal(t, feedback.UrgencyMedium, rec.Urgency)
	assert.Equal(t, "Just saying hi", rec.Summary)
	assert.Empty(t, rec.Themes)
}

func TestSubmitBlankModelSummaryFallsBack(t *testing.T) {
	model := &fakeModel{out: `{"sentiment":"negative","sentiment_score":-0.5,"urgency":"high","themes":["login"],"summary":"   "}`}
	h := newHarness(t, model, nil, Options{})
	ctx := context.Background()

	rec, err := h.p.Submit(ctx, feedback.Submission{Source: "email", Content: "Password reset link is broken"})
	require.NoError(t, err)
	assert.Equal(t, "Password reset link is broken", rec.Summary)

	records, _, err := h.p.List(ctx, store.ListOpts{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Password reset link is broken", records[0].Summary)
}

func TestIngestedMetricBoundsSourceLabel(t *testing.T) {
	h := newHarness(t, llm.Disabled{}, nil, Options{})
	ctx := context.Background()
	other := metrics.FeedbackIngested.WithLabelValues(metrics.OtherSource)
	email := metrics.FeedbackIngested.WithLabelValues("email")
	otherBefore, emailBefore := testutil.ToFloat64(other), testutil.ToFloat64(email)

	for _, src := range []string{"partner-portal-7", "partner-portal-8", "email"} {
		_, err := h.p.Submit(ctx, feedback.Submission{Source: src, Content: "hello"})
		require.NoError(t, err)
	}

	assert.Equal(t, otherBefore+2, testutil.ToFloat64(other))
	assert.Equal(t, emailBefore+1, testutil.ToFloat64(email))
}

func TestStatsCacheCoherence(t *testing.T) {
	h := newHarness(t, llm.Disabled{}, nil, Options{})
	ctx := context.Background()

	s, err := h.p.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, s.Total)

	_, cached := h.cache.Get(ctx)
	require.True(t, cached)

	_, err = h.p.Submit(ctx, feedback.Submission{Source: "email", Content: "first"})
	require.NoError(t, err)
	_, cached = h.cache.Get(ctx)
	assert.False(t, cached, "a write drops the snapshot")

	s, err = h.p.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Total)
	assert.Equal(t, map[string]int{"email": 1}, s.BySource)

	require.NoError(t, h.p.Reset(ctx))
	s, err = h.p.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, s.Total)
}

func TestSeedIsIdempotent(t *testing.T) {
	model := &fakeModel{out: criticalCompletion}
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()
	alerts := alert.NewManager([]alert.Notifier{alert.NewWebhook(srv.URL, "")}, feedback.UrgencyLow)

	h := newHarness(t, model, alerts, Options{})
	ctx := context.Background()

	n, err := h.p.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(DemoFeedback), n)

	n, err = h.p.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(DemoFeedback), n)

	_, total, err := h.p.List(ctx, store.ListOpts{})
	require.NoError(t, err)
	assert.Equal(t, len(DemoFeedback), total)
	assert.Zero(t, hits.Load(), "seeding does not page anyone")
	assert.Equal(t, int32(2*len(DemoFeedback)), model.calls.Load())
}

func TestListCapsLimit(t *testing.T) {
	h := newHarness(t, llm.Disabled{}, nil, Options{MaxListLimit: 3})
	ctx := context.Background()
	for _, c := range []string{"a", "b", "c", "d", "e"} {
		_, err := h.p.Submit(ctx, feedback.Submission{Source: "email", Content: c})
		require.NoError(t, err)
	}

	records, total, err := h.p.List(ctx, store.ListOpts{Limit: 1000, Offset: -4})
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, 5, total)
	assert.Equal(t, "e", records[0].Content)

	records, total, err = h.p.List(ctx, store.ListOpts{Source: "slack"})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, total)
}

func TestSummary(t *testing.T) {
	model := &fakeModel{out: "  Customers are unhappy about logins.  "}
	h := newHarness(t, model, nil, Options{SummaryWindow: 2})
	ctx := context.Background()

	summary, n, err := h.p.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, analysis.NoFeedbackSummary, summary)
	assert.Zero(t, n)
	assert.Zero(t, model.calls.Load())

	for _, c := range []string{"a", "b", "c"} {
		_, err := h.p.Submit(ctx, feedback.Submission{Source: "email", Content: c})
		require.NoError(t, err)
	}
	summary, n, err = h.p.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Customers are unhappy about logins.", summary)
	assert.Equal(t, 2, n)
}

func TestIngestSkipsDuplicates(t *testing.T) {
	h := newHarness(t, llm.Disabled{}, nil, Options{})
	ctx := context.Background()
	items := []feedback.Submission{
		{Source: "github", SourceID: "https://github.com/acme/app/issues/7", Content: "Crash on save"},
		{Source: "github", SourceID: "https://github.com/acme/app/issues/8", Content: ""},
	}

	n, err := h.p.Ingest(ctx, items)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = h.p.Ingest(ctx, items)
	require.NoError(t, err)
	assert.Zero(t, n)
}
