// Package pipeline wires classification, persistence, caching and alerting
// into the operations served by the API and the CLI.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elonfeng/feedpulse/internal/logger"
	"github.com/elonfeng/feedpulse/internal/store"
	"github.com/elonfeng/feedpulse/pkg/alert"
	"github.com/elonfeng/feedpulse/pkg/analysis"
	"github.com/elonfeng/feedpulse/pkg/cache"
	"github.com/elonfeng/feedpulse/pkg/feedback"
	"github.com/elonfeng/feedpulse/pkg/llm"
	"github.com/elonfeng/feedpulse/pkg/metrics"
	"github.com/elonfeng/feedpulse/pkg/stats"
)

const (
	DefaultMaxListLimit  = 500
	DefaultSummaryWindow = 20
)

// Options tunes the pipeline. Zero values take the defaults.
type Options struct {
	MaxListLimit  int
	SummaryWindow int
}

// Pipeline is the feedback ingestion and reporting service.
type Pipeline struct {
	store      store.Store
	classifier *analysis.Classifier
	summarizer *analysis.Summarizer
	cache      *cache.StatsCache
	alerts     *alert.Manager
	log        *logger.Logger
	now        func() time.Time

	maxListLimit  int
	summaryWindow int
}

// New creates a pipeline. alerts may be nil.
func New(s store.Store, model llm.Model, c *cache.StatsCache, alerts *alert.Manager, log *logger.Logger, opts Options) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	if opts.MaxListLimit <= 0 {
		opts.MaxListLimit = DefaultMaxListLimit
	}
	if opts.SummaryWindow <= 0 {
		opts.SummaryWindow = DefaultSummaryWindow
	}
	return &Pipeline{
		store:         s,
		classifier:    analysis.NewClassifier(model, log),
		summarizer:    analysis.NewSummarizer(model),
		cache:         c,
		alerts:        alerts,
		log:           log,
		now:           time.Now,
		maxListLimit:  opts.MaxListLimit,
		summaryWindow: opts.SummaryWindow,
	}
}

// WithClock replaces the time source used for analyzedAt and stats. Used by tests.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Submit classifies, stores and announces one feedback item. A
// *feedback.ValidationError is returned for missing required fields.
func (p *Pipeline) Submit(ctx context.Context, sub feedback.Submission) (feedback.Record, error) {
	rec, err := p.ingest(ctx, sub)
	if err != nil {
		return feedback.Record{}, err
	}
	p.cache.Invalidate(ctx)
	p.notify(ctx, rec)
	return rec, nil
}

// ingest annotates and persists sub without touching the cache.
func (p *Pipeline) ingest(ctx context.Context, sub feedback.Submission) (feedback.Record, error) {
	if err := sub.Validate(); err != nil {
		return feedback.Record{}, err
	}

	ann := p.classifier.Annotate(ctx, sub.Content)
	rec := feedback.NewRecord(sub, ann, p.now().UTC())
	if _, err := p.store.Insert(ctx, &rec); err != nil {
		return feedback.Record{}, err
	}

	if err := p.store.TallyThemes(ctx, rec.Themes, rec.CreatedAt); err != nil {
		p.log.Warn("theme tally update failed", "id", rec.ID, "error", err)
	}
	metrics.FeedbackIngested.WithLabelValues(metrics.SourceLabel(rec.Source)).Inc()
	p.log.Debug("feedback stored", "id", rec.ID, "source", rec.Source,
		"sentiment", rec.Sentiment, "urgency", rec.Urgency)
	return rec, nil
}

func (p *Pipeline) notify(ctx context.Context, rec feedback.Record) {
	if !p.alerts.ShouldAlert(rec.Urgency) {
		return
	}
	if err := p.alerts.Broadcast(ctx, alert.NewNotification(rec)); err != nil {
		metrics.AlertFailures.Inc()
		p.log.Warn("urgent feedback alert failed", "id", rec.ID, "error", err)
	}
}

// Ingest submits collected items one at a time, skipping those already stored
// under the same source and source id. Invalid items are logged and skipped.
func (p *Pipeline) Ingest(ctx context.Context, subs []feedback.Submission) (int, error) {
	ingested := 0
	for _, sub := range subs {
		seen, err := p.store.HasSource(ctx, sub.Source, sub.SourceID)
		if err != nil {
			return ingested, err
		}
		if seen {
			continue
		}

		if _, err := p.Submit(ctx, sub); err != nil {
			var verr *feedback.ValidationError
			if errors.As(err, &verr) {
				p.log.Warn("skipping collected item", "source", sub.Source, "source_id", sub.SourceID, "error", err)
				continue
			}
			return ingested, err
		}
		ingested++
	}
	return ingested, nil
}

// List returns a page of records and the number of records matching the filters.
func (p *Pipeline) List(ctx context.Context, opts store.ListOpts) ([]feedback.Record, int, error) {
	if opts.Limit <= 0 {
		opts.Limit = store.DefaultListLimit
	}
	if opts.Limit > p.maxListLimit {
		opts.Limit = p.maxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	records, err := p.store.List(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	total, err := p.store.Count(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// CountBy groups all records by one dimension.
func (p *Pipeline) CountBy(ctx context.Context, dim store.Dimension) (map[string]int, error) {
	return p.store.CountBy(ctx, dim)
}

// Themes returns the running theme tally.
func (p *Pipeline) Themes(ctx context.Context, limit int) ([]store.ThemeTally, error) {
	return p.store.TopTallies(ctx, limit)
}

// Stats serves the cached snapshot or recomputes it from the store.
func (p *Pipeline) Stats(ctx context.Context) (stats.Stats, error) {
	if s, ok := p.cache.Get(ctx); ok {
		return *s, nil
	}

	records, err := p.store.All(ctx)
	if err != nil {
		return stats.Stats{}, fmt.Errorf("compute stats: %w", err)
	}
	s := stats.Compute(records, p.now().UTC())
	p.cache.Put(ctx, s)
	return s, nil
}

// Summary narrates the most recent feedback. It returns the number of
// records the summary was built from.
func (p *Pipeline) Summary(ctx context.Context) (string, int, error) {
	records, err := p.store.List(ctx, store.ListOpts{Limit: p.summaryWindow})
	if err != nil {
		return "", 0, err
	}
	summary, err := p.summarizer.Summarize(ctx, records)
	if err != nil {
		return "", 0, err
	}
	return summary, len(records), nil
}

// Init bootstraps the schema.
func (p *Pipeline) Init(ctx context.Context) error {
	if err := p.store.Migrate(ctx); err != nil {
		return err
	}
	p.cache.Invalidate(ctx)
	return nil
}

// Reset deletes all feedback.
func (p *Pipeline) Reset(ctx context.Context) error {
	if err := p.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("reset feedback: %w", err)
	}
	p.cache.Invalidate(ctx)
	return nil
}

// Seed replaces all feedback with the demo set. Items are classified and
// stored strictly one after another; no alerts are sent.
func (p *Pipeline) Seed(ctx context.Context) (int, error) {
	if err := p.store.DeleteAll(ctx); err != nil {
		return 0, fmt.Errorf("clear before seed: %w", err)
	}
	defer p.cache.Invalidate(ctx)

	imported := 0
	for _, sub := range DemoFeedback {
		if _, err := p.ingest(ctx, sub); err != nil {
			return imported, fmt.Errorf("seed item %d: %w", imported+1, err)
		}
		imported++
	}
	p.log.Info("demo feedback loaded", "imported", imported)
	return imported, nil
}
