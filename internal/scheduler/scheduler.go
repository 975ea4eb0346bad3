package scheduler

import (
	"context"
	"time"

	"github.com/elonfeng/feedpulse/internal/logger"
	"github.com/elonfeng/feedpulse/pkg/feedback"
	"github.com/elonfeng/feedpulse/pkg/source"
)

// Ingester stores collected submissions, returning how many were new.
type Ingester interface {
	Ingest(ctx context.Context, subs []feedback.Submission) (int, error)
}

// Scheduler runs periodic collection.
type Scheduler struct {
	ingester   Ingester
	sources    []source.Source
	collectInt time.Duration
	log        *logger.Logger
}

// New creates a new scheduler.
func New(ingester Ingester, sources []source.Source, collectInt time.Duration, log *logger.Logger) *Scheduler {
	if collectInt <= 0 {
		collectInt = 15 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		ingester:   ingester,
		sources:    sources,
		collectInt: collectInt,
		log:        log,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.collectInt)
	defer ticker.Stop()

	s.log.Info("scheduler: initial collection", "sources", len(s.sources))
	s.CollectAll(ctx)
	s.log.Info("scheduler: running", "collect_interval", s.collectInt.String())

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler: stopped")
			return ctx.Err()
		case <-ticker.C:
			s.CollectAll(ctx)
		}
	}
}

// CollectAll runs every source once and returns the number of new items.
func (s *Scheduler) CollectAll(ctx context.Context) int {
	total := 0
	for _, src := range s.sources {
		subs, err := src.Collect(ctx)
		if err != nil {
			s.log.Warn("collect failed", "source", src.Name(), "error", err)
			continue
		}

		n, err := s.ingester.Ingest(ctx, subs)
		if err != nil {
			s.log.Error("ingest failed", "source", src.Name(), "error", err)
		}
		s.log.Info("collected", "source", src.Name(), "items", len(subs), "new", n)
		total += n
	}
	return total
}
