package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/feedpulse/pkg/feedback"
	"github.com/elonfeng/feedpulse/pkg/source"
)

type stubSource struct {
	name string
	subs []feedback.Submission
	err  error
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) Collect(context.Context) ([]feedback.Submission, error) {
	return s.subs, s.err
}

type recordingIngester struct {
	mu    sync.Mutex
	calls int
	seen  []feedback.Submission
}

func (r *recordingIngester) Ingest(_ context.Context, subs []feedback.Submission) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.seen = append(r.seen, subs...)
	return len(subs), nil
}

func (r *recordingIngester) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestCollectAllSkipsFailingSources(t *testing.T) {
	ing := &recordingIngester{}
	s := New(ing, []source.Source{
		stubSource{name: "rss", err: errors.New("timeout")},
		stubSource{name: "github", subs: []feedback.Submission{{Source: "github", Content: "bug"}}},
	}, time.Minute, nil)

	assert.Equal(t, 1, s.CollectAll(context.Background()))
	require.Len(t, ing.seen, 1)
	assert.Equal(t, "bug", ing.seen[0].Content)
}

func TestRunCollectsImmediatelyAndStops(t *testing.T) {
	ing := &recordingIngester{}
	s := New(ing, []source.Source{stubSource{name: "rss"}}, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return ing.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
