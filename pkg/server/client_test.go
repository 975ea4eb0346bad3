package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/feedpulse/internal/store"
	"github.com/elonfeng/feedpulse/pkg/cache"
	"github.com/elonfeng/feedpulse/pkg/llm"
	"github.com/elonfeng/feedpulse/pkg/pipeline"
)

// newProcess mimics one feedpulse process: its own store handle and its own
// in-memory stats cache over a shared database file.
func newProcess(t *testing.T, dbPath string) *pipeline.Pipeline {
	t.Helper()
	s, err := store.New("sqlite", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	c := cache.NewStatsCache(cache.NewMemory(), time.Minute, nil)
	return pipeline.New(s, llm.Disabled{}, c, nil, nil, pipeline.Options{})
}

func TestInvalidateRunningServerAfterSeparateWrite(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "feedback.db")
	serving := newProcess(t, dbPath)
	cli := newProcess(t, dbPath)

	srv := httptest.NewServer(New(serving, nil, 0).Handler())
	defer srv.Close()

	st, err := serving.Stats(ctx)
	require.NoError(t, err)
	require.Zero(t, st.Total)

	n, err := cli.Seed(ctx)
	require.NoError(t, err)

	st, err = serving.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Total, "per-process cache still holds the old snapshot")

	reached, err := NewClient(srv.URL + "/").Invalidate(ctx)
	require.NoError(t, err)
	assert.True(t, reached)

	st, err = serving.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, st.Total)
}

func TestInvalidateWithoutServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	reached, err := NewClient(url).Invalidate(context.Background())
	require.NoError(t, err)
	assert.False(t, reached)
}

func TestInvalidateReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reached, err := NewClient(srv.URL).Invalidate(context.Background())
	assert.True(t, reached)
	assert.ErrorContains(t, err, "status 500")
}
