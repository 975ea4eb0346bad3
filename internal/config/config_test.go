package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "./feedpulse.db", cfg.Database.Source())
	assert.Equal(t, 300*time.Second, cfg.Cache.ParseStatsTTL())
	assert.Equal(t, 15*time.Minute, cfg.Schedule.ParseCollectInterval())
	assert.Equal(t, "critical", cfg.Alerts.MinUrgency)
	assert.Equal(t, 500, cfg.Feedback.MaxListLimit)
	assert.Equal(t, "http://127.0.0.1:3000", cfg.Server.BaseURL())
}

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedpulse.yaml")
	yml := `
database:
  driver: sqlite
  path: /var/lib/feedpulse.db
cache:
  stats_ttl: 90s
schedule:
  collect_interval: nonsense
sources:
  rss:
    enabled: true
    feeds:
      - name: Play Store
        url: https://reviews.example/feed.xml
        source: playstore
alerts:
  min_urgency: high
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("DATABASE_URL", "postgres://fp@localhost/feedpulse?sslmode=disable")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("PORT", "8088")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://fp@localhost/feedpulse?sslmode=disable", cfg.Database.Source())
	assert.Equal(t, 90*time.Second, cfg.Cache.ParseStatsTTL())
	assert.Equal(t, 15*time.Minute, cfg.Schedule.ParseCollectInterval())
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Empty(t, cfg.LLM.Model)
	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, "http://127.0.0.1:8088", cfg.Server.BaseURL())
	require.Len(t, cfg.Sources.RSS.Feeds, 1)
	assert.Equal(t, "playstore", cfg.Sources.RSS.Feeds[0].Source)
	assert.Equal(t, "high", cfg.Alerts.MinUrgency)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
