package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/elonfeng/feedpulse/internal/config"
	"github.com/elonfeng/feedpulse/internal/logger"
	"github.com/elonfeng/feedpulse/internal/scheduler"
	"github.com/elonfeng/feedpulse/internal/store"
	"github.com/elonfeng/feedpulse/pkg/alert"
	"github.com/elonfeng/feedpulse/pkg/cache"
	"github.com/elonfeng/feedpulse/pkg/feedback"
	"github.com/elonfeng/feedpulse/pkg/llm"
	"github.com/elonfeng/feedpulse/pkg/pipeline"
	"github.com/elonfeng/feedpulse/pkg/server"
	"github.com/elonfeng/feedpulse/pkg/source"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *store.SQLStore
	redis    *cache.Redis
	pipeline *pipeline.Pipeline
}

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := store.New(cfg.Database.Driver, cfg.Database.Source())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	a := &app{cfg: cfg, log: log, db: db}

	var backend cache.Backend = cache.NewMemory()
	if cfg.Cache.RedisAddr != "" {
		r, err := cache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			log.Warn("redis unavailable, using in-memory stats cache", "addr", cfg.Cache.RedisAddr, "error", err)
		} else {
			a.redis = r
			backend = r
		}
	}
	statsCache := cache.NewStatsCache(backend, cfg.Cache.ParseStatsTTL(), log)

	model, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Region:   cfg.LLM.Region,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init model: %w", err)
	}
	log.Info("model backend ready", "backend", model.Name(), "store", cfg.Database.Driver)

	a.pipeline = pipeline.New(db, model, statsCache, buildAlertManager(cfg), log, pipeline.Options{
		MaxListLimit:  cfg.Feedback.MaxListLimit,
		SummaryWindow: cfg.Feedback.SummaryWindow,
	})
	return a, nil
}

// syncServer makes a running server drop its stats snapshot after a CLI
// write. With Redis the write already removed the shared key.
func (a *app) syncServer(ctx context.Context) {
	if a.redis != nil {
		return
	}
	url := a.cfg.Server.BaseURL()
	reached, err := server.NewClient(url).Invalidate(ctx)
	switch {
	case err != nil:
		a.log.Warn("running server was not invalidated and may serve stale stats until the cache TTL expires; set cache.redis_addr to share the cache",
			"server", url, "ttl", a.cfg.Cache.ParseStatsTTL().String(), "error", err)
	case reached:
		a.log.Info("invalidated stats cache of running server", "server", url)
	}
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
	a.db.Close()
	a.log.Sync()
}

func buildSources(cfg *config.Config, log *logger.Logger) []source.Source {
	filter := source.NewFilter(cfg.Filter.IncludeKeywords, cfg.Filter.ExcludeKeywords)
	var sources []source.Source

	if cfg.Sources.RSS.Enabled && len(cfg.Sources.RSS.Feeds) > 0 {
		sources = append(sources, source.NewRSS(cfg.Sources.RSS.Feeds, filter, log))
	}
	if cfg.Sources.GitHub.Enabled && len(cfg.Sources.GitHub.Repos) > 0 {
		sources = append(sources, source.NewGitHub(cfg.Sources.GitHub.Token, cfg.Sources.GitHub.Repos, filter, log))
	}

	return sources
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers, feedback.Urgency(strings.ToLower(cfg.Alerts.MinUrgency)))
}

func runServe(port int, withScheduler bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if port == 0 {
		port = a.cfg.Server.Port
	}

	if withScheduler {
		sched := scheduler.New(a.pipeline, buildSources(a.cfg, a.log), a.cfg.Schedule.ParseCollectInterval(), a.log)
		go func() {
			if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
				a.log.Error("scheduler error", "error", err)
			}
		}()
	}

	err = server.New(a.pipeline, a.log, port).ListenAndServe(ctx)
	a.log.Info("shutting down")
	return err
}

func runCollect(filterSources []string) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	all := buildSources(a.cfg, a.log)
	sources := all
	if len(filterSources) > 0 {
		wanted := make(map[string]bool)
		for _, s := range filterSources {
			wanted[strings.ToLower(strings.TrimSpace(s))] = true
		}
		sources = nil
		for _, s := range all {
			if wanted[s.Name()] {
				sources = append(sources, s)
			}
		}
		if len(sources) == 0 {
			return fmt.Errorf("no matching sources for: %s", strings.Join(filterSources, ", "))
		}
	}
	if len(sources) == 0 {
		return errors.New("no sources enabled (configure sources.rss or sources.github)")
	}

	total := scheduler.New(a.pipeline, sources, 0, a.log).CollectAll(ctx)
	if total > 0 {
		a.syncServer(ctx)
	}
	fmt.Fprintf(os.Stderr, "\ntotal: %d new items from %d sources\n", total, len(sources))
	return nil
}

func runSeed() error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	n, err := a.pipeline.Seed(ctx)
	a.syncServer(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d demo feedback items\n", n)
	return nil
}

func runReset() error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	err = a.pipeline.Reset(ctx)
	a.syncServer(ctx)
	if err != nil {
		return err
	}
	fmt.Println("all feedback deleted")
	return nil
}

func runStats(jsonOutput bool) error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	st, err := a.pipeline.Stats(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	if st.Total == 0 {
		fmt.Println("no feedback yet (try: feedpulse seed)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TOTAL\t%d\n", st.Total)
	fmt.Fprintf(w, "AVG SENTIMENT\t%.2f\n", st.AvgSentiment)
	printCounts(w, "SENTIMENT", st.BySentiment)
	printCounts(w, "URGENCY", st.ByUrgency)
	printCounts(w, "SOURCE", st.BySource)
	fmt.Fprintln(w, "\nTHEME\tCOUNT")
	for _, t := range st.TopThemes {
		fmt.Fprintf(w, "%s\t%d\n", t.Name, t.Count)
	}
	fmt.Fprintln(w, "\nDAY\tCOUNT\tAVG SENTIMENT")
	for _, d := range st.Trend {
		fmt.Fprintf(w, "%s\t%d\t%.2f\n", d.Date, d.Count, d.AvgSentiment)
	}
	return w.Flush()
}

func printCounts(w *tabwriter.Writer, title string, counts map[string]int) {
	fmt.Fprintf(w, "\n%s\tCOUNT\n", title)
	for k, v := range counts {
		fmt.Fprintf(w, "%s\t%d\n", k, v)
	}
}

func runSummary() error {
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	summary, n, err := a.pipeline.Summary(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "based on %d most recent items\n\n", n)
	fmt.Println(summary)
	return nil
}
