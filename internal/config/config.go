package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/elonfeng/feedpulse/pkg/source"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	LLM      LLMConfig      `yaml:"llm"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Feedback FeedbackConfig `yaml:"feedback"`
	Sources  SourcesConfig  `yaml:"sources"`
	Filter   FilterConfig   `yaml:"filter"`
	Alerts   AlertsConfig   `yaml:"alerts"`
}

// DatabaseConfig selects the feedback store. Driver is "sqlite" (Path) or
// "postgres" (DSN).
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

// Source returns the driver-specific data source name.
func (d DatabaseConfig) Source() string {
	if d.Driver == "postgres" {
		return d.DSN
	}
	return d.Path
}

// CacheConfig configures the stats cache. An empty RedisAddr keeps the cache
// in process memory.
type CacheConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	StatsTTL      string `yaml:"stats_ttl"`
}

// ParseStatsTTL returns the stats TTL as time.Duration.
func (c CacheConfig) ParseStatsTTL() time.Duration {
	d, err := time.ParseDuration(c.StatsTTL)
	if err != nil || d <= 0 {
		return 300 * time.Second
	}
	return d
}

// LLMConfig configures the model used for classification and summaries.
type LLMConfig struct {
	Provider string `yaml:"provider"` // "openai", "anthropic", "bedrock" or "none"
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"` // custom endpoint (optional)
	Region   string `yaml:"region"`   // bedrock only
}

// ServerConfig configures the HTTP server. URL is where CLI commands reach a
// running server; it defaults to the local port.
type ServerConfig struct {
	Port int    `yaml:"port"`
	URL  string `yaml:"url"`
}

// BaseURL returns the address of the running server.
func (s ServerConfig) BaseURL() string {
	if s.URL != "" {
		return s.URL
	}
	return fmt.Sprintf("http://127.0.0.1:%d", s.Port)
}

// LogConfig selects the zap preset: "prod" or "dev".
type LogConfig struct {
	Mode string `yaml:"mode"`
}

// ScheduleConfig configures the collection interval.
type ScheduleConfig struct {
	CollectInterval string `yaml:"collect_interval"`
}

// ParseCollectInterval returns the collect interval as time.Duration.
func (s ScheduleConfig) ParseCollectInterval() time.Duration {
	d, err := time.ParseDuration(s.CollectInterval)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// FeedbackConfig bounds list and summary queries.
type FeedbackConfig struct {
	MaxListLimit  int `yaml:"max_list_limit"`
	SummaryWindow int `yaml:"summary_window"`
}

// SourcesConfig holds configuration for the collectors.
type SourcesConfig struct {
	RSS    RSSConfig    `yaml:"rss"`
	GitHub GitHubConfig `yaml:"github"`
}

// RSSConfig for RSS feed collector.
type RSSConfig struct {
	Enabled bool             `yaml:"enabled"`
	Feeds   []source.RSSFeed `yaml:"feeds"`
}

// GitHubConfig for GitHub issues collector.
type GitHubConfig struct {
	Enabled bool     `yaml:"enabled"`
	Token   string   `yaml:"token"`
	Repos   []string `yaml:"repos"`
}

// FilterConfig configures collected content filtering.
type FilterConfig struct {
	IncludeKeywords []string `yaml:"include_keywords"`
	ExcludeKeywords []string `yaml:"exclude_keywords"`
}

// AlertsConfig configures alert destinations.
type AlertsConfig struct {
	MinUrgency string        `yaml:"min_urgency"`
	Slack      SlackConfig   `yaml:"slack"`
	Discord    DiscordConfig `yaml:"discord"`
	Webhook    WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook alerts.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: "sqlite", Path: "./feedpulse.db"},
		Cache:    CacheConfig{StatsTTL: "300s"},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		Server:   ServerConfig{Port: 3000},
		Log:      LogConfig{Mode: "dev"},
		Schedule: ScheduleConfig{CollectInterval: "15m"},
		Feedback: FeedbackConfig{MaxListLimit: 500, SummaryWindow: 20},
		Alerts:   AlertsConfig{MinUrgency: "critical"},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FEEDPULSE_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("FEEDPULSE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
		cfg.Database.Driver = "postgres"
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Cache.RedisPassword = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
		cfg.LLM.Provider = "openai"
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
		cfg.LLM.Provider = "anthropic"
		if cfg.LLM.Model == "gpt-4o-mini" {
			cfg.LLM.Model = ""
		}
	}
	if v := os.Getenv("FEEDPULSE_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("FEEDPULSE_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.LLM.Region = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		cfg.Sources.GitHub.Token = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
	if v := os.Getenv("FEEDPULSE_LOG_MODE"); v != "" {
		cfg.Log.Mode = v
	}
	if v := os.Getenv("FEEDPULSE_SERVER_URL"); v != "" {
		cfg.Server.URL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
}
