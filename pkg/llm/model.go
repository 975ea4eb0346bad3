package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elonfeng/feedpulse/pkg/metrics"
)

// ErrDisabled is returned by the Disabled model.
var ErrDisabled = errors.New("llm: no model backend configured")

// Model is a single-shot text completion backend.
type Model interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures a backend.
type Config struct {
	Provider string // "openai", "anthropic", "bedrock" or "none"
	Model    string
	APIKey   string
	BaseURL  string // custom endpoint (optional)
	Region   string // bedrock only
}

// New creates the configured model backend. openai and anthropic without an
// API key degrade to Disabled so the service can still ingest feedback.
func New(ctx context.Context, cfg Config) (Model, error) {
	var m Model
	switch cfg.Provider {
	case "", "none":
		return Disabled{}, nil
	case "openai":
		if cfg.APIKey == "" {
			return Disabled{}, nil
		}
		m = NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "anthropic", "claude":
		if cfg.APIKey == "" {
			return Disabled{}, nil
		}
		m = NewAnthropic(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "bedrock", "aws":
		b, err := NewBedrock(ctx, cfg.Region, cfg.Model)
		if err != nil {
			return nil, err
		}
		m = b
	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: openai, anthropic, bedrock, none)", cfg.Provider)
	}
	return Instrument(m), nil
}

// Disabled always fails with ErrDisabled.
type Disabled struct{}

func (Disabled) Name() string { return "disabled" }

func (Disabled) Complete(context.Context, string) (string, error) {
	return "", ErrDisabled
}

type instrumented struct {
	Model
}

// Instrument records call latency and outcome for m.
func Instrument(m Model) Model {
	return instrumented{Model: m}
}

func (i instrumented) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := i.Model.Complete(ctx, prompt)
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ModelRequestDuration.WithLabelValues(i.Model.Name(), result).Observe(time.Since(start).Seconds())
	return out, err
}
