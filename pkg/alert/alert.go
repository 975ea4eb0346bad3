package alert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/elonfeng/feedpulse/pkg/feedback"
)

// Notification describes one urgent feedback item.
type Notification struct {
	FeedbackID string             `json:"feedback_id"`
	Source     string             `json:"source"`
	Author     string             `json:"author,omitempty"`
	Urgency    feedback.Urgency   `json:"urgency"`
	Sentiment  feedback.Sentiment `json:"sentiment"`
	Score      float64            `json:"sentiment_score"`
	Themes     []string           `json:"themes"`
	Summary    string             `json:"summary"`
	Content    string             `json:"content"`
	CreatedAt  time.Time          `json:"created_at"`
}

// NewNotification builds a notification from a stored record.
func NewNotification(rec feedback.Record) *Notification {
	ann := rec.Annotation()
	return &Notification{
		FeedbackID: rec.ID,
		Source:     rec.Source,
		Author:     rec.Author,
		Urgency:    ann.Urgency,
		Sentiment:  ann.Sentiment,
		Score:      ann.SentimentScore,
		Themes:     ann.Themes,
		Summary:    ann.Summary,
		Content:    rec.Content,
		CreatedAt:  rec.CreatedAt,
	}
}

// Title is the one-line headline used by chat notifiers.
func (n *Notification) Title() string {
	return fmt.Sprintf("%s feedback from %s", strings.ToUpper(string(n.Urgency)), n.Source)
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications for feedback at or above a minimum urgency.
type Manager struct {
	notifiers  []Notifier
	minUrgency feedback.Urgency
}

// NewManager creates a new alert manager. An invalid minUrgency means critical.
func NewManager(notifiers []Notifier, minUrgency feedback.Urgency) *Manager {
	if !minUrgency.Valid() {
		minUrgency = feedback.UrgencyCritical
	}
	return &Manager{notifiers: notifiers, minUrgency: minUrgency}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return m != nil && len(m.notifiers) > 0
}

// ShouldAlert reports whether u meets the configured threshold.
func (m *Manager) ShouldAlert(u feedback.Urgency) bool {
	return m.HasNotifiers() && u.Rank() >= m.minUrgency.Rank()
}

// Broadcast sends a notification to all registered notifiers.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// postJSON sends body to url and treats any non-2xx status as an error.
func postJSON(ctx context.Context, client *http.Client, name, url string, body []byte, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s status %d", name, resp.StatusCode)
	}
	return nil
}

func themeList(themes []string) string {
	if len(themes) == 0 {
		return "none"
	}
	return strings.Join(themes, ", ")
}
