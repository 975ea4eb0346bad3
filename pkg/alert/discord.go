package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elonfeng/feedpulse/pkg/feedback"
)

// Discord sends notifications via Discord webhook.
type Discord struct {
	client     *http.Client
	webhookURL string
}

// NewDiscord creates a new Discord notifier.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{
		client:     &http.Client{Timeout: 10 * time.Second},
		webhookURL: webhookURL,
	}
}

func (d *Discord) Name() string { return "discord" }

func (d *Discord) Send(ctx context.Context, n *Notification) error {
	color := 0xFF9900
	if n.Urgency == feedback.UrgencyCritical {
		color = 0xE01E1E
	}

	embed := map[string]any{
		"title": "🚨 " + n.Title(),
		"description": fmt.Sprintf("**Sentiment:** %s (%.2f) | **Themes:** %s\n\n%s\n\n> %s",
			n.Sentiment, n.Score, themeList(n.Themes), n.Summary, truncate(n.Content, 500)),
		"color":     color,
		"timestamp": n.CreatedAt.UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(map[string]any{"embeds": []map[string]any{embed}})
	if err != nil {
		return fmt.Errorf("marshal discord payload: %w", err)
	}
	return postJSON(ctx, d.client, "discord webhook", d.webhookURL, body, nil)
}
