package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/elonfeng/feedpulse/internal/logger"
	"github.com/elonfeng/feedpulse/pkg/feedback"
)

// RSSFeed is a named RSS/Atom feed URL. Source labels the submissions it
// produces and defaults to "rss".
type RSSFeed struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Source string `yaml:"source"`
}

// RSS collects feedback from RSS/Atom feeds such as review or forum exports.
type RSS struct {
	client *http.Client
	parser *gofeed.Parser
	feeds  []RSSFeed
	filter *Filter
	log    *logger.Logger
	now    func() time.Time
}

// NewRSS creates a new RSS collector.
func NewRSS(feeds []RSSFeed, filter *Filter, log *logger.Logger) *RSS {
	if log == nil {
		log = logger.Nop()
	}
	return &RSS{
		client: &http.Client{Timeout: 30 * time.Second},
		parser: gofeed.NewParser(),
		feeds:  feeds,
		filter: filter,
		log:    log,
		now:    time.Now,
	}
}

func (r *RSS) Name() string { return "rss" }

// Collect reads every feed. A failing feed is logged and skipped.
func (r *RSS) Collect(ctx context.Context) ([]feedback.Submission, error) {
	var all []feedback.Submission

	for _, feed := range r.feeds {
		subs, err := r.collectFeed(ctx, feed)
		if err != nil {
			r.log.Warn("rss feed failed", "feed", feed.Name, "error", err)
			continue
		}
		all = append(all, subs...)
	}

	return all, nil
}

func (r *RSS) collectFeed(ctx context.Context, feed RSSFeed) ([]feedback.Submission, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create rss request %s: %w", feed.Name, err)
	}
	req.Header.Set("User-Agent", "feedpulse/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rss %s: %w", feed.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss %s status %d", feed.Name, resp.StatusCode)
	}

	parsed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse rss %s: %w", feed.Name, err)
	}

	label := feed.Source
	if label == "" {
		label = "rss"
	}
	cutoff := r.now().Add(-24 * time.Hour)

	var subs []feedback.Submission
	for _, entry := range parsed.Items {
		published := entry.PublishedParsed
		if published == nil {
			published = entry.UpdatedParsed
		}
		if published != nil && published.Before(cutoff) {
			continue
		}

		content := plainText(entry.Title + " " + entry.Description)
		if content == "" || !r.filter.Match(content) {
			continue
		}

		id := entry.GUID
		if id == "" {
			id = entry.Link
		}
		author := ""
		if entry.Author != nil {
			author = entry.Author.Name
		}

		subs = append(subs, feedback.Submission{
			Source:   label,
			SourceID: id,
			Author:   author,
			Content:  truncate(content, 4000),
			Metadata: feed.Name,
		})
	}

	return subs, nil
}
