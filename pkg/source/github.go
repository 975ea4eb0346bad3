package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/elonfeng/feedpulse/internal/logger"
	"github.com/elonfeng/feedpulse/pkg/feedback"
)

const githubAPI = "https://api.github.com"

// GitHub collects recently updated issues from a set of repositories.
type GitHub struct {
	client  *http.Client
	baseURL string
	token   string
	repos   []string
	filter  *Filter
	log     *logger.Logger
	now     func() time.Time
}

// NewGitHub creates a new GitHub issues collector for "owner/repo" names.
func NewGitHub(token string, repos []string, filter *Filter, log *logger.Logger) *GitHub {
	if log == nil {
		log = logger.Nop()
	}
	return &GitHub{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: githubAPI,
		token:   token,
		repos:   repos,
		filter:  filter,
		log:     log,
		now:     time.Now,
	}
}

func (g *GitHub) Name() string { return "github" }

// Collect fetches issues updated in the last 24h. Pull requests are skipped.
func (g *GitHub) Collect(ctx context.Context) ([]feedback.Submission, error) {
	var all []feedback.Submission
	for _, repo := range g.repos {
		subs, err := g.collectRepo(ctx, repo)
		if err != nil {
			g.log.Warn("github repo failed", "repo", repo, "error", err)
			continue
		}
		all = append(all, subs...)
	}
	return all, nil
}

func (g *GitHub) collectRepo(ctx context.Context, repo string) ([]feedback.Submission, error) {
	if strings.Count(repo, "/") != 1 {
		return nil, fmt.Errorf("invalid repository %q, want owner/repo", repo)
	}

	params := url.Values{}
	params.Set("state", "all")
	params.Set("since", g.now().Add(-24*time.Hour).UTC().Format(time.RFC3339))
	params.Set("sort", "updated")
	params.Set("per_page", "50")

	reqURL := fmt.Sprintf("%s/repos/%s/issues?%s", g.baseURL, repo, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create github request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch github issues: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github API status %d", resp.StatusCode)
	}

	var issues []ghIssue
	if err := json.NewDecoder(resp.Body).Decode(&issues); err != nil {
		return nil, fmt.Errorf("decode github response: %w", err)
	}

	var subs []feedback.Submission
	for _, issue := range issues {
		if issue.PullRequest != nil {
			continue
		}
		content := strings.TrimSpace(issue.Title + "\n\n" + issue.Body)
		if !g.filter.Match(content) {
			continue
		}

		meta, _ := json.Marshal(map[string]any{
			"repo":     repo,
			"number":   issue.Number,
			"state":    issue.State,
			"comments": issue.Comments,
		})
		subs = append(subs, feedback.Submission{
			Source:   "github",
			SourceID: issue.HTMLURL,
			Author:   issue.User.Login,
			Content:  truncate(content, 4000),
			Metadata: string(meta),
		})
	}

	return subs, nil
}

type ghIssue struct {
	Number      int       `json:"number"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	State       string    `json:"state"`
	HTMLURL     string    `json:"html_url"`
	Comments    int       `json:"comments"`
	User        ghUser    `json:"user"`
	PullRequest *struct{} `json:"pull_request"`
}

type ghUser struct {
	Login string `json:"login"`
}
