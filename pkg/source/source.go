// Package source collects feedback from external channels.
package source

import (
	"context"
	"regexp"
	"strings"

	"github.com/elonfeng/feedpulse/pkg/feedback"
)

// Source is the interface every collector must implement.
type Source interface {
	Name() string
	Collect(ctx context.Context) ([]feedback.Submission, error)
}

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// plainText strips HTML tags and collapses whitespace.
func plainText(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
