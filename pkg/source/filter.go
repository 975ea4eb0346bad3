package source

import "strings"

// Filter holds optional keyword lists for collected text.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter creates a case-insensitive filter. An empty include list matches
// everything that is not excluded.
func NewFilter(include, exclude []string) *Filter {
	return &Filter{include: lowerAll(include), exclude: lowerAll(exclude)}
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Match reports whether text passes the filter. A nil filter matches everything.
func (f *Filter) Match(text string) bool {
	if f == nil {
		return true
	}
	lower := strings.ToLower(text)

	for _, ex := range f.exclude {
		if strings.Contains(lower, ex) {
			return false
		}
	}

	if len(f.include) == 0 {
		return true
	}
	for _, kw := range f.include {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
