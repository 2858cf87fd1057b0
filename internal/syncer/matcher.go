// internal/syncer/matcher.go
package syncer

import (
	"fmt"
	"strings"

	"github-repo-enricher/internal/config"
	"github-repo-enricher/internal/model"
)

// Matcher picks the search result that describes the queried repository.
// candidates is never empty.
type Matcher interface {
	Match(name string, candidates []model.SearchResult) model.SearchResult
}

// FirstMatcher takes the top-ranked result.
type FirstMatcher struct{}

func (FirstMatcher) Match(_ string, candidates []model.SearchResult) model.SearchResult {
	return candidates[0]
}

// ExactMatcher prefers the highest-ranked result whose name equals the query,
// ignoring case, and falls back to the top-ranked result.
type ExactMatcher struct{}

func (ExactMatcher) Match(name string, candidates []model.SearchResult) model.SearchResult {
	for _, c := range candidates {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return candidates[0]
}

// NewMatcher returns the Matcher for a MATCH_STRATEGY value.
func NewMatcher(strategy string) (Matcher, error) {
	switch strategy {
	case config.MatchExact, "":
		return ExactMatcher{}, nil
	case config.MatchFirst:
		return FirstMatcher{}, nil
	default:
		return nil, fmt.Errorf("unknown match strategy %q", strategy)
	}
}
