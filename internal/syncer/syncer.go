// internal/syncer/syncer.go
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	custom_errors "github-repo-enricher/internal/errors"
	"github-repo-enricher/internal/model"
)

const defaultConcurrency = 5

// Storage is the subset of the store the pipeline writes to.
type Storage interface {
	InsertListings(ctx context.Context, listings []model.RepositoryListing) (int64, error)
	UpsertDetail(ctx context.Context, d model.RepositoryDetail) error
}

// GitHub is the subset of the GitHub client the pipeline calls. It must already
// be bound to the identity the run acts for.
type GitHub interface {
	ListAccountRepositories(ctx context.Context) ([]model.RepositoryListing, error)
	SearchRepositories(ctx context.Context, query string) ([]model.SearchResult, error)
}

// Options tunes a Syncer.
type Options struct {
	// Concurrency bounds the number of enrichment tasks in flight.
	Concurrency int
	Matcher     Matcher
}

// Summary counts the outcome of one enrichment run.
type Summary struct {
	Processed int
	Enriched  int
	NotFound  int
	Failed    int
}

func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("processed", s.Processed),
		slog.Int("enriched", s.Enriched),
		slog.Int("not_found", s.NotFound),
		slog.Int("failed", s.Failed),
	)
}

// Syncer lists an account's repositories and enriches each one from search.
type Syncer struct {
	store       Storage
	gh          GitHub
	matcher     Matcher
	concurrency int
	logger      *slog.Logger
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(store Storage, gh GitHub, opts Options, logger *slog.Logger) *Syncer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Matcher == nil {
		opts.Matcher = ExactMatcher{}
	}
	return &Syncer{
		store:       store,
		gh:          gh,
		matcher:     opts.Matcher,
		concurrency: opts.Concurrency,
		logger:      logger.With("component", "syncer"),
	}
}

// Sync runs the listing step and then enriches every listed repository.
// It fails only when the listing fails or ctx is cancelled.
func (s *Syncer) Sync(ctx context.Context) (Summary, error) {
	names, err := s.ListAndStore(ctx)
	if err != nil {
		return Summary{}, err
	}
	summary := s.Run(ctx, names)
	if err := ctx.Err(); err != nil {
		return summary, err
	}
	return summary, nil
}

// ListAndStore fetches the account's repositories in one call, inserts the
// ones not yet stored in one write and returns every name in response order.
func (s *Syncer) ListAndStore(ctx context.Context) ([]string, error) {
	listings, err := s.gh.ListAccountRepositories(ctx)
	if err != nil {
		return nil, err
	}

	inserted, err := s.store.InsertListings(ctx, listings)
	if err != nil {
		return nil, fmt.Errorf("failed to store repository listings: %w", err)
	}
	s.logger.Info("Stored repository listings", "listed", len(listings), "inserted", inserted)

	names := make([]string, len(listings))
	for i, l := range listings {
		names[i] = l.Name
	}
	return names, nil
}

// Enrich searches for name, picks a result with the configured matcher and
// upserts it as the detail of name. An empty search yields
// *errors.EnrichmentNotFound and writes nothing.
func (s *Syncer) Enrich(ctx context.Context, name string) (model.RepositoryDetail, error) {
	candidates, err := s.gh.SearchRepositories(ctx, name)
	if err != nil {
		return model.RepositoryDetail{}, fmt.Errorf("search %q: %w", name, err)
	}
	if len(candidates) == 0 {
		return model.RepositoryDetail{}, &custom_errors.EnrichmentNotFound{Repo: name}
	}

	match := s.matcher.Match(name, candidates)
	detail := model.RepositoryDetail{
		Name:        name,
		URL:         match.URL,
		UpdatedAt:   match.UpdatedAt,
		Description: match.Description,
		Stars:       match.Stars,
		Forks:       match.Forks,
	}
	if err := s.store.UpsertDetail(ctx, detail); err != nil {
		return model.RepositoryDetail{}, fmt.Errorf("failed to store detail for %q: %w", name, err)
	}
	return detail, nil
}

// Run enriches names concurrently and returns once every task has settled.
// A failing task never cancels its siblings; cancelling ctx stops scheduling.
func (s *Syncer) Run(ctx context.Context, names []string) Summary {
	s.logger.Info("Starting enrichment", "repositories", len(names), "concurrency", s.concurrency)

	var (
		g                          errgroup.Group
		enriched, notFound, failed atomic.Int64
		processed                  int
	)
	g.SetLimit(s.concurrency)

	for _, name := range names {
		if ctx.Err() != nil {
			s.logger.Warn("Enrichment interrupted", "reason", ctx.Err(), "unscheduled", len(names)-processed)
			break
		}
		processed++
		g.Go(func() error {
			logger := s.logger.With("repo", name)
			detail, err := s.Enrich(ctx, name)
			switch {
			case err == nil:
				enriched.Add(1)
				logger.Debug("Repository enriched", "url", detail.URL, "stars", detail.Stars, "forks", detail.Forks)
			case custom_errors.IsNotFound(err):
				notFound.Add(1)
				logger.Warn("No search results for repository")
			case errors.Is(err, context.Canceled):
				failed.Add(1)
			default:
				failed.Add(1)
				logger.Error("Failed to enrich repository", "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{
		Processed: processed,
		Enriched:  int(enriched.Load()),
		NotFound:  int(notFound.Load()),
		Failed:    int(failed.Load()),
	}
	s.logger.Info("Enrichment finished", "summary", summary)
	return summary
}
