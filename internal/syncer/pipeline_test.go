// internal/syncer/pipeline_test.go
package syncer_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	custom_errors "github-repo-enricher/internal/errors"
	"github-repo-enricher/internal/github"
	"github-repo-enricher/internal/githubtest"
	"github-repo-enricher/internal/model"
	"github-repo-enricher/internal/store"
	"github-repo-enricher/internal/syncer"
)

type pipeline struct {
	server *githubtest.Server
	store  store.Store
	syncer *syncer.Syncer
}

// setupPipeline wires a real client and a SQLite store against a fake GitHub
// with alice/tok123 registered.
func setupPipeline(t *testing.T) *pipeline {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	server := githubtest.NewServer()
	t.Cleanup(server.Close)
	server.AddUser("alice", "tok123")

	st, err := store.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "repos.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	client, err := github.NewClient(github.Options{
		APIURL:               server.APIURL(),
		WebURL:               server.WebURL(),
		UserAgent:            "enricher-test/1.0",
		Timeout:              5 * time.Second,
		MaxRetries:           3,
		RetryInitialInterval: time.Millisecond,
		SearchRatePerMinute:  60000,
		SearchBurst:          10,
	}, logger)
	require.NoError(t, err)

	gh := client.ForIdentity(model.Identity{Handle: "alice", Token: "tok123"})
	return &pipeline{
		server: server,
		store:  st,
		syncer: syncer.NewSyncer(st, gh, syncer.Options{Concurrency: 4}, logger),
	}
}

func strPtr(s string) *string { return &s }

func TestPipeline_ListingPreservesFirstSeenValues(t *testing.T) {
	ctx := context.Background()
	p := setupPipeline(t)

	p.server.SetRepos("alice", githubtest.Repo{Name: "proj", HTMLURL: "https://github.com/alice/proj", UpdatedAt: "2024-01-01T00:00:00Z"})
	_, err := p.syncer.ListAndStore(ctx)
	require.NoError(t, err)

	p.server.SetRepos("alice",
		githubtest.Repo{Name: "proj", HTMLURL: "https://github.com/alice/proj", UpdatedAt: "2024-09-09T09:09:09Z"},
		githubtest.Repo{Name: "tools", HTMLURL: "https://github.com/alice/tools", UpdatedAt: "2024-02-02T00:00:00Z"},
	)
	names, err := p.syncer.ListAndStore(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"proj", "tools"}, names)

	l, err := p.store.GetListing(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01 00:00:00", model.FormatTime(l.UpdatedAt))

	// Same response again: row count is stable.
	_, err = p.syncer.ListAndStore(ctx)
	require.NoError(t, err)
	count, err := p.store.CountListings(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestPipeline_ListingFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	p := setupPipeline(t)
	p.server.SetRepos("alice", githubtest.Repo{Name: "proj", UpdatedAt: "2024-01-01T00:00:00Z"})
	p.server.FailListing(500)

	_, err := p.syncer.Sync(ctx)

	var lf *custom_errors.ListingFailure
	require.ErrorAs(t, err, &lf)
	count, err := p.store.CountListings(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, p.server.Calls("search"))
}

func TestPipeline_DetailLastWriteWins(t *testing.T) {
	ctx := context.Background()
	p := setupPipeline(t)

	p.server.SetSearch("proj", []githubtest.Repo{{
		Name: "proj", HTMLURL: "https://github.com/alice/proj", UpdatedAt: "2024-01-02T00:00:00Z",
		Description: strPtr("demo"), Stars: 10, Forks: 2,
	}})
	_, err := p.syncer.Enrich(ctx, "proj")
	require.NoError(t, err)

	p.server.SetSearch("proj", []githubtest.Repo{{
		Name: "proj", HTMLURL: "https://github.com/bob/proj", UpdatedAt: "2024-07-07T07:07:07Z", Stars: 11, Forks: 3,
	}})
	_, err = p.syncer.Enrich(ctx, "proj")
	require.NoError(t, err)

	d, err := p.store.GetDetail(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/bob/proj", d.URL)
	assert.Equal(t, "2024-07-07 07:07:07", model.FormatTime(d.UpdatedAt))
	assert.Nil(t, d.Description)
	assert.Equal(t, 11, d.Stars)
	assert.Equal(t, 3, d.Forks)
}

func TestPipeline_EmptySearchContinuesRun(t *testing.T) {
	ctx := context.Background()
	p := setupPipeline(t)

	p.server.SetRepos("alice",
		githubtest.Repo{Name: "ghost", HTMLURL: "https://github.com/alice/ghost", UpdatedAt: "2024-01-01T00:00:00Z"},
		githubtest.Repo{Name: "proj", HTMLURL: "https://github.com/alice/proj", UpdatedAt: "2024-01-01T00:00:00Z"},
	)
	p.server.SetSearch("ghost", []githubtest.Repo{})
	p.server.SetSearch("proj", []githubtest.Repo{{Name: "proj", HTMLURL: "https://github.com/alice/proj", UpdatedAt: "2024-01-02T00:00:00Z", Stars: 10, Forks: 2}})

	summary, err := p.syncer.Sync(ctx)

	require.NoError(t, err)
	assert.Equal(t, syncer.Summary{Processed: 2, Enriched: 1, NotFound: 1}, summary)
	_, err = p.store.GetDetail(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)

	rows, err := p.store.ListEnriched(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "proj", rows[0].Name)
}
