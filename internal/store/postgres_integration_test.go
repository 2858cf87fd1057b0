//go:build integration

// internal/store/postgres_integration_test.go
package store

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	custom_errors "github-repo-enricher/internal/errors"
	"github-repo-enricher/internal/model"
)

func setupPostgres(ctx context.Context, t *testing.T) Store {
	t.Helper()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("test-db"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(pgContainer))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(ctx, connStr, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgres_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	s := setupPostgres(ctx, t)

	// Identity constraints.
	require.NoError(t, s.CreateIdentity(ctx, model.Identity{Handle: "alice", Token: "tok123"}))
	var violation *custom_errors.StorageConstraintViolation
	require.ErrorAs(t, s.CreateIdentity(ctx, model.Identity{Handle: "alice", Token: "x"}), &violation)
	assert.Equal(t, "handle", violation.Constraint)
	require.ErrorAs(t, s.CreateIdentity(ctx, model.Identity{Handle: "bob", Token: "tok123"}), &violation)
	assert.Equal(t, "token", violation.Constraint)

	// Insert-if-absent listings.
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n, err := s.InsertListings(ctx, []model.RepositoryListing{{Name: "proj", URL: "https://github.com/alice/proj", UpdatedAt: first}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = s.InsertListings(ctx, []model.RepositoryListing{{Name: "proj", URL: "https://github.com/alice/proj", UpdatedAt: first.AddDate(0, 6, 0)}})
	require.NoError(t, err)
	assert.Zero(t, n)
	l, err := s.GetListing(ctx, "proj")
	require.NoError(t, err)
	assert.True(t, first.Equal(l.UpdatedAt))

	// Upsert details and join.
	desc := "demo"
	require.NoError(t, s.UpsertDetail(ctx, model.RepositoryDetail{Name: "proj", URL: "a", UpdatedAt: first, Description: &desc, Stars: 1}))
	require.NoError(t, s.UpsertDetail(ctx, model.RepositoryDetail{Name: "proj", URL: "b", UpdatedAt: first, Stars: 10, Forks: 2}))

	rows, err := s.ListEnriched(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0].DetailURL)
	assert.Nil(t, rows[0].Description)
	assert.Equal(t, 10, rows[0].Stars)
	assert.Equal(t, 2, rows[0].Forks)
}
