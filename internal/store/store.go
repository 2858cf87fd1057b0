// internal/store/store.go

// Package store persists identities, repository listings and repository
// details in a relational database. Two backends exist: SQLite for a local
// file (the default) and Postgres.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github-repo-enricher/internal/model"
	"github-repo-enricher/migrations"
)

// ErrNotFound is returned when a listing or detail row does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the full set of storage operations used by the application.
// Every write is a single self-contained statement or transaction, so the
// store is safe for concurrent use by enrichment tasks.
type Store interface {
	// GetIdentity returns the stored identity or errors.ErrNoIdentity.
	GetIdentity(ctx context.Context) (model.Identity, error)
	// CreateIdentity persists id. Duplicate handles or tokens yield a
	// *errors.StorageConstraintViolation.
	CreateIdentity(ctx context.Context, id model.Identity) error

	// InsertListings inserts every listing whose name is not stored yet, in one
	// write, and returns how many rows were inserted. Existing rows are untouched.
	InsertListings(ctx context.Context, listings []model.RepositoryListing) (int64, error)
	GetListing(ctx context.Context, name string) (model.RepositoryListing, error)
	CountListings(ctx context.Context) (int64, error)

	// UpsertDetail inserts d or fully replaces the stored detail with the same name.
	UpsertDetail(ctx context.Context, d model.RepositoryDetail) error
	GetDetail(ctx context.Context, name string) (model.RepositoryDetail, error)
	CountDetails(ctx context.Context) (int64, error)

	// ListEnriched returns the inner join of listings and details, ordered by name.
	ListEnriched(ctx context.Context) ([]model.EnrichedRepository, error)

	Close() error
}

// Open migrates the database at dbURL and returns a Store for it.
// Supported schemes are sqlite://, postgres:// and postgresql://.
func Open(ctx context.Context, dbURL string, logger *slog.Logger) (Store, error) {
	if err := Migrate(dbURL); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	logger.Info("Database migrations applied successfully")

	switch {
	case strings.HasPrefix(dbURL, "sqlite://"):
		return OpenSQLite(ctx, dbURL, logger)
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		return OpenPostgres(ctx, dbURL, logger)
	default:
		return nil, fmt.Errorf("unsupported database url %q", dbURL)
	}
}

// Migrate applies all pending up migrations to the database at dbURL.
func Migrate(dbURL string) error {
	var (
		fsys fs.FS
		dir  string
	)
	switch {
	case strings.HasPrefix(dbURL, "sqlite://"):
		fsys, dir = migrations.SQLite, "sqlite"
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		fsys, dir = migrations.Postgres, "postgres"
	default:
		return fmt.Errorf("unsupported database url %q", dbURL)
	}

	src, err := iofs.New(fsys, dir)
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
