// internal/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	custom_errors "github-repo-enricher/internal/errors"
	"github-repo-enricher/internal/model"
)

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

// SQLite is a Store backed by a local SQLite file.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens the SQLite database named by a sqlite:// URL.
func OpenSQLite(ctx context.Context, dbURL string, logger *slog.Logger) (*SQLite, error) {
	db, err := sql.Open("sqlite", sqliteDSN(dbURL))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; busy_timeout covers readers from other processes.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established", "driver", "sqlite")
	return &SQLite{db: db, logger: logger}, nil
}

// sqliteDSN turns sqlite://path?x=y into the modernc form path?_pragma=...
func sqliteDSN(dbURL string) string {
	path := strings.TrimPrefix(dbURL, "sqlite://")
	path, _, _ = strings.Cut(path, "?")
	return path + "?" + sqlitePragmas
}

func (s *SQLite) GetIdentity(ctx context.Context) (model.Identity, error) {
	var id model.Identity
	err := s.db.QueryRowContext(ctx,
		`SELECT handle, token FROM identity ORDER BY handle LIMIT 1`,
	).Scan(&id.Handle, &id.Token)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Identity{}, custom_errors.ErrNoIdentity
	}
	return id, err
}

func (s *SQLite) CreateIdentity(ctx context.Context, id model.Identity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO identity (handle, token) VALUES (?, ?)`, id.Handle, id.Token)
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return &custom_errors.StorageConstraintViolation{Constraint: violatedColumn(sqlErr.Error()), Err: err}
		}
	}
	return err
}

// violatedColumn extracts "token" from "UNIQUE constraint failed: identity.token".
func violatedColumn(msg string) string {
	const marker = "constraint failed: "
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return ""
	}
	col := strings.Fields(msg[i+len(marker):])
	if len(col) == 0 {
		return ""
	}
	if _, c, ok := strings.Cut(col[0], "."); ok {
		return strings.TrimRight(c, ",)")
	}
	return col[0]
}

func (s *SQLite) InsertListings(ctx context.Context, listings []model.RepositoryListing) (int64, error) {
	if len(listings) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO repository_listing (name, url, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (name) DO NOTHING`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var inserted int64
	for _, l := range listings {
		res, err := stmt.ExecContext(ctx, l.Name, l.URL, model.FormatTime(l.UpdatedAt))
		if err != nil {
			return 0, fmt.Errorf("insert listing %q: %w", l.Name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += n
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *SQLite) GetListing(ctx context.Context, name string) (model.RepositoryListing, error) {
	var (
		l         model.RepositoryListing
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, url, updated_at FROM repository_listing WHERE name = ?`, name,
	).Scan(&l.Name, &l.URL, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RepositoryListing{}, ErrNotFound
	}
	if err != nil {
		return model.RepositoryListing{}, err
	}
	if l.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.RepositoryListing{}, err
	}
	return l, nil
}

func (s *SQLite) CountListings(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM repository_listing`).Scan(&n)
	return n, err
}

func (s *SQLite) UpsertDetail(ctx context.Context, d model.RepositoryDetail) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO repository_detail (name, url, updated_at, description, stars, forks)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
		     url = excluded.url,
		     updated_at = excluded.updated_at,
		     description = excluded.description,
		     stars = excluded.stars,
		     forks = excluded.forks`,
		d.Name, d.URL, model.FormatTime(d.UpdatedAt), toNullString(d.Description), d.Stars, d.Forks)
	return err
}

func (s *SQLite) GetDetail(ctx context.Context, name string) (model.RepositoryDetail, error) {
	var (
		d           model.RepositoryDetail
		updatedAt   string
		description sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT name, url, updated_at, description, stars, forks FROM repository_detail WHERE name = ?`, name,
	).Scan(&d.Name, &d.URL, &updatedAt, &description, &d.Stars, &d.Forks)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RepositoryDetail{}, ErrNotFound
	}
	if err != nil {
		return model.RepositoryDetail{}, err
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.RepositoryDetail{}, err
	}
	d.Description = fromNullString(description)
	return d, nil
}

func (s *SQLite) CountDetails(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM repository_detail`).Scan(&n)
	return n, err
}

func (s *SQLite) ListEnriched(ctx context.Context) ([]model.EnrichedRepository, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.name, l.url, l.updated_at, d.url, d.updated_at, d.description, d.stars, d.forks
		FROM repository_listing l
		JOIN repository_detail d ON d.name = l.name
		ORDER BY l.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EnrichedRepository
	for rows.Next() {
		var (
			r                    model.EnrichedRepository
			listedAt, detailedAt string
			description          sql.NullString
		)
		if err := rows.Scan(&r.Name, &r.ListingURL, &listedAt, &r.DetailURL, &detailedAt, &description, &r.Stars, &r.Forks); err != nil {
			return nil, err
		}
		if r.ListingUpdatedAt, err = parseTime(listedAt); err != nil {
			return nil, err
		}
		if r.DetailUpdatedAt, err = parseTime(detailedAt); err != nil {
			return nil, err
		}
		r.Description = fromNullString(description)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(model.DisplayTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
