// internal/store/postgres.go
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github-repo-enricher/internal/database"
	custom_errors "github-repo-enricher/internal/errors"
	"github-repo-enricher/internal/model"
)

const pgUniqueViolation = "23505"

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	q      database.Querier
	logger *slog.Logger
}

// OpenPostgres connects to the Postgres database at dsn.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established", "driver", "postgres")
	return NewPostgres(pool, logger), nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	return &Postgres{pool: pool, q: database.New(pool), logger: logger}
}

func (p *Postgres) GetIdentity(ctx context.Context) (model.Identity, error) {
	row, err := p.q.GetIdentity(ctx)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Identity{}, custom_errors.ErrNoIdentity
	}
	if err != nil {
		return model.Identity{}, err
	}
	return model.Identity{Handle: row.Handle, Token: row.Token}, nil
}

func (p *Postgres) CreateIdentity(ctx context.Context, id model.Identity) error {
	err := p.q.CreateIdentity(ctx, database.CreateIdentityParams{Handle: id.Handle, Token: id.Token})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &custom_errors.StorageConstraintViolation{Constraint: identityColumn(pgErr.ConstraintName), Err: err}
	}
	return err
}

func (p *Postgres) InsertListings(ctx context.Context, listings []model.RepositoryListing) (int64, error) {
	if len(listings) == 0 {
		return 0, nil
	}
	params := database.InsertRepositoryListingsParams{
		Names:      make([]string, len(listings)),
		Urls:       make([]string, len(listings)),
		UpdatedAts: make([]time.Time, len(listings)),
	}
	for i, l := range listings {
		params.Names[i] = l.Name
		params.Urls[i] = l.URL
		params.UpdatedAts[i] = l.UpdatedAt
	}
	return p.q.InsertRepositoryListings(ctx, params)
}

func (p *Postgres) GetListing(ctx context.Context, name string) (model.RepositoryListing, error) {
	row, err := p.q.GetRepositoryListing(ctx, name)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RepositoryListing{}, ErrNotFound
	}
	if err != nil {
		return model.RepositoryListing{}, err
	}
	return model.RepositoryListing{Name: row.Name, URL: row.Url, UpdatedAt: row.UpdatedAt.UTC()}, nil
}

func (p *Postgres) CountListings(ctx context.Context) (int64, error) {
	return p.q.CountRepositoryListings(ctx)
}

func (p *Postgres) UpsertDetail(ctx context.Context, d model.RepositoryDetail) error {
	return p.q.UpsertRepositoryDetail(ctx, database.UpsertRepositoryDetailParams{
		Name:        d.Name,
		Url:         d.URL,
		UpdatedAt:   d.UpdatedAt,
		Description: toPgText(d.Description),
		Stars:       int32(d.Stars),
		Forks:       int32(d.Forks),
	})
}

func (p *Postgres) GetDetail(ctx context.Context, name string) (model.RepositoryDetail, error) {
	row, err := p.q.GetRepositoryDetail(ctx, name)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.RepositoryDetail{}, ErrNotFound
	}
	if err != nil {
		return model.RepositoryDetail{}, err
	}
	return model.RepositoryDetail{
		Name:        row.Name,
		URL:         row.Url,
		UpdatedAt:   row.UpdatedAt.UTC(),
		Description: fromPgText(row.Description),
		Stars:       int(row.Stars),
		Forks:       int(row.Forks),
	}, nil
}

func (p *Postgres) CountDetails(ctx context.Context) (int64, error) {
	return p.q.CountRepositoryDetails(ctx)
}

func (p *Postgres) ListEnriched(ctx context.Context) ([]model.EnrichedRepository, error) {
	rows, err := p.q.ListEnrichedRepositories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.EnrichedRepository, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.EnrichedRepository{
			Name:             r.Name,
			ListingURL:       r.ListingUrl,
			ListingUpdatedAt: r.ListingUpdatedAt.UTC(),
			DetailURL:        r.DetailUrl,
			DetailUpdatedAt:  r.DetailUpdatedAt.UTC(),
			Description:      fromPgText(r.Description),
			Stars:            int(r.Stars),
			Forks:            int(r.Forks),
		})
	}
	return out, nil
}

func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

// identityColumn maps a Postgres constraint name to the identity column it guards.
func identityColumn(constraint string) string {
	switch constraint {
	case "identity_pkey":
		return "handle"
	case "identity_token_key":
		return "token"
	default:
		return constraint
	}
}

func toPgText(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func fromPgText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}
