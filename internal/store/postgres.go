package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/brand-scorecard/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 1
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS scorecards (
	id           TEXT PRIMARY KEY,
	brand_name   TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'generating',
	company_size TEXT NOT NULL DEFAULT '',
	sentiment    DOUBLE PRECISION NOT NULL DEFAULT 5,
	error        TEXT NOT NULL DEFAULT '',
	data         JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS search_cache (
	cache_key  TEXT PRIMARY KEY,
	payload    JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scorecards_status ON scorecards(status);
CREATE INDEX IF NOT EXISTS idx_scorecards_brand ON scorecards(lower(brand_name));
CREATE INDEX IF NOT EXISTS idx_scorecards_created ON scorecards(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_search_cache_expires_at ON search_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateScorecard(ctx context.Context, sc *model.Scorecard) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal scorecard")
	}
	now := time.Now().UTC()
	created := sc.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO scorecards (id, brand_name, status, company_size, sentiment, error, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sc.ID, sc.BrandName, string(sc.Status), string(sc.CompanySize), sentimentOf(sc), sc.Error, data, created, now,
	)
	return eris.Wrapf(err, "postgres: insert scorecard %s", sc.ID)
}

// UpdateScorecardStatus moves a generating scorecard to status. The guard
// on the current status lives in the UPDATE so concurrent writers cannot
// both win.
func (s *PostgresStore) UpdateScorecardStatus(ctx context.Context, id string, status model.ScorecardStatus, errMsg string) error {
	if err := checkTransition(id, model.ScorecardGenerating, status); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE scorecards SET status = $1, error = $2, updated_at = $3 WHERE id = $4 AND status = $5`,
		string(status), errMsg, time.Now().UTC(), id, string(model.ScorecardGenerating),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update scorecard status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return s.explainMiss(ctx, id, status)
	}
	return nil
}

// SaveScorecard upserts the full record unless the stored one is terminal.
func (s *PostgresStore) SaveScorecard(ctx context.Context, sc *model.Scorecard) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal scorecard")
	}
	now := time.Now().UTC()
	created := sc.CreatedAt
	if created.IsZero() {
		created = now
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO scorecards (id, brand_name, status, company_size, sentiment, error, data, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, company_size = EXCLUDED.company_size, sentiment = EXCLUDED.sentiment,
			error = EXCLUDED.error, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
		 WHERE scorecards.status = 'generating'`,
		sc.ID, sc.BrandName, string(sc.Status), string(sc.CompanySize), sentimentOf(sc), sc.Error, data, created, now,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save scorecard %s", sc.ID)
	}
	if tag.RowsAffected() == 0 {
		return s.explainMiss(ctx, sc.ID, sc.Status)
	}
	return nil
}

func (s *PostgresStore) GetScorecard(ctx context.Context, id string) (*model.Scorecard, error) {
	var (
		data           []byte
		status, errMsg string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT data, status, error FROM scorecards WHERE id = $1`, id,
	).Scan(&data, &status, &errMsg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "id %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get scorecard %s", id)
	}
	return decodeScorecard(data, status, errMsg)
}

func (s *PostgresStore) ListScorecards(ctx context.Context, filter ScorecardFilter) ([]model.ScorecardSummary, error) {
	query := `SELECT id, brand_name, company_size, sentiment, status, created_at FROM scorecards WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Brand != "" {
		query += fmt.Sprintf(` AND lower(brand_name) = lower($%d)`, argIdx)
		args = append(args, filter.Brand)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, filter.limit())
	argIdx++
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list scorecards")
	}
	defer rows.Close()

	out := []model.ScorecardSummary{}
	for rows.Next() {
		var (
			sum          model.ScorecardSummary
			size, status string
		)
		if err := rows.Scan(&sum.ID, &sum.BrandName, &size, &sum.Sentiment, &status, &sum.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan scorecard")
		}
		sum.CompanySize = model.CompanySize(size)
		sum.Status = model.ScorecardStatus(status)
		out = append(out, sum)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list scorecards iterate")
}

func (s *PostgresStore) GetCachedSearch(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM search_cache WHERE cache_key = $1 AND expires_at > now()`, key,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "postgres: get cached search")
	}
	return payload, true, nil
}

func (s *PostgresStore) SetCachedSearch(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO search_cache (cache_key, payload, cached_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (cache_key) DO UPDATE SET payload = EXCLUDED.payload, cached_at = EXCLUDED.cached_at, expires_at = EXCLUDED.expires_at`,
		key, payload, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached search")
}

func (s *PostgresStore) DeleteExpiredSearches(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM search_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired searches")
	}
	return int(tag.RowsAffected()), nil
}

// explainMiss tells a missing scorecard apart from a terminal one after a
// guarded write touched no rows.
func (s *PostgresStore) explainMiss(ctx context.Context, id string, next model.ScorecardStatus) error {
	var status string
	err := s.pool.QueryRow(ctx, `SELECT status FROM scorecards WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "id %s", id)
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: read status %s", id)
	}
	if err := checkTransition(id, model.ScorecardStatus(status), next); err != nil {
		return err
	}
	return eris.Wrapf(ErrInvalidTransition, "scorecard %s changed concurrently", id)
}
