package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/brand-scorecard/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS scorecards (
	id           TEXT PRIMARY KEY,
	brand_name   TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'generating',
	company_size TEXT NOT NULL DEFAULT '',
	sentiment    REAL NOT NULL DEFAULT 5,
	error        TEXT NOT NULL DEFAULT '',
	data         TEXT NOT NULL,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS search_cache (
	cache_key  TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	cached_at  INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scorecards_status ON scorecards(status);
CREATE INDEX IF NOT EXISTS idx_scorecards_brand ON scorecards(brand_name COLLATE NOCASE);
CREATE INDEX IF NOT EXISTS idx_scorecards_created ON scorecards(created_at);
CREATE INDEX IF NOT EXISTS idx_search_cache_expires_at ON search_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateScorecard(ctx context.Context, sc *model.Scorecard) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal scorecard")
	}
	now := time.Now().UTC()
	created := sc.CreatedAt
	if created.IsZero() {
		created = now
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scorecards (id, brand_name, status, company_size, sentiment, error, data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.BrandName, string(sc.Status), string(sc.CompanySize), sentimentOf(sc), sc.Error, string(data),
		created.UnixNano(), now.UnixNano(),
	)
	return eris.Wrapf(err, "sqlite: insert scorecard %s", sc.ID)
}

func (s *SQLiteStore) UpdateScorecardStatus(ctx context.Context, id string, status model.ScorecardStatus, errMsg string) error {
	current, err := s.status(ctx, id)
	if err != nil {
		return err
	}
	if err := checkTransition(id, current, status); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE scorecards SET status = ?, error = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(status), errMsg, time.Now().UTC().UnixNano(), id, string(current),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update scorecard status %s", id)
	}
	return checkRowsAffected(res, id)
}

// SaveScorecard writes the full record, inserting it when missing.
func (s *SQLiteStore) SaveScorecard(ctx context.Context, sc *model.Scorecard) error {
	current, err := s.status(ctx, sc.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		return s.CreateScorecard(ctx, sc)
	case err != nil:
		return err
	}
	if err := checkTransition(sc.ID, current, sc.Status); err != nil {
		return err
	}

	data, err := json.Marshal(sc)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal scorecard")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE scorecards SET status = ?, company_size = ?, sentiment = ?, error = ?, data = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(sc.Status), string(sc.CompanySize), sentimentOf(sc), sc.Error, string(data),
		time.Now().UTC().UnixNano(), sc.ID, string(current),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save scorecard %s", sc.ID)
	}
	return checkRowsAffected(res, sc.ID)
}

func (s *SQLiteStore) GetScorecard(ctx context.Context, id string) (*model.Scorecard, error) {
	var (
		data, status, errMsg string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT data, status, error FROM scorecards WHERE id = ?`, id,
	).Scan(&data, &status, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "id %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get scorecard %s", id)
	}
	return decodeScorecard([]byte(data), status, errMsg)
}

func (s *SQLiteStore) ListScorecards(ctx context.Context, filter ScorecardFilter) ([]model.ScorecardSummary, error) {
	query := `SELECT id, brand_name, company_size, sentiment, status, created_at FROM scorecards WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Brand != "" {
		query += ` AND brand_name = ? COLLATE NOCASE`
		args = append(args, filter.Brand)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, filter.limit())
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list scorecards")
	}
	defer rows.Close() //nolint:errcheck

	out := []model.ScorecardSummary{}
	for rows.Next() {
		var (
			sum     model.ScorecardSummary
			created int64
		)
		if err := rows.Scan(&sum.ID, &sum.BrandName, &sum.CompanySize, &sum.Sentiment, &sum.Status, &created); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan scorecard")
		}
		sum.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, sum)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list scorecards iterate")
}

func (s *SQLiteStore) GetCachedSearch(ctx context.Context, key string) ([]byte, bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM search_cache WHERE cache_key = ? AND expires_at > ?`,
		key, time.Now().UTC().UnixNano(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: get cached search")
	}
	return payload, true, nil
}

func (s *SQLiteStore) SetCachedSearch(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_cache (cache_key, payload, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (cache_key) DO UPDATE SET payload = excluded.payload, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		key, payload, now.UnixNano(), now.Add(ttl).UnixNano(),
	)
	return eris.Wrap(err, "sqlite: set cached search")
}

func (s *SQLiteStore) DeleteExpiredSearches(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM search_cache WHERE expires_at <= ?`, time.Now().UTC().UnixNano(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired searches")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) status(ctx context.Context, id string) (model.ScorecardStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM scorecards WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", eris.Wrapf(ErrNotFound, "id %s", id)
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: read status %s", id)
	}
	return model.ScorecardStatus(status), nil
}

// helpers

// checkRowsAffected reports a lost race with a concurrent status change.
func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrInvalidTransition, "scorecard %s changed concurrently", id)
	}
	return nil
}

// decodeScorecard restores a record; the status columns are authoritative
// over the JSON body.
func decodeScorecard(data []byte, status, errMsg string) (*model.Scorecard, error) {
	var sc model.Scorecard
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal scorecard")
	}
	sc.Status = model.ScorecardStatus(status)
	sc.Error = errMsg
	return &sc, nil
}
