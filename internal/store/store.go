// Package store persists scorecards and cached search responses.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brand-scorecard/internal/config"
	"github.com/sells-group/brand-scorecard/internal/model"
)

var (
	// ErrNotFound is returned when a scorecard does not exist.
	ErrNotFound = eris.New("store: scorecard not found")
	// ErrInvalidTransition is returned when a write would move a scorecard
	// out of a terminal status.
	ErrInvalidTransition = eris.New("store: invalid status transition")
)

// ScorecardFilter specifies criteria for listing scorecards.
type ScorecardFilter struct {
	Status model.ScorecardStatus `json:"status,omitempty"`
	Brand  string                `json:"brand,omitempty"`
	Limit  int                   `json:"limit,omitempty"`
	Offset int                   `json:"offset,omitempty"`
}

func (f ScorecardFilter) limit() int {
	if f.Limit <= 0 {
		return 100
	}
	return f.Limit
}

// Store defines the persistence interface for scorecard runs.
type Store interface {
	// Scorecards
	CreateScorecard(ctx context.Context, sc *model.Scorecard) error
	UpdateScorecardStatus(ctx context.Context, id string, status model.ScorecardStatus, errMsg string) error
	SaveScorecard(ctx context.Context, sc *model.Scorecard) error
	GetScorecard(ctx context.Context, id string) (*model.Scorecard, error)
	ListScorecards(ctx context.Context, filter ScorecardFilter) ([]model.ScorecardSummary, error)

	// Search cache
	GetCachedSearch(ctx context.Context, key string) ([]byte, bool, error)
	SetCachedSearch(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	DeleteExpiredSearches(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// DefaultSQLitePath is used when no database URL is configured.
const DefaultSQLitePath = "brand-scorecard.db"

// Open connects to the configured backend. The caller runs Migrate.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = DefaultSQLitePath
		}
		return NewSQLite(dsn)
	case "postgres", "postgresql":
		if cfg.DatabaseURL == "" {
			return nil, eris.New("store: postgres requires store.database_url")
		}
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

// checkTransition validates a write to next given the stored status.
func checkTransition(id string, current, next model.ScorecardStatus) error {
	if current.CanTransition(next) || (current == model.ScorecardGenerating && next == model.ScorecardGenerating) {
		return nil
	}
	return eris.Wrapf(ErrInvalidTransition, "scorecard %s: %s -> %s", id, current, next)
}

// sentimentOf is the list-view sentiment of a scorecard.
func sentimentOf(sc *model.Scorecard) float64 {
	return sc.Sentiment.Brand
}
