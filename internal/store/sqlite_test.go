package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/brand-scorecard/internal/config"
	"github.com/sells-group/brand-scorecard/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func pending(id, brand string, created time.Time) *model.Scorecard {
	return &model.Scorecard{ID: id, BrandName: brand, Status: model.ScorecardGenerating, CreatedAt: created}
}

func completed(id, brand string) *model.Scorecard {
	now := time.Now().UTC()
	return &model.Scorecard{
		ID:           id,
		BrandName:    brand,
		BrandWebsite: "https://" + brand + ".com",
		CompanySize:  model.SizeGrowth,
		Competitors:  []string{"Globex"},
		Subreddits:   []string{"r/anvils"},
		Mentions:     model.Mentions{Brand: 3, Competitors: map[string]int{"Globex": 2}},
		Threads:      []model.RedditThread{},
		Sentiment:    model.SentimentSummary{Brand: 7.5, Competitors: map[string]float64{"Globex": 5}},
		Status:       model.ScorecardCompleted,
		CreatedAt:    now,
		CompletedAt:  &now,
	}
}

// --- Scorecards ---

func TestSQLite_CreateSaveGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.CreateScorecard(ctx, pending("sc-1", "Acme", time.Now().UTC())))

	got, err := st.GetScorecard(ctx, "sc-1")
	require.NoError(t, err)
	assert.Equal(t, model.ScorecardGenerating, got.Status)
	assert.Equal(t, "Acme", got.BrandName)

	require.NoError(t, st.SaveScorecard(ctx, completed("sc-1", "Acme")))

	got, err = st.GetScorecard(ctx, "sc-1")
	require.NoError(t, err)
	assert.Equal(t, model.ScorecardCompleted, got.Status)
	assert.Equal(t, "https://Acme.com", got.BrandWebsite)
	assert.Equal(t, []string{"Globex"}, got.Competitors)
	assert.Equal(t, 7.5, got.Sentiment.Brand)
	require.NotNil(t, got.CompletedAt)
}

func TestSQLite_SaveInsertsMissing(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveScorecard(ctx, completed("sc-new", "Acme")))

	got, err := st.GetScorecard(ctx, "sc-new")
	require.NoError(t, err)
	assert.Equal(t, model.ScorecardCompleted, got.Status)
}

func TestSQLite_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetScorecard(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_StatusTransitions(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	require.NoError(t, st.CreateScorecard(ctx, pending("sc-1", "Acme", time.Now().UTC())))

	require.NoError(t, st.UpdateScorecardStatus(ctx, "sc-1", model.ScorecardFailed, "run interrupted: context canceled"))

	got, err := st.GetScorecard(ctx, "sc-1")
	require.NoError(t, err)
	assert.Equal(t, model.ScorecardFailed, got.Status)
	assert.Equal(t, "run interrupted: context canceled", got.Error)

	err = st.UpdateScorecardStatus(ctx, "sc-1", model.ScorecardCompleted, "")
	assert.True(t, eris.Is(err, ErrInvalidTransition))

	err = st.SaveScorecard(ctx, completed("sc-1", "Acme"))
	assert.True(t, eris.Is(err, ErrInvalidTransition))

	err = st.UpdateScorecardStatus(ctx, "missing", model.ScorecardFailed, "")
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_ListScorecards(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	require.NoError(t, st.CreateScorecard(ctx, pending("a", "Acme", base)))
	require.NoError(t, st.CreateScorecard(ctx, pending("b", "Globex", base.Add(time.Minute))))
	require.NoError(t, st.CreateScorecard(ctx, pending("c", "acme", base.Add(2*time.Minute))))
	require.NoError(t, st.SaveScorecard(ctx, completed("b", "Globex")))

	all, err := st.ListScorecards(ctx, ScorecardFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	done, err := st.ListScorecards(ctx, ScorecardFilter{Status: model.ScorecardCompleted})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "b", done[0].ID)
	assert.Equal(t, model.SizeGrowth, done[0].CompanySize)
	assert.Equal(t, 7.5, done[0].Sentiment)

	acme, err := st.ListScorecards(ctx, ScorecardFilter{Brand: "ACME"})
	require.NoError(t, err)
	assert.Len(t, acme, 2)

	page, err := st.ListScorecards(ctx, ScorecardFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)
}

// --- Search Cache ---

func TestSQLite_SearchCache_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedSearch(ctx, "key-1", []byte(`[{"url":"https://acme.com"}]`), time.Hour))

	data, ok, err := st.GetCachedSearch(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"url":"https://acme.com"}]`, string(data))
}

func TestSQLite_SearchCache_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	data, ok, err := st.GetCachedSearch(context.Background(), "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestSQLite_SearchCache_ExpiredAndOverwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedSearch(ctx, "k", []byte("old"), -time.Hour))
	_, ok, err := st.GetCachedSearch(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.SetCachedSearch(ctx, "k", []byte("new"), time.Hour))
	data, ok, err := st.GetCachedSearch(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", string(data))
}

func TestSQLite_DeleteExpiredSearches(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetCachedSearch(ctx, "old-1", []byte("x"), -time.Minute))
	require.NoError(t, st.SetCachedSearch(ctx, "old-2", []byte("x"), -time.Minute))
	require.NoError(t, st.SetCachedSearch(ctx, "fresh", []byte("x"), time.Hour))

	n, err := st.DeleteExpiredSearches(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok, err := st.GetCachedSearch(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "open.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, st)
	require.NoError(t, st.Close())

	_, err = Open(ctx, config.StoreConfig{Driver: "postgres"})
	assert.Error(t, err)

	_, err = Open(ctx, config.StoreConfig{Driver: "mongo"})
	assert.Error(t, err)
}
