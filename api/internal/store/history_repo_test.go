package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genecross/api/internal/cross"
)

func newTestRepo(t *testing.T) *HistoryRepo {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, SQLite, filepath.Join(t.TempDir(), "history", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewHistoryRepo(db, SQLite)
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx), "schema creation is repeatable")
	return repo
}

func TestHistoryRepo_RecordAndRecent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ok := Submission{
		CreatedAt:   base,
		ChatID:      42,
		Mode:        "structured",
		RequestHash: "abc",
		Request:     cross.Request{Parents: [][]string{{"m", "Aa", "Bb", "Cc"}, {"f", "AA", "BB", "CC"}}, Targets: [][]string{}},
		Outcome:     "success",
		BestSum:     "1/8",
		ResultCount: 1,
		Results:     []cross.Result{{Sum: "1/8", Father: []string{"m", "Aa", "Bb", "Cc"}}},
		Elapsed:     1500 * time.Millisecond,
	}
	id1, err := repo.Record(ctx, ok)
	require.NoError(t, err)

	failed := Submission{
		CreatedAt: base.Add(time.Minute),
		ChatID:    42,
		Mode:      "text",
		Outcome:   "failed",
		ErrorText: cross.GenericErrorMessage,
	}
	id2, err := repo.Record(ctx, failed)
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	_, err = repo.Record(ctx, Submission{CreatedAt: base, ChatID: 7, Mode: "structured", Outcome: "success"})
	require.NoError(t, err)

	got, err := repo.Recent(ctx, 42, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, id2, got[0].ID, "newest first")
	assert.Equal(t, "failed", got[0].Outcome)
	assert.Equal(t, cross.GenericErrorMessage, got[0].ErrorText)
	assert.Empty(t, got[0].Results)

	assert.Equal(t, id1, got[1].ID)
	assert.Equal(t, ok.Request, got[1].Request)
	assert.Equal(t, "1/8", got[1].BestSum)
	assert.Equal(t, 1500*time.Millisecond, got[1].Elapsed)
	require.Len(t, got[1].Results, 1)
	assert.Equal(t, "1/8", got[1].Results[0].Sum)
	assert.True(t, got[1].CreatedAt.Equal(base))

	limited, err := repo.Recent(ctx, 42, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestHistoryRepo_PurgeOlderThan(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Record(ctx, Submission{CreatedAt: time.Now().Add(-48 * time.Hour), ChatID: 1, Mode: "structured", Outcome: "success"})
	require.NoError(t, err)
	_, err = repo.Record(ctx, Submission{ChatID: 1, Mode: "structured", Outcome: "success"})
	require.NoError(t, err)

	n, err := repo.PurgeOlderThan(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := repo.Recent(ctx, 1, 10)
	require.NoError(t, err)
	assert.Len(t, left, 1)

	_, err = repo.PurgeOlderThan(ctx, 0)
	assert.Error(t, err)
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, Postgres, d)

	d, err = ParseDialect("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)

	_, err = ParseDialect("mysql")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &HistoryRepo{Dialect: Postgres}
	lite := &HistoryRepo{Dialect: SQLite}
	assert.Equal(t, "a = $1 and b = $2", pg.rebind("a = $1 and b = $2"))
	assert.Equal(t, "a = ?1 and b = ?2", lite.rebind("a = $1 and b = $2"))
}
