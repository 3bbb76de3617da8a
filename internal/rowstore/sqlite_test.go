package rowstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaup/vitacore/internal/db"
	"github.com/vitaup/vitacore/internal/rowstore"
)

func newTestStore(t *testing.T) *rowstore.SQLite {
	t.Helper()
	sqldb, err := db.OpenMigrated(filepath.Join(t.TempDir(), "vita.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	return rowstore.NewSQLite(sqldb)
}

func TestSQLiteInsertSelectRange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	for i, at := range []time.Time{base.Add(-time.Second), base, base.Add(12 * time.Hour), base.Add(24 * time.Hour)} {
		row := rowstore.Row{
			ID:     string(rune('a' + i)),
			UserID: "u1",
			At:     at,
			Body:   json.RawMessage(`{"n":` + string(rune('0'+i)) + `}`),
		}
		require.NoError(t, s.Insert(ctx, "entries", row))
	}
	require.NoError(t, s.Insert(ctx, "entries", rowstore.Row{ID: "z", UserID: "u2", At: base, Body: json.RawMessage(`{}`)}))

	rows, err := s.Select(ctx, "entries", "u1", rowstore.Range{From: base, To: base.Add(24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].ID)
	assert.Equal(t, "c", rows[1].ID)
	assert.True(t, rows[1].At.Equal(base.Add(12*time.Hour)))
	assert.JSONEq(t, `{"n":2}`, string(rows[1].Body))

	all, err := s.Select(ctx, "entries", "u1", rowstore.Range{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSQLiteInsertDuplicateIsConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	row := rowstore.Row{ID: "e1", UserID: "u1", At: time.Now(), Body: json.RawMessage(`{}`)}
	require.NoError(t, s.Insert(ctx, "entries", row))
	err := s.Insert(ctx, "entries", row)
	require.Error(t, err)
	assert.True(t, errors.Is(err, rowstore.ErrConflict))

	require.NoError(t, s.Insert(ctx, "profiles", row), "same id in another table is a different row")
}

func TestSQLiteGetByID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	at := time.Date(2019, 1, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, s.Insert(ctx, "entries", rowstore.Row{ID: "e1", UserID: "u1", At: at, Body: json.RawMessage(`{"n":1}`)}))

	row, err := s.Get(ctx, "entries", "u1", "e1")
	require.NoError(t, err)
	assert.True(t, row.At.Equal(at))
	assert.JSONEq(t, `{"n":1}`, string(row.Body))

	_, err = s.Get(ctx, "entries", "u2", "e1")
	assert.True(t, errors.Is(err, rowstore.ErrNotFound))
	_, err = s.Get(ctx, "profiles", "u1", "e1")
	assert.True(t, errors.Is(err, rowstore.ErrNotFound))
}

func TestSQLiteInsertValidatesRow(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	err := s.Insert(context.Background(), "entries", rowstore.Row{ID: "e1", At: time.Now(), Body: json.RawMessage(`{}`)})
	assert.EqualError(t, err, "user id is required")
}
