package journal_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaup/vitacore/internal/journal"
	"github.com/vitaup/vitacore/internal/model"
	"github.com/vitaup/vitacore/internal/rowstore"
	"github.com/vitaup/vitacore/internal/service"
)

func TestDoctorReportsBrokenHistory(t *testing.T) {
	ctx := context.Background()
	sqldb := openTestDB(t)
	j := journal.New(rowstore.NewSQLite(sqldb))
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	orig, err := service.NewEntry(service.EntryInput{UserID: "u1", At: at, Water: &model.WaterPayload{Ml: 250}})
	require.NoError(t, err)
	require.NoError(t, j.AppendEntry(ctx, orig))

	report, err := journal.Doctor(ctx, sqldb)
	require.NoError(t, err)
	assert.True(t, report.Clean())

	for _, ml := range []int{300, 400} {
		fix, err := service.Correct(orig, service.EntryInput{Water: &model.WaterPayload{Ml: ml}})
		require.NoError(t, err)
		require.NoError(t, j.AppendEntry(ctx, fix))
	}
	orphan, err := service.NewEntry(service.EntryInput{UserID: "u1", At: at, Water: &model.WaterPayload{Ml: 100}})
	require.NoError(t, err)
	orphan.Supersedes = "missing"
	require.NoError(t, j.AppendEntry(ctx, orphan))

	_, err = sqldb.Exec(`INSERT INTO rows(tbl, user_id, id, ts, body) VALUES('entries', 'u1', 'odd', '2024-05-01T10:00:00.000000000Z', '{"kind":"nap"}')`)
	require.NoError(t, err)

	report, err = journal.Doctor(ctx, sqldb)
	require.NoError(t, err)
	assert.Equal(t, journal.DoctorReport{DanglingCorrections: 1, BranchedCorrections: 1, UnknownKinds: 1}, report)
	assert.False(t, report.Clean())
}
