package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaup/vitacore/internal/config"
	"github.com/vitaup/vitacore/internal/db"
	"github.com/vitaup/vitacore/internal/service"
)

func TestOpenAppliesStoredSettings(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vita.db")
	sqldb, err := db.OpenMigrated(path)
	require.NoError(t, err)
	require.NoError(t, service.SetConfig(ctx, sqldb, service.ConfigUserID, "ana"))
	require.NoError(t, service.SetConfig(ctx, sqldb, service.ConfigMaxGlasses, "12"))
	require.NoError(t, service.SetConfig(ctx, sqldb, service.ConfigTimezone, "UTC"))
	require.NoError(t, sqldb.Close())

	rt, err := Open(ctx, config.Config{DBPath: path, UserID: "local", MaxGlasses: 8, Storage: config.StorageSQLite}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	assert.Equal(t, "ana", rt.UserID)
	assert.Equal(t, 12, rt.MaxGlasses)
	assert.Equal(t, "UTC", rt.Location.String())
	assert.NotNil(t, rt.Journal)
	assert.NotNil(t, rt.Finder)
}

func TestOpenRejectsBadEnergyFile(t *testing.T) {
	cfg := config.Config{
		DBPath:     filepath.Join(t.TempDir(), "vita.db"),
		EnergyFile: filepath.Join(t.TempDir(), "missing.yaml"),
	}
	_, err := Open(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "read energy config")
}
