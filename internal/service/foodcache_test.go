package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaup/vitacore/internal/db"
	"github.com/vitaup/vitacore/internal/model"
)

func newCache(t *testing.T) *FoodCache {
	t.Helper()
	sqldb, err := db.OpenMigrated(filepath.Join(t.TempDir(), "vita.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })
	return NewFoodCache(sqldb)
}

func TestFoodCacheExpiresEntries(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	rec := model.FoodRecord{ID: "usda:1", Source: model.SourceTextSearch, SourceID: "1", Provider: ProviderUSDA, Name: "Apple",
		Per100g: model.Nutrition{Kcal: 52, ProteinG: 0.3, CarbsG: 14, FatG: 0.2}}
	require.NoError(t, c.Put(ctx, "usda", CacheKindSearch, "Apple |10", []model.FoodRecord{rec}, []byte(`{"foods":[]}`), time.Hour))

	got, hit, err := c.Get(ctx, "usda", CacheKindSearch, "apple  |10")
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, got, 1)
	assert.Equal(t, model.SourceCache, got[0].Source)
	assert.Equal(t, ProviderUSDA, got[0].Provider)

	now = now.Add(2 * time.Hour)
	_, hit, err = c.Get(ctx, "usda", CacheKindSearch, "apple |10")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestFoodCacheListAndPurge(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)

	require.NoError(t, c.Put(ctx, "off", CacheKindBarcode, "3017620422003", []model.FoodRecord{{ID: "a", Name: "Spread"}}, nil, time.Hour))
	require.NoError(t, c.Put(ctx, "usda", CacheKindBarcode, "012345678905", []model.FoodRecord{{ID: "b", Name: "Yogurt"}}, nil, time.Hour))

	items, err := c.List(ctx, "openfoodfacts", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Records)

	n, err := c.Purge(ctx, "", "", false)
	assert.Error(t, err)
	assert.Zero(t, n)

	n, err = c.Purge(ctx, "usda", "", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Purge(ctx, "", "", true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFoodCachePurgeExpired(t *testing.T) {
	ctx := context.Background()
	c := newCache(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Put(ctx, "usda", CacheKindSearch, "old", []model.FoodRecord{{ID: "a", Name: "Old"}}, nil, time.Hour))
	require.NoError(t, c.Put(ctx, "usda", CacheKindSearch, "fresh", []model.FoodRecord{{ID: "b", Name: "Fresh"}}, nil, 48*time.Hour))
	now = now.Add(2 * time.Hour)

	n, err := c.Expired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	purged, err := c.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	items, err := c.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].Key)
}
