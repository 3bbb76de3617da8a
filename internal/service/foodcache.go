package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/vitaup/vitacore/internal/model"
)

const (
	CacheKindBarcode = "barcode"
	CacheKindSearch  = "search"

	defaultBarcodeTTL        = 30 * 24 * time.Hour
	defaultProviderSearchTTL = 7 * 24 * time.Hour
)

type FoodCacheItem struct {
	Provider  string    `json:"provider"`
	Kind      string    `json:"kind"`
	Key       string    `json:"key"`
	Records   int       `json:"records"`
	FetchedAt time.Time `json:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FoodCache stores normalized provider answers. Entries are served through the
// cache source so they carry Source=cache on the way out.
type FoodCache struct {
	db  *sql.DB
	now func() time.Time
}

func NewFoodCache(db *sql.DB) *FoodCache {
	return &FoodCache{db: db, now: time.Now}
}

func (c *FoodCache) Get(ctx context.Context, provider, kind, key string) ([]model.FoodRecord, bool, error) {
	provider = normalizeBarcodeProvider(provider)
	var recordsJSON, expiresRaw string
	err := c.db.QueryRowContext(ctx, `
SELECT records_json, expires_at
FROM food_cache
WHERE provider = ? AND kind = ? AND cache_key = ?
`, provider, kind, cacheKey(key)).Scan(&recordsJSON, &expiresRaw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup food cache: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339, expiresRaw)
	if err != nil {
		return nil, false, fmt.Errorf("parse food cache expiry: %w", err)
	}
	if c.now().After(expiresAt) {
		return nil, false, nil
	}
	recs, err := NormalizeFood(RawFood{Source: model.SourceCache, Payload: []byte(recordsJSON)})
	if err != nil {
		return nil, false, fmt.Errorf("decode food cache: %w", err)
	}
	return recs, true, nil
}

func (c *FoodCache) Put(ctx context.Context, provider, kind, key string, recs []model.FoodRecord, raw []byte, ttl time.Duration) error {
	provider = normalizeBarcodeProvider(provider)
	if recs == nil {
		recs = []model.FoodRecord{}
	}
	recordsJSON, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode food cache records: %w", err)
	}
	var rawStr sql.NullString
	if json.Valid(raw) {
		rawStr = sql.NullString{String: string(raw), Valid: true}
	}
	now := c.now()
	_, err = c.db.ExecContext(ctx, `
INSERT INTO food_cache(provider, kind, cache_key, records_json, raw_json, fetched_at, expires_at)
VALUES(?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, kind, cache_key) DO UPDATE SET
  records_json=excluded.records_json,
  raw_json=excluded.raw_json,
  fetched_at=excluded.fetched_at,
  expires_at=excluded.expires_at
`, provider, kind, cacheKey(key), string(recordsJSON), rawStr, now.UTC().Format(time.RFC3339), now.Add(ttl).UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert food cache: %w", err)
	}
	return nil
}

func (c *FoodCache) List(ctx context.Context, provider string, limit int) ([]FoodCacheItem, error) {
	provider = normalizeBarcodeProvider(provider)
	if limit <= 0 {
		limit = 100
	}
	base := `SELECT provider, kind, cache_key, json_array_length(records_json), fetched_at, expires_at FROM food_cache`
	args := make([]any, 0, 2)
	if provider != "" {
		base += ` WHERE provider = ?`
		args = append(args, provider)
	}
	base += ` ORDER BY fetched_at DESC LIMIT ?`
	args = append(args, limit)
	rows, err := c.db.QueryContext(ctx, base, args...)
	if err != nil {
		return nil, fmt.Errorf("list food cache: %w", err)
	}
	defer rows.Close()
	out := make([]FoodCacheItem, 0)
	for rows.Next() {
		var item FoodCacheItem
		var fetched, expires string
		if err := rows.Scan(&item.Provider, &item.Kind, &item.Key, &item.Records, &fetched, &expires); err != nil {
			return nil, fmt.Errorf("scan food cache: %w", err)
		}
		item.FetchedAt, _ = time.Parse(time.RFC3339, fetched)
		item.ExpiresAt, _ = time.Parse(time.RFC3339, expires)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate food cache: %w", err)
	}
	return out, nil
}

// Purge deletes cached answers. With purgeAll false at least a provider or a
// key is required.
func (c *FoodCache) Purge(ctx context.Context, provider, key string, purgeAll bool) (int64, error) {
	provider = normalizeBarcodeProvider(provider)
	key = cacheKey(key)

	var (
		res sql.Result
		err error
	)
	switch {
	case purgeAll:
		res, err = c.db.ExecContext(ctx, `DELETE FROM food_cache`)
	case provider != "" && key != "":
		res, err = c.db.ExecContext(ctx, `DELETE FROM food_cache WHERE provider = ? AND cache_key = ?`, provider, key)
	case provider != "":
		res, err = c.db.ExecContext(ctx, `DELETE FROM food_cache WHERE provider = ?`, provider)
	case key != "":
		res, err = c.db.ExecContext(ctx, `DELETE FROM food_cache WHERE cache_key = ?`, key)
	default:
		return 0, fmt.Errorf("specify --all, --provider, --key, or provider+key")
	}
	if err != nil {
		return 0, fmt.Errorf("purge food cache: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge food cache rows affected: %w", err)
	}
	return affected, nil
}

// Expired counts rows past their expiry. They are never served but stay on
// disk until purged.
func (c *FoodCache) Expired(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM food_cache WHERE expires_at < ?`, c.now().UTC().Format(time.RFC3339)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expired food cache: %w", err)
	}
	return n, nil
}

func (c *FoodCache) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM food_cache WHERE expires_at < ?`, c.now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("purge expired food cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired food cache rows affected: %w", err)
	}
	return n, nil
}

func cacheKey(key string) string {
	return strings.Join(strings.Fields(strings.ToLower(key)), " ")
}
