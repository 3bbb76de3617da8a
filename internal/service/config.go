package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

const (
	ConfigUserID          = "user_id"
	ConfigBarcodeOrder    = "barcode_order"
	ConfigSearchProviders = "search_providers"
	ConfigTimezone        = "timezone"
	ConfigMaxGlasses      = "max_glasses"
	ConfigCoachTone       = "coach_tone"
)

var knownConfigKeys = map[string]func(string) error{
	ConfigUserID:          requireValue,
	ConfigBarcodeOrder:    validateProviderSetting,
	ConfigSearchProviders: validateProviderSetting,
	ConfigTimezone:        requireValue,
	ConfigMaxGlasses:      validatePositiveIntSetting,
	ConfigCoachTone:       requireValue,
}

func SetConfig(ctx context.Context, db *sql.DB, key, value string) error {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return fmt.Errorf("config key is required")
	}
	value = strings.TrimSpace(value)
	validate, ok := knownConfigKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key %q", key)
	}
	if err := validate(value); err != nil {
		return fmt.Errorf("config %s: %w", key, err)
	}
	_, err := db.ExecContext(ctx, `
INSERT INTO app_config(key, value, updated_at)
VALUES(?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, key, value)
	if err != nil {
		return fmt.Errorf("set config %q: %w", key, err)
	}
	return nil
}

func GetConfig(ctx context.Context, db *sql.DB, key string) (string, bool, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return "", false, fmt.Errorf("config key is required")
	}
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM app_config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get config %q: %w", key, err)
	}
	return value, true, nil
}

func ListConfig(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM app_config ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list config: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate config: %w", err)
	}
	return out, nil
}

func requireValue(v string) error {
	if v == "" {
		return fmt.Errorf("value is required")
	}
	return nil
}

func validateProviderSetting(v string) error {
	providers := ParseProviderList(v)
	if len(providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}
	for _, p := range providers {
		switch p {
		case ProviderOpenFoodFacts, ProviderUSDA, ProviderUPCItemDB:
		default:
			return fmt.Errorf("unsupported provider %q", p)
		}
	}
	return nil
}

func validatePositiveIntSetting(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fmt.Errorf("expected a positive integer, got %q", v)
	}
	return nil
}
