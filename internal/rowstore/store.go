// Package rowstore is the storage collaborator boundary: generic rows keyed by
// table name, user and id, each carrying a timestamp and a JSON body.
package rowstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrConflict = errors.New("rowstore: row already exists")
	ErrNotFound = errors.New("rowstore: row not found")
)

// TimeLayout is fixed width so stored timestamps sort as text.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

type Row struct {
	ID     string          `json:"id"`
	UserID string          `json:"user_id"`
	At     time.Time       `json:"ts"`
	Body   json.RawMessage `json:"body"`
}

// Range selects rows with From <= At < To. A zero bound is open.
type Range struct {
	From time.Time
	To   time.Time
}

// Store only appends and reads. Rows are never updated in place.
type Store interface {
	Insert(ctx context.Context, table string, row Row) error
	Select(ctx context.Context, table, userID string, r Range) ([]Row, error)
	// Get returns one row of the user's, or ErrNotFound.
	Get(ctx context.Context, table, userID, id string) (Row, error)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
