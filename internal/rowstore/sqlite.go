package rowstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Insert(ctx context.Context, table string, row Row) error {
	if err := validateRow(table, row); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO rows(tbl, user_id, id, ts, body)
VALUES(?, ?, ?, ?, ?)
`, table, row.UserID, row.ID, formatTime(row.At), string(row.Body))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("insert %s row %s: %w", table, row.ID, ErrConflict)
		}
		return fmt.Errorf("insert %s row: %w", table, err)
	}
	return nil
}

func (s *SQLite) Select(ctx context.Context, table, userID string, r Range) ([]Row, error) {
	query := `SELECT id, user_id, ts, body FROM rows WHERE tbl = ? AND user_id = ?`
	args := []any{table, userID}
	if !r.From.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, formatTime(r.From))
	}
	if !r.To.IsZero() {
		query += ` AND ts < ?`
		args = append(args, formatTime(r.To))
	}
	query += ` ORDER BY ts ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s rows: %w", table, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		var ts, body string
		if err := rows.Scan(&row.ID, &row.UserID, &ts, &body); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		at, err := time.Parse(TimeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parse %s row timestamp %q: %w", table, ts, err)
		}
		row.At = at
		row.Body = []byte(body)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", table, err)
	}
	return out, nil
}

func (s *SQLite) Get(ctx context.Context, table, userID, id string) (Row, error) {
	row := Row{ID: id, UserID: userID}
	var ts, body string
	err := s.db.QueryRowContext(ctx, `
SELECT ts, body FROM rows WHERE tbl = ? AND user_id = ? AND id = ?
`, table, userID, id).Scan(&ts, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, fmt.Errorf("get %s row %s: %w", table, id, ErrNotFound)
	}
	if err != nil {
		return Row{}, fmt.Errorf("get %s row: %w", table, err)
	}
	at, err := time.Parse(TimeLayout, ts)
	if err != nil {
		return Row{}, fmt.Errorf("parse %s row timestamp %q: %w", table, ts, err)
	}
	row.At = at
	row.Body = []byte(body)
	return row, nil
}

func validateRow(table string, row Row) error {
	if strings.TrimSpace(table) == "" {
		return fmt.Errorf("table name is required")
	}
	if strings.TrimSpace(row.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(row.ID) == "" {
		return fmt.Errorf("row id is required")
	}
	if row.At.IsZero() {
		return fmt.Errorf("row timestamp is required")
	}
	if len(row.Body) == 0 {
		return fmt.Errorf("row body is required")
	}
	return nil
}
