package journal

import (
	"context"
	"database/sql"
	"fmt"
)

// DoctorReport counts entry rows that break the append-only history rules.
type DoctorReport struct {
	DanglingCorrections int `json:"dangling_corrections"`
	BranchedCorrections int `json:"branched_corrections"`
	UnknownKinds        int `json:"unknown_kinds"`
}

func (r DoctorReport) Clean() bool {
	return r.DanglingCorrections == 0 && r.BranchedCorrections == 0 && r.UnknownKinds == 0
}

// Doctor inspects the entry rows of a SQLite-backed journal. It never edits
// history; a branched correction has to be resolved by retracting one side.
func Doctor(ctx context.Context, db *sql.DB) (DoctorReport, error) {
	var report DoctorReport
	if err := db.QueryRowContext(ctx, `
SELECT COUNT(1) FROM rows c
WHERE c.tbl = ?
  AND IFNULL(json_extract(c.body, '$.supersedes'), '') != ''
  AND NOT EXISTS (
    SELECT 1 FROM rows o
    WHERE o.tbl = c.tbl AND o.user_id = c.user_id AND o.id = json_extract(c.body, '$.supersedes')
  )
`, tableEntries).Scan(&report.DanglingCorrections); err != nil {
		return report, fmt.Errorf("doctor dangling check: %w", err)
	}

	// Two live corrections of one entry would both be counted.
	if err := db.QueryRowContext(ctx, `
SELECT COALESCE(SUM(cnt - 1), 0) FROM (
  SELECT COUNT(*) AS cnt
  FROM rows
  WHERE tbl = ? AND IFNULL(json_extract(body, '$.supersedes'), '') != ''
  GROUP BY user_id, json_extract(body, '$.supersedes')
  HAVING cnt > 1
)
`, tableEntries).Scan(&report.BranchedCorrections); err != nil {
		return report, fmt.Errorf("doctor branch check: %w", err)
	}

	if err := db.QueryRowContext(ctx, `
SELECT COUNT(1) FROM rows
WHERE tbl = ? AND IFNULL(json_extract(body, '$.kind'), '') NOT IN ('meal', 'exercise', 'water', 'sleep')
`, tableEntries).Scan(&report.UnknownKinds); err != nil {
		return report, fmt.Errorf("doctor kind check: %w", err)
	}
	return report, nil
}
