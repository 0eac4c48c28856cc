package audit

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id    TEXT NOT NULL,
	file_id   TEXT NOT NULL,
	region    TEXT NOT NULL,
	outcome   TEXT NOT NULL,
	reason    TEXT,
	timestamp TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_run ON audit_entries (run_id);
CREATE INDEX IF NOT EXISTS idx_audit_outcome ON audit_entries (run_id, outcome);
`

// SQLiteSink stores audit entries in a local sqlite database so rejected
// files can be queried by region and reason after a run.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens the database at path and ensures the schema exists.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init audit schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Write(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_entries (run_id, file_id, region, outcome, reason, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.RunID, e.FileID, e.Region, string(e.Outcome), e.Reason, e.Timestamp,
	)
	return err
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// CountByOutcome returns, for one run, how many entries landed in each outcome.
func (s *SQLiteSink) CountByOutcome(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM audit_entries WHERE run_id = ? GROUP BY outcome`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, err
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}
