// Package sqlite is a single-node encounter store with the same upsert contract as the
// PostgreSQL store.
package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// NULL is distinct from NULL in a SQLite unique index, so unknown dates are stored as ''
// to keep the natural key collision-safe.
const schema = `
CREATE TABLE IF NOT EXISTS healthcare_encounters (
	id                    TEXT PRIMARY KEY,
	patient_id            TEXT NOT NULL,
	primary_shell_file_id TEXT NOT NULL,
	encounter_type        TEXT NOT NULL,
	is_real_world_visit   INTEGER NOT NULL DEFAULT 0,
	encounter_date        TEXT NOT NULL DEFAULT '',
	encounter_date_end    TEXT NOT NULL DEFAULT '',
	provider_name         TEXT,
	facility_name         TEXT,
	page_ranges           TEXT NOT NULL DEFAULT '[]',
	identified_in_pass    TEXT NOT NULL,
	confidence            REAL NOT NULL DEFAULT 0 CHECK (confidence >= 0 AND confidence <= 1),
	created_at            TEXT NOT NULL,
	updated_at            TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS healthcare_encounters_natural_key
	ON healthcare_encounters (patient_id, primary_shell_file_id, encounter_type, encounter_date, page_ranges);

CREATE INDEX IF NOT EXISTS healthcare_encounters_shell_file
	ON healthcare_encounters (patient_id, primary_shell_file_id);
`

// NewDB opens the database at path (":memory:" for an in-process store) and applies the schema.
func NewDB(path string) (*sqlx.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("applying sqlite schema: %w", err)
	}
	return db, nil
}
