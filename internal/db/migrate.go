package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS children (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		birthdate   TEXT,
		survey_json TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS events (
		id              TEXT PRIMARY KEY,
		child_id        TEXT NOT NULL REFERENCES children(id) ON DELETE CASCADE,
		type            TEXT NOT NULL
		                CHECK(type IN ('sleep','nap','wake','night_waking','feeding','medication','extra_activity')),
		start_time      TEXT NOT NULL,
		end_time        TEXT,
		sleep_delay_min INTEGER
		                CHECK(sleep_delay_min IS NULL OR (type = 'sleep' AND sleep_delay_min BETWEEN 0 AND 180)),
		feeding_ml      INTEGER
		                CHECK(feeding_ml IS NULL OR type = 'feeding'),
		notes           TEXT NOT NULL DEFAULT '',
		created_at      TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_events_child_start ON events(child_id, start_time)`,

	`CREATE TABLE IF NOT EXISTS plans (
		id            TEXT PRIMARY KEY,
		child_id      TEXT NOT NULL REFERENCES children(id) ON DELETE CASCADE,
		plan_type     TEXT NOT NULL
		              CHECK(plan_type IN ('initial','event_based','transcript_refinement')),
		plan_number   INTEGER NOT NULL CHECK(plan_number >= 0),
		plan_version  INTEGER NOT NULL DEFAULT 0 CHECK(plan_version >= 0),
		status        TEXT NOT NULL DEFAULT 'draft'
		              CHECK(status IN ('draft','active','superseded')),
		output_json   TEXT NOT NULL,
		source_from   TEXT NOT NULL,
		source_to     TEXT NOT NULL,
		event_count   INTEGER NOT NULL DEFAULT 0,
		distinct_types INTEGER NOT NULL DEFAULT 0,
		by_type_json  TEXT NOT NULL DEFAULT '{}',
		base_plan_id  TEXT REFERENCES plans(id),
		transcript_id TEXT,
		report_id     TEXT,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL,
		created_by    TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE INDEX IF NOT EXISTS idx_plans_child ON plans(child_id)`,
	`CREATE INDEX IF NOT EXISTS idx_plans_child_status ON plans(child_id, status)`,

	// The single-active invariant is a database guarantee, not just
	// application discipline: two concurrent activations cannot both commit.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_plans_one_active
		ON plans(child_id) WHERE status = 'active'`,

	// One plan slot per (child, number, version).
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_plans_numbering
		ON plans(child_id, plan_number, plan_version)`,

	// Per-child plan number allocator state. Seeded lazily from existing
	// plan rows by the repository; incremented atomically on allocation.
	`CREATE TABLE IF NOT EXISTS plan_sequences (
		child_id    TEXT PRIMARY KEY REFERENCES children(id) ON DELETE CASCADE,
		next_number INTEGER NOT NULL CHECK(next_number > 0)
	)`,

	`CREATE TABLE IF NOT EXISTS transcripts (
		id         TEXT PRIMARY KEY,
		child_id   TEXT NOT NULL REFERENCES children(id) ON DELETE CASCADE,
		provider   TEXT NOT NULL DEFAULT '',
		summary    TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_transcripts_child ON transcripts(child_id)`,
}
