package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,
	`CREATE TABLE IF NOT EXISTS mentor_profiles (
		user_id    TEXT PRIMARY KEY,
		timezone   TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS mentor_skills (
		mentor_id TEXT NOT NULL REFERENCES mentor_profiles(user_id) ON DELETE CASCADE,
		skill_id  TEXT NOT NULL,
		PRIMARY KEY (mentor_id, skill_id)
	)`,
	`CREATE TABLE IF NOT EXISTS availability_rules (
		id          TEXT PRIMARY KEY,
		mentor_id   TEXT NOT NULL REFERENCES mentor_profiles(user_id) ON DELETE CASCADE,
		kind        TEXT NOT NULL CHECK (kind IN ('weekly', 'one_shot', 'exclusion')),
		day_of_week SMALLINT CHECK (day_of_week BETWEEN 1 AND 7),
		start_time  TIME,
		end_time    TIME,
		starts_at   TIMESTAMPTZ,
		ends_at     TIMESTAMPTZ,
		timezone    TEXT NOT NULL,
		active      BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_availability_rules_mentor ON availability_rules (mentor_id, active)`,
	`CREATE TABLE IF NOT EXISTS availability_exceptions (
		id             TEXT PRIMARY KEY,
		mentor_id      TEXT NOT NULL REFERENCES mentor_profiles(user_id) ON DELETE CASCADE,
		exception_date DATE NOT NULL,
		start_time     TIME,
		end_time       TIME,
		kind           TEXT NOT NULL CHECK (kind IN ('unavailable', 'override')),
		timezone       TEXT,
		reason         TEXT,
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_availability_exceptions_mentor_date ON availability_exceptions (mentor_id, exception_date)`,
	`CREATE TABLE IF NOT EXISTS legacy_availabilities (
		id          TEXT PRIMARY KEY,
		mentor_id   TEXT NOT NULL REFERENCES mentor_profiles(user_id) ON DELETE CASCADE,
		day_of_week SMALLINT NOT NULL CHECK (day_of_week BETWEEN 1 AND 7),
		start_time  TIME NOT NULL,
		end_time    TIME NOT NULL CHECK (end_time > start_time),
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id               TEXT PRIMARY KEY,
		mentor_id        TEXT NOT NULL,
		student_id       TEXT NOT NULL CHECK (student_id <> mentor_id),
		skill_id         TEXT NOT NULL,
		status           TEXT NOT NULL CHECK (status IN ('pending', 'confirmed', 'cancelled', 'completed')),
		scheduled_at     TIMESTAMPTZ NOT NULL,
		duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
		ends_at          TIMESTAMPTZ NOT NULL CHECK (ends_at > scheduled_at),
		location         TEXT,
		notes            TEXT,
		cancel_reason    TEXT,
		cancelled_by     TEXT,
		cancelled_at     TIMESTAMPTZ,
		confirmed_at     TIMESTAMPTZ,
		completed_at     TIMESTAMPTZ,
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_mentor_time ON sessions (mentor_id, scheduled_at)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_student_time ON sessions (student_id, scheduled_at)`,
	`DO $$ BEGIN
		ALTER TABLE sessions ADD CONSTRAINT sessions_no_overlap EXCLUDE USING gist (
			mentor_id WITH =,
			tstzrange(scheduled_at, ends_at, '[)') WITH &&
		) WHERE (status IN ('pending', 'confirmed'));
	EXCEPTION WHEN duplicate_object OR duplicate_table THEN NULL;
	END $$`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          TEXT PRIMARY KEY,
		user_id     TEXT,
		action      TEXT NOT NULL,
		resource    TEXT NOT NULL,
		resource_id TEXT,
		old_values  JSONB,
		new_values  JSONB,
		ip_address  TEXT,
		user_agent  TEXT,
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs (resource, resource_id)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id           TEXT PRIMARY KEY,
		recipient_id TEXT NOT NULL,
		event_type   TEXT NOT NULL,
		session_id   TEXT NOT NULL,
		payload      JSONB NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		UNIQUE (session_id, event_type, recipient_id)
	)`,
}

// EnsureSchema creates the tables, indexes and the session overlap constraint when missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
