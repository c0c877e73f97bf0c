package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one forward-only schema operation, guarded by a
// monotonically increasing version stored in schema_version. Per
// spec.md §4.1, every migration must be backward-readable for
// historical data — we never rewrite existing rows' shapes, only add.
type migration struct {
	version int
	sqlite  []string
	postgres []string
}

// migrations is the ordered sequence of schema operations. Bumping the
// schema means appending a new entry here, never editing an old one.
var migrations = []migration{
	{
		version: 1,
		sqlite: []string{
			`CREATE TABLE IF NOT EXISTS proposals (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL,
				io_schema TEXT NOT NULL,
				effect_class TEXT NOT NULL,
				required_secrets TEXT NOT NULL DEFAULT '[]',
				status TEXT NOT NULL,
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_proposals_name ON proposals(name)`,
			`CREATE TABLE IF NOT EXISTS builds (
				id TEXT PRIMARY KEY,
				proposal_id TEXT NOT NULL,
				branch_name TEXT NOT NULL,
				started_at DATETIME NOT NULL,
				finished_at DATETIME,
				status TEXT NOT NULL,
				summary TEXT NOT NULL DEFAULT '',
				attempt_number INTEGER NOT NULL DEFAULT 1,
				parent_build_id TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_builds_proposal ON builds(proposal_id)`,
			`CREATE TABLE IF NOT EXISTS verifications (
				id TEXT PRIMARY KEY,
				proposal_id TEXT NOT NULL,
				status TEXT NOT NULL,
				ruff_ok BOOLEAN NOT NULL,
				mypy_ok BOOLEAN NOT NULL,
				tests_ok BOOLEAN NOT NULL,
				policy_ok BOOLEAN NOT NULL,
				invariant_ok BOOLEAN NOT NULL,
				report_path TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_verifications_proposal ON verifications(proposal_id, created_at)`,
			`CREATE TABLE IF NOT EXISTS promotions (
				id TEXT PRIMARY KEY,
				proposal_id TEXT NOT NULL,
				from_status TEXT NOT NULL,
				to_status TEXT NOT NULL,
				approved_by TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS artifacts (
				id TEXT PRIMARY KEY,
				kind TEXT NOT NULL,
				path TEXT NOT NULL,
				sha256 TEXT NOT NULL,
				related_id TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_artifacts_related ON artifacts(related_id)`,
		},
		postgres: []string{
			`CREATE TABLE IF NOT EXISTS proposals (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL,
				io_schema TEXT NOT NULL,
				effect_class TEXT NOT NULL,
				required_secrets TEXT NOT NULL DEFAULT '[]',
				status TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_proposals_name ON proposals(name)`,
			`CREATE TABLE IF NOT EXISTS builds (
				id TEXT PRIMARY KEY,
				proposal_id TEXT NOT NULL,
				branch_name TEXT NOT NULL,
				started_at TIMESTAMPTZ NOT NULL,
				finished_at TIMESTAMPTZ,
				status TEXT NOT NULL,
				summary TEXT NOT NULL DEFAULT '',
				attempt_number INTEGER NOT NULL DEFAULT 1,
				parent_build_id TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_builds_proposal ON builds(proposal_id)`,
			`CREATE TABLE IF NOT EXISTS verifications (
				id TEXT PRIMARY KEY,
				proposal_id TEXT NOT NULL,
				status TEXT NOT NULL,
				ruff_ok BOOLEAN NOT NULL,
				mypy_ok BOOLEAN NOT NULL,
				tests_ok BOOLEAN NOT NULL,
				policy_ok BOOLEAN NOT NULL,
				invariant_ok BOOLEAN NOT NULL,
				report_path TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_verifications_proposal ON verifications(proposal_id, created_at)`,
			`CREATE TABLE IF NOT EXISTS promotions (
				id TEXT PRIMARY KEY,
				proposal_id TEXT NOT NULL,
				from_status TEXT NOT NULL,
				to_status TEXT NOT NULL,
				approved_by TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS artifacts (
				id TEXT PRIMARY KEY,
				kind TEXT NOT NULL,
				path TEXT NOT NULL,
				sha256 TEXT NOT NULL,
				related_id TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_artifacts_related ON artifacts(related_id)`,
		},
	},
}

// runMigrations runs all migrations whose version exceeds the stored
// schema_version, in order, inside one transaction each. Re-running on
// an already-current ledger is a no-op (spec.md §8 round-trip property).
func runMigrations(ctx context.Context, db *sql.DB, dialect dialect) error {
	autoincrement := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if dialect == dialectPostgres {
		autoincrement = "SERIAL PRIMARY KEY"
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS schema_version (id %s, version INTEGER NOT NULL)`, autoincrement)); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		stmts := m.sqlite
		if dialect == dialectPostgres {
			stmts = m.postgres
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d: %w", m.version, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (`+placeholder(dialect, 1)+`)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d: record version: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: commit: %w", m.version, err)
		}
		current = m.version
	}
	return nil
}

func currentVersion(ctx context.Context, db *sql.DB) (int, error) {
	row := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	var v int
	if err := row.Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema_version: %w", err)
	}
	return v, nil
}
