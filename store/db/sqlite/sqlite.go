package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	// Import the pure Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/timextag/internal/profile"
	"github.com/hrygo/timextag/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a SQLite database.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// Foreign keys drive the annotation cascade; busy_timeout covers concurrent batch writers.
	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)", profile.DSN)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}
	db.SetMaxOpenConns(1)

	var driver store.Driver = &DB{
		db:      db,
		profile: profile,
	}
	return driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the schema and records the schema version.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`); err != nil {
		return errors.Wrap(err, "migrate: create schema_migrations")
	}

	var current int
	if err := d.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current); err != nil {
		return errors.Wrap(err, "migrate: read current version")
	}
	if current >= store.SchemaVersion {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "migrate: begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	statements := []string{
		`CREATE TABLE IF NOT EXISTS document (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			source_path TEXT NOT NULL DEFAULT '',
			content_type TEXT NOT NULL DEFAULT '',
			length INTEGER NOT NULL DEFAULT 0,
			created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
			updated_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
		);`,
		`CREATE INDEX IF NOT EXISTS idx_document_source_path ON document (source_path);`,
		`CREATE TABLE IF NOT EXISTS annotation (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id TEXT NOT NULL REFERENCES document (id) ON DELETE CASCADE,
			set_name TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL,
			start_offset INTEGER NOT NULL,
			end_offset INTEGER NOT NULL,
			features TEXT NOT NULL DEFAULT '{}',
			created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
			CHECK (start_offset >= 0 AND end_offset > start_offset)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_annotation_document_set ON annotation (document_id, set_name, start_offset);`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate: apply schema")
		}
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?);`, store.SchemaVersion); err != nil {
		return errors.Wrap(err, "migrate: record schema version")
	}
	return errors.Wrap(tx.Commit(), "migrate: commit transaction")
}
