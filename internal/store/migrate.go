package store

import (
	"fmt"
	"time"
)

// migration is one schema version step. Steps run in order, each inside its
// own transaction; schema_migrations records what has been applied, so Open
// is safe against any older database.
type migration struct {
	version int
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE items (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				text TEXT NOT NULL DEFAULT '',
				is_folder INTEGER NOT NULL DEFAULT 0,
				parent_id INTEGER REFERENCES items(id) ON DELETE CASCADE,
				created_at INTEGER NOT NULL
			)`,
			`CREATE INDEX idx_items_parent_id ON items(parent_id)`,
		},
	},
	{
		version: 2,
		stmts: []string{
			`CREATE TABLE utterances (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				text TEXT NOT NULL,
				voice TEXT NOT NULL,
				pitch REAL NOT NULL,
				rate REAL NOT NULL,
				language TEXT NOT NULL,
				audio_path TEXT,
				created_at INTEGER NOT NULL
			)`,
			`CREATE INDEX idx_utterances_text ON utterances(text)`,
			`CREATE INDEX idx_utterances_created_at ON utterances(created_at)`,
		},
	},
	{
		version: 3,
		stmts: []string{
			`CREATE TABLE voices (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL,
				gender TEXT NOT NULL DEFAULT '',
				primary_language TEXT NOT NULL DEFAULT '',
				supported_languages TEXT NOT NULL DEFAULT '',
				fetched_at INTEGER NOT NULL
			)`,
			`CREATE INDEX idx_voices_fetched_at ON voices(fetched_at)`,
		},
	},
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := s.apply(m); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
		s.log.Debug("applied migration", "version", m.version)
	}
	return nil
}

func (s *Store) apply(m migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range m.stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		m.version, time.Now().Unix(),
	); err != nil {
		return err
	}
	return tx.Commit()
}
