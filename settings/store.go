package settings

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS settings (
    client_id TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
    PRIMARY KEY (client_id, key)
);
`

// Store keeps settings per client in SQLite
type Store struct {
	db *sql.DB
}

// Open creates or opens a settings database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return newStore(db)
}

// OpenMemory creates an in-memory store, used by tests and the CLI
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	// every connection would get its own empty database
	db.SetMaxOpenConns(1)

	return newStore(db)
}

func newStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the client's settings; a client without stored values gets
// Defaults.
func (s *Store) Load(ctx context.Context, clientID string) (Settings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings WHERE client_id = ?`, clientID)
	if err != nil {
		return Settings{}, fmt.Errorf("querying settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Settings{}, fmt.Errorf("scanning settings: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return Settings{}, fmt.Errorf("reading settings: %w", err)
	}
	return FromMap(values), nil
}

// Save writes every key of settings for the client in one transaction
func (s *Store) Save(ctx context.Context, clientID string, settings Settings) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO settings (client_id, key, value, updated_at)
		VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT(client_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for key, value := range settings.ToMap() {
		if _, err := stmt.ExecContext(ctx, clientID, key, value); err != nil {
			return fmt.Errorf("saving %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing settings: %w", err)
	}
	return nil
}

// Update loads the client's settings, applies u and saves the result
func (s *Store) Update(ctx context.Context, clientID string, u Update) (Settings, error) {
	current, err := s.Load(ctx, clientID)
	if err != nil {
		return Settings{}, err
	}
	next, err := current.Apply(u)
	if err != nil {
		return Settings{}, err
	}
	if err := s.Save(ctx, clientID, next); err != nil {
		return Settings{}, err
	}
	return next, nil
}
