// Package sqlite persists the cooldown record and the decision journal in a
// local SQLite database (WAL mode).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"signalbot/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/signalbot.db"
}

// Store holds the single-row bot_state table and the decisions journal.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens (or creates) the database with WAL mode and schema.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	logger.Info("sqlite opened", slog.String("path", cfg.DBPath))
	return &Store{db: db, logger: logger}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bot_state (
			id         INTEGER PRIMARY KEY CHECK (id = 1),
			data       TEXT    NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);

		CREATE TABLE IF NOT EXISTS decisions (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT    NOT NULL,
			symbol      TEXT    NOT NULL,
			kind        TEXT    NOT NULL,
			price       REAL,
			trend       TEXT,
			frame_used  TEXT,
			reason      TEXT,
			decided_at  DATETIME NOT NULL,
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_decisions_symbol ON decisions(symbol);
		CREATE INDEX IF NOT EXISTS idx_decisions_run ON decisions(run_id);
	`)
	return err
}

// Load returns the stored record, or an empty record when none was saved yet.
func (s *Store) Load(ctx context.Context) (*model.CooldownRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM bot_state WHERE id = 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.NewCooldownRecord(), nil
		}
		return nil, fmt.Errorf("sqlite read state: %w", err)
	}

	rec := model.NewCooldownRecord()
	if err := json.Unmarshal([]byte(data), rec); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	if rec.Cooldowns == nil {
		rec.Cooldowns = model.NewCooldownRecord().Cooldowns
	}
	return rec, nil
}

// Save replaces the stored record.
func (s *Store) Save(ctx context.Context, rec *model.CooldownRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bot_state (id, data, updated_at) VALUES (1, ?, strftime('%s', 'now'))
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, string(data))
	if err != nil {
		return fmt.Errorf("sqlite write state: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
