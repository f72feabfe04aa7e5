package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"slackagent/model"
)

// SQLiteCache stores one row per conversation in a local database file.
type SQLiteCache struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteCache(ctx context.Context, path string, logger *slog.Logger) (*SQLiteCache, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is empty", ErrInvalidURL)
	}
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return nil, fmt.Errorf("%w: create cache directory: %v", ErrCache, err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrCache, err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent turns.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %v", ErrCache, err)
	}

	c := &SQLiteCache{db: db, logger: logger}
	if err := c.initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: initialize database: %v", ErrCache, err)
	}

	logger.Info("opened sqlite conversation cache", "path", path)
	return c, nil
}

func (c *SQLiteCache) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		key TEXT PRIMARY KEY,
		messages TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := c.db.ExecContext(ctx, schema)
	return err
}

func (c *SQLiteCache) Get(ctx context.Context, key string) (model.History, bool, error) {
	var data string
	err := c.db.QueryRowContext(ctx, `SELECT messages FROM conversations WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: load %s: %v", ErrCache, key, err)
	}

	var h model.History
	if err := json.Unmarshal([]byte(data), &h); err != nil {
		return nil, false, fmt.Errorf("%w: decode %s: %v", ErrCache, key, err)
	}
	if h == nil {
		h = model.History{}
	}
	return h, true, nil
}

func (c *SQLiteCache) Set(ctx context.Context, key string, history model.History) error {
	if history == nil {
		history = model.History{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrCache, key, err)
	}

	query := `
	INSERT INTO conversations (key, messages, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET messages = excluded.messages, updated_at = excluded.updated_at
	`
	if _, err := c.db.ExecContext(ctx, query, key, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("%w: save %s: %v", ErrCache, key, err)
	}
	return nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
