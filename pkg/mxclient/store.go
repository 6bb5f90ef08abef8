// Copyright 2024-2026 Aiku AI

package mxclient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
	_ "modernc.org/sqlite"

	"github.com/aiku/mxconsole/pkg/handler"
)

// pushTokenKey is the key/value entry holding the push notification token.
const pushTokenKey = "push_token"

var errStoreClosed = errors.New("store is not open")

// Store is the persistent sync store. It keeps the next_batch token and the
// filter ID per user, plus a small key/value table.
type Store struct {
	log  zerolog.Logger
	path string

	mu sync.RWMutex
	db *sql.DB
}

var (
	_ mautrix.SyncStore = (*Store)(nil)
	_ handler.Store     = (*Store)(nil)
)

// NewStore returns a store for the database file at path. It is opened by Open.
func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{
		log:  log.With().Str("component", "sync_store").Logger(),
		path: path,
	}
}

// Open opens the database, creating it and its schema if needed. Opening an
// already open store is a no-op.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := s.path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	if err := initSchema(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("initialize schema: %w", err)
	}
	if err := checkIntegrity(ctx, db); err != nil {
		_ = db.Close()
		return err
	}
	s.db = db
	s.log.Debug().Str("path", s.path).Msg("Opened sync store")
	return nil
}

func initSchema(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS sync_state (
		user_id TEXT PRIMARY KEY,
		filter_id TEXT NOT NULL DEFAULT '',
		next_batch TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS kv_store (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func checkIntegrity(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("%w: %w", handler.ErrStoreCorrupted, err)
	}
	if result != "ok" {
		return fmt.Errorf("%w: quick_check reported %q", handler.ErrStoreCorrupted, result)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errStoreClosed
	}
	return s.db, nil
}

func (s *Store) SaveFilterID(ctx context.Context, userID id.UserID, filterID string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO sync_state (user_id, filter_id) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET filter_id = excluded.filter_id`,
		userID, filterID)
	if err != nil {
		return fmt.Errorf("save filter id: %w", err)
	}
	return nil
}

func (s *Store) LoadFilterID(ctx context.Context, userID id.UserID) (string, error) {
	return s.loadColumn(ctx, "filter_id", userID)
}

// SaveNextBatch is called by the sync loop before a response is handed out.
// It does not persist anything: the session layer calls SaveSyncPosition once
// the batch has been applied, so a batch dropped during a pause is fetched
// again by the next sync.
func (s *Store) SaveNextBatch(_ context.Context, _ id.UserID, _ string) error {
	_, err := s.conn()
	return err
}

// SaveSyncPosition persists the next_batch token of an applied batch.
func (s *Store) SaveSyncPosition(ctx context.Context, userID id.UserID, token string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO sync_state (user_id, next_batch) VALUES (?, ?)
		ON CONFLICT (user_id) DO UPDATE SET next_batch = excluded.next_batch`,
		userID, token)
	if err != nil {
		return fmt.Errorf("save sync position: %w", err)
	}
	return nil
}

func (s *Store) LoadNextBatch(ctx context.Context, userID id.UserID) (string, error) {
	return s.loadColumn(ctx, "next_batch", userID)
}

// loadColumn reads one column of a user's sync_state row. column is
// always a constant from this file.
func (s *Store) loadColumn(ctx context.Context, column string, userID id.UserID) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}
	var value string
	err = db.QueryRowContext(ctx, "SELECT "+column+" FROM sync_state WHERE user_id = ?", userID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load %s: %w", column, err)
	}
	return value, nil
}

// Invalidate drops all sync state so the next sync starts from scratch.
// The key/value table is kept.
func (s *Store) Invalidate(ctx context.Context) error {
	db, err := s.conn()
	if errors.Is(err, errStoreClosed) {
		return nil
	} else if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM sync_state"); err != nil {
		return fmt.Errorf("invalidate sync state: %w", err)
	}
	s.log.Info().Msg("Invalidated sync store")
	return nil
}

// ResetSync clears the saved sync tokens so the next sync is an initial
// one. Filter IDs are kept.
func (s *Store) ResetSync(ctx context.Context) error {
	db, err := s.conn()
	if errors.Is(err, errStoreClosed) {
		return nil
	} else if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "UPDATE sync_state SET next_batch = ''"); err != nil {
		return fmt.Errorf("reset sync position: %w", err)
	}
	return nil
}

// Valid reports whether the store is open and holds a sync token.
func (s *Store) Valid(ctx context.Context) bool {
	db, err := s.conn()
	if err != nil {
		return false
	}
	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sync_state WHERE next_batch <> ''").Scan(&count)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to check sync store")
		return false
	}
	return count > 0
}

// Size returns the size of the database files in bytes.
func (s *Store) Size(_ context.Context) (int64, error) {
	var total int64
	for _, suffix := range []string{"", "-wal", "-shm"} {
		info, err := os.Stat(s.path + suffix)
		if errors.Is(err, os.ErrNotExist) {
			continue
		} else if err != nil {
			return 0, fmt.Errorf("stat %s: %w", s.path+suffix, err)
		}
		total += info.Size()
	}
	return total, nil
}

// SetPushToken stores the push notification token of this device.
func (s *Store) SetPushToken(ctx context.Context, token string) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	if token == "" {
		_, err = db.ExecContext(ctx, "DELETE FROM kv_store WHERE key = ?", pushTokenKey)
	} else {
		_, err = db.ExecContext(ctx, `
			INSERT INTO kv_store (key, value) VALUES (?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
			pushTokenKey, token)
	}
	if err != nil {
		return fmt.Errorf("save push token: %w", err)
	}
	return nil
}

// PushToken returns the stored push notification token, or "".
func (s *Store) PushToken(ctx context.Context) (string, error) {
	db, err := s.conn()
	if err != nil {
		return "", err
	}
	var token string
	err = db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", pushTokenKey).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load push token: %w", err)
	}
	return token, nil
}
