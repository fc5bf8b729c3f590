package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/HartBrook/promptforge/internal/errors"
)

// SQLiteBackend stores entries in a single SQLite table.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path. ":memory:" opens a
// private in-memory database.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, errors.CacheBackend("mkdir", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.CacheBackend("open", err)
	}
	// One connection keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	s := &SQLiteBackend{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS prompt_cache (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,            -- JSON-encoded PromptObject
		hits INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		last_access TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_prompt_cache_last_access ON prompt_cache(last_access);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return errors.CacheBackend("init schema", err)
	}
	return nil
}

// GetCached reads the entry for key.
func (s *SQLiteBackend) GetCached(ctx context.Context, key string) (*Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, payload, hits, created_at, last_access FROM prompt_cache WHERE key = ?`, key)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// PutCached inserts or replaces e. created_at is kept from the first write.
func (s *SQLiteBackend) PutCached(ctx context.Context, e *Entry) error {
	payload, err := json.Marshal(e.Prompt)
	if err != nil {
		return errors.CacheBackend("encode", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO prompt_cache (key, payload, hits, created_at, last_access)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			hits = excluded.hits,
			last_access = excluded.last_access`,
		e.Key, string(payload), e.Hits,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
		e.LastAccess.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return errors.CacheBackend("write", err)
	}
	return nil
}

// DeleteCached removes the entry for key, reporting whether it existed.
func (s *SQLiteBackend) DeleteCached(ctx context.Context, key string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prompt_cache WHERE key = ?`, key)
	if err != nil {
		return false, errors.CacheBackend("delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.CacheBackend("delete", err)
	}
	return n > 0, nil
}

// List returns all entries, most recently used first.
func (s *SQLiteBackend) List(ctx context.Context) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, payload, hits, created_at, last_access FROM prompt_cache ORDER BY last_access DESC`)
	if err != nil {
		return nil, errors.CacheBackend("list", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.CacheBackend("list", err)
	}
	return entries, nil
}

// Clear deletes every row and returns how many were removed.
func (s *SQLiteBackend) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM prompt_cache`)
	if err != nil {
		return 0, errors.CacheBackend("clear", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.CacheBackend("clear", err)
	}
	return int(n), nil
}

// Close closes the database.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (*Entry, error) {
	var (
		e                 Entry
		payload           string
		created, accessed string
	)
	if err := sc.Scan(&e.Key, &payload, &e.Hits, &created, &accessed); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, errors.CacheBackend("read", err)
	}

	if err := json.Unmarshal([]byte(payload), &e.Prompt); err != nil {
		return nil, errors.CacheBackend("decode", err)
	}

	var err error
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, errors.CacheBackend("decode", err)
	}
	if e.LastAccess, err = time.Parse(time.RFC3339Nano, accessed); err != nil {
		return nil, errors.CacheBackend("decode", err)
	}
	return &e, nil
}
