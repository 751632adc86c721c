package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/addr2line-web/addr2line/internal/core"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS artifacts (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	name         TEXT NOT NULL,
	display_name TEXT NOT NULL,
	source_path  TEXT NOT NULL DEFAULT '',
	tags         TEXT NOT NULL DEFAULT '[]',
	size         INTEGER NOT NULL DEFAULT 0,
	created_at   TEXT NOT NULL,
	content      BLOB
);

CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SQLite is a Store backed by one SQLite database file.
type SQLite struct {
	db       *sql.DB
	compress bool
}

// OpenSQLite opens or creates the database at path and its schema.
func OpenSQLite(ctx context.Context, path string, compress bool) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}

	return &SQLite{db: db, compress: compress}, nil
}

// PutArtifact implements core.ArtifactStore.
func (s *SQLite) PutArtifact(ctx context.Context, rec core.ArtifactRecord, content []byte) error {
	tags, err := json.Marshal(nonNil(rec.Tags))
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	var blob any
	if content != nil {
		blob = encodeBlob(content, s.compress)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO artifacts (id, name, display_name, source_path, tags, size, created_at, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			display_name = excluded.display_name,
			source_path = excluded.source_path,
			tags = excluded.tags,
			size = excluded.size,
			content = COALESCE(excluded.content, artifacts.content)`,
		rec.ID, rec.Name, rec.DisplayName, rec.SourcePath, string(tags), rec.Size,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano), blob,
	)
	if err != nil {
		return fmt.Errorf("put artifact %s: %w", rec.ID, err)
	}
	return nil
}

// DeleteArtifact implements core.ArtifactStore.
func (s *SQLite) DeleteArtifact(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete artifact %s: %w", id, err)
	}
	return nil
}

// ListArtifacts implements core.ArtifactStore.
func (s *SQLite) ListArtifacts(ctx context.Context) ([]core.ArtifactRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, display_name, source_path, tags, size, created_at
		FROM artifacts ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []core.ArtifactRecord
	for rows.Next() {
		var rec core.ArtifactRecord
		var tags, created string
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.DisplayName, &rec.SourcePath, &tags, &rec.Size, &created); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
			return nil, fmt.Errorf("decode tags of %s: %w", rec.ID, err)
		}
		if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("decode created_at of %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ArtifactContent implements core.ArtifactStore.
func (s *SQLite) ArtifactContent(ctx context.Context, id string) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT content FROM artifacts WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && blob == nil) {
		return nil, fmt.Errorf("content of %s: %w", id, core.ErrArtifactNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("content of %s: %w", id, err)
	}
	return decodeBlob(blob)
}

// SaveOrder implements core.OrderStore.
func (s *SQLite) SaveOrder(ctx context.Context, ids []string) error {
	value, err := json.Marshal(nonNil(ids))
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		core.OrderKey, string(value),
	)
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

// LoadOrder implements core.OrderStore.
func (s *SQLite) LoadOrder(ctx context.Context) ([]string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, core.OrderKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	var ids []string
	if err := json.Unmarshal([]byte(value), &ids); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return ids, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
