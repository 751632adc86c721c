package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/addr2line-web/addr2line/internal/config"
	"github.com/addr2line-web/addr2line/internal/core"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS artifacts (
	seq          BIGSERIAL PRIMARY KEY,
	id           TEXT NOT NULL UNIQUE,
	name         TEXT NOT NULL,
	display_name TEXT NOT NULL,
	source_path  TEXT NOT NULL DEFAULT '',
	tags         TEXT[] NOT NULL DEFAULT '{}',
	size         BIGINT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL,
	content      BYTEA
);

CREATE TABLE IF NOT EXISTS app_state (
	key TEXT PRIMARY KEY,
	ids TEXT[] NOT NULL
);
`

// Postgres is a Store backed by a PostgreSQL connection pool.
type Postgres struct {
	pool     *pgxpool.Pool
	compress bool
}

// OpenPostgres connects with the pool settings in cfg and ensures the schema.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig, compress bool) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	p := &Postgres{pool: pool, compress: compress}
	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// EnsureSchema creates the tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create postgres schema: %w", err)
	}
	return nil
}

// PutArtifact implements core.ArtifactStore.
func (p *Postgres) PutArtifact(ctx context.Context, rec core.ArtifactRecord, content []byte) error {
	var blob any
	if content != nil {
		blob = encodeBlob(content, p.compress)
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO artifacts (id, name, display_name, source_path, tags, size, created_at, content)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			display_name = EXCLUDED.display_name,
			source_path = EXCLUDED.source_path,
			tags = EXCLUDED.tags,
			size = EXCLUDED.size,
			content = COALESCE(EXCLUDED.content, artifacts.content)`,
		rec.ID, rec.Name, rec.DisplayName, rec.SourcePath, nonNil(rec.Tags), rec.Size, rec.CreatedAt, blob,
	)
	if err != nil {
		return fmt.Errorf("put artifact %s: %w", rec.ID, err)
	}
	return nil
}

// DeleteArtifact implements core.ArtifactStore.
func (p *Postgres) DeleteArtifact(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM artifacts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete artifact %s: %w", id, err)
	}
	return nil
}

// ListArtifacts implements core.ArtifactStore.
func (p *Postgres) ListArtifacts(ctx context.Context) ([]core.ArtifactRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, name, display_name, source_path, tags, size, created_at
		FROM artifacts ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.ArtifactRecord, error) {
		var rec core.ArtifactRecord
		err := row.Scan(&rec.ID, &rec.Name, &rec.DisplayName, &rec.SourcePath, &rec.Tags, &rec.Size, &rec.CreatedAt)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan artifacts: %w", err)
	}
	return out, nil
}

// ArtifactContent implements core.ArtifactStore.
func (p *Postgres) ArtifactContent(ctx context.Context, id string) ([]byte, error) {
	var blob []byte
	err := p.pool.QueryRow(ctx, `SELECT content FROM artifacts WHERE id = $1`, id).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && blob == nil) {
		return nil, fmt.Errorf("content of %s: %w", id, core.ErrArtifactNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("content of %s: %w", id, err)
	}
	return decodeBlob(blob)
}

// SaveOrder implements core.OrderStore.
func (p *Postgres) SaveOrder(ctx context.Context, ids []string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO app_state (key, ids) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET ids = EXCLUDED.ids`,
		core.OrderKey, nonNil(ids),
	)
	if err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

// LoadOrder implements core.OrderStore.
func (p *Postgres) LoadOrder(ctx context.Context) ([]string, error) {
	var ids []string
	err := p.pool.QueryRow(ctx, `SELECT ids FROM app_state WHERE key = $1`, core.OrderKey).Scan(&ids)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	return ids, nil
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
