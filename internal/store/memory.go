// Package store persists artifacts and their order for the registry.
//
// Three backends implement core.ArtifactStore and core.OrderStore:
//
//	Memory    process-local, for tests and throwaway sessions
//	SQLite    a single database file (modernc.org/sqlite, no cgo)
//	Postgres  a shared PostgreSQL database (pgx pool)
//
// Binaries are stored as tagged blobs, zstd-compressed unless disabled.
package store

import (
	"context"
	"slices"
	"sync"

	"github.com/addr2line-web/addr2line/internal/core"
)

// Store is a complete persistence backend.
type Store interface {
	core.ArtifactStore
	core.OrderStore
	Close() error
}

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	records []core.ArtifactRecord // insertion order
	blobs   map[string][]byte
	order   []string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// PutArtifact implements core.ArtifactStore.
func (m *Memory) PutArtifact(_ context.Context, rec core.ArtifactRecord, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec.Tags = slices.Clone(rec.Tags)
	if i := m.indexOf(rec.ID); i >= 0 {
		m.records[i] = rec
	} else {
		m.records = append(m.records, rec)
	}
	if content != nil {
		m.blobs[rec.ID] = slices.Clone(content)
	}
	return nil
}

// DeleteArtifact implements core.ArtifactStore.
func (m *Memory) DeleteArtifact(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.indexOf(id); i >= 0 {
		m.records = slices.Delete(m.records, i, i+1)
	}
	delete(m.blobs, id)
	return nil
}

// ListArtifacts implements core.ArtifactStore.
func (m *Memory) ListArtifacts(context.Context) ([]core.ArtifactRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.ArtifactRecord, len(m.records))
	for i, rec := range m.records {
		rec.Tags = slices.Clone(rec.Tags)
		out[i] = rec
	}
	return out, nil
}

// ArtifactContent implements core.ArtifactStore.
func (m *Memory) ArtifactContent(_ context.Context, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[id]
	if !ok {
		return nil, core.ErrArtifactNotFound
	}
	return slices.Clone(data), nil
}

// SaveOrder implements core.OrderStore.
func (m *Memory) SaveOrder(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = slices.Clone(ids)
	return nil
}

// LoadOrder implements core.OrderStore.
func (m *Memory) LoadOrder(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.order), nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

func (m *Memory) indexOf(id string) int {
	return slices.IndexFunc(m.records, func(r core.ArtifactRecord) bool { return r.ID == id })
}
