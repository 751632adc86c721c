package core

import (
	"context"
	"time"
)

// OrderKey is the constant key of the persisted order record.
const OrderKey = "fileOrder"

// ArtifactRecord is the persisted metadata of an artifact.
type ArtifactRecord struct {
	ID          string
	Name        string
	DisplayName string
	SourcePath  string
	Tags        []string
	Size        int64
	CreatedAt   time.Time
}

// ArtifactStore persists artifact records keyed by id.
//
// PutArtifact upserts the record; a nil content leaves stored bytes as they
// are, so metadata edits do not rewrite blobs. ListArtifacts returns every
// record in storage discovery order, which for all implementations is first
// insertion order and is not changed by later upserts. DeleteArtifact of an
// unknown id is not an error. ArtifactContent returns ErrArtifactNotFound
// for unknown ids.
type ArtifactStore interface {
	PutArtifact(ctx context.Context, rec ArtifactRecord, content []byte) error
	DeleteArtifact(ctx context.Context, id string) error
	ListArtifacts(ctx context.Context) ([]ArtifactRecord, error)
	ArtifactContent(ctx context.Context, id string) ([]byte, error)
}

// OrderStore persists the single order record under OrderKey.
// LoadOrder returns nil when no order was saved yet.
type OrderStore interface {
	SaveOrder(ctx context.Context, ids []string) error
	LoadOrder(ctx context.Context) ([]string, error)
}

// ReconcileOrder arranges records by a persisted order.
//
// Records whose id appears in order come first, by their position in order.
// The rest follow in the order given, unchanged relative to each other.
// Ids in order that have no record are ignored; a repeated id counts at its
// first position.
func ReconcileOrder(records []ArtifactRecord, order []string) []ArtifactRecord {
	pos := make(map[string]int, len(order))
	for i, id := range order {
		if _, seen := pos[id]; !seen {
			pos[id] = i
		}
	}

	ordered := make([]ArtifactRecord, 0, len(records))
	slots := make([]*ArtifactRecord, len(order))
	var rest []ArtifactRecord
	for i := range records {
		if p, ok := pos[records[i].ID]; ok && slots[p] == nil {
			slots[p] = &records[i]
			continue
		}
		rest = append(rest, records[i])
	}

	for _, rec := range slots {
		if rec != nil {
			ordered = append(ordered, *rec)
		}
	}
	return append(ordered, rest...)
}
