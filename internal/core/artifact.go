package core

import (
	"context"
	"slices"
	"time"
)

// Artifact is one uploaded binary and its metadata.
type Artifact struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"displayName"`
	SourcePath  string    `json:"sourcePath"`
	Tags        []string  `json:"tags"` // set, kept sorted
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`

	content ContentSource
}

// HasTag reports whether the artifact carries tag.
func (a *Artifact) HasTag(tag string) bool {
	_, found := slices.BinarySearch(a.Tags, tag)
	return found
}

// Content loads the artifact's bytes.
func (a *Artifact) Content(ctx context.Context) ([]byte, error) {
	if a.content == nil {
		return nil, ErrArtifactNotFound
	}
	return a.content.Bytes(ctx)
}

// Record returns the persisted form of the artifact.
func (a *Artifact) Record() ArtifactRecord {
	return ArtifactRecord{
		ID:          a.ID,
		Name:        a.Name,
		DisplayName: a.DisplayName,
		SourcePath:  a.SourcePath,
		Tags:        slices.Clone(a.Tags),
		Size:        a.Size,
		CreatedAt:   a.CreatedAt,
	}
}

// clone returns a copy safe to hand out of the registry.
func (a *Artifact) clone() Artifact {
	c := *a
	c.Tags = slices.Clone(a.Tags)
	return c
}

// ContentSource supplies an artifact's bytes on demand.
type ContentSource interface {
	Bytes(ctx context.Context) ([]byte, error)
}

// BytesSource is a ContentSource over an in-memory blob.
type BytesSource []byte

// Bytes returns the blob.
func (b BytesSource) Bytes(context.Context) ([]byte, error) { return b, nil }

// ContentFunc adapts a function to ContentSource.
type ContentFunc func(ctx context.Context) ([]byte, error)

// Bytes calls f.
func (f ContentFunc) Bytes(ctx context.Context) ([]byte, error) { return f(ctx) }

// Upload describes one file to add to the registry.
type Upload struct {
	Name    string
	Path    string // defaults to Name
	Content ContentSource
}
