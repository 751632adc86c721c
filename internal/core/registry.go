package core

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Registry is the ordered collection of artifacts with one active selection
// and a presentation-only tag filter.
//
// Every mutation computes its new state first, persists it, and only then
// replaces the in-memory state, so a failed store write leaves the registry
// as it was. Registry is not safe for concurrent use; Session serializes
// access to it.
type Registry struct {
	artifacts ArtifactStore
	order     OrderStore

	items        []*Artifact
	active       int // -1 when no artifact is active
	selectedTags map[string]struct{}

	followActiveOnReorder bool
	loads                 singleflight.Group
	now                   func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithActiveFollowsReorder makes Reorder keep the active selection on the
// moved artifact. By default the active index is positional: after a move it
// points at whatever artifact now occupies that slot.
func WithActiveFollowsReorder(follow bool) RegistryOption {
	return func(r *Registry) { r.followActiveOnReorder = follow }
}

// LoadRegistry builds a registry from the stores, arranging artifacts by the
// persisted order (see ReconcileOrder). The first artifact, if any, is active.
func LoadRegistry(ctx context.Context, artifacts ArtifactStore, order OrderStore, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		artifacts:    artifacts,
		order:        order,
		active:       -1,
		selectedTags: make(map[string]struct{}),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	records, err := artifacts.ListArtifacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	ids, err := order.LoadOrder(ctx)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	for _, rec := range ReconcileOrder(records, ids) {
		r.items = append(r.items, r.fromRecord(rec))
	}
	if len(r.items) > 0 {
		r.active = 0
	}

	slog.Debug("registry loaded", "artifacts", len(r.items), "order_ids", len(ids))
	return r, nil
}

func (r *Registry) fromRecord(rec ArtifactRecord) *Artifact {
	tags := normalizeTags(rec.Tags)
	display := rec.DisplayName
	if display == "" {
		display = rec.Name
	}
	a := &Artifact{
		ID:          rec.ID,
		Name:        rec.Name,
		DisplayName: display,
		SourcePath:  rec.SourcePath,
		Tags:        tags,
		Size:        rec.Size,
		CreatedAt:   rec.CreatedAt,
	}
	a.content = r.storeSource(rec.ID)
	return a
}

// storeSource reads an artifact's bytes from the store. Concurrent reads of
// the same artifact share one store call.
func (r *Registry) storeSource(id string) ContentSource {
	return ContentFunc(func(ctx context.Context) ([]byte, error) {
		v, err, _ := r.loads.Do(id, func() (any, error) {
			return r.artifacts.ArtifactContent(ctx, id)
		})
		if err != nil {
			return nil, err
		}
		return v.([]byte), nil
	})
}

// Len returns the number of artifacts.
func (r *Registry) Len() int { return len(r.items) }

// Items returns copies of all artifacts in order.
func (r *Registry) Items() []Artifact {
	out := make([]Artifact, len(r.items))
	for i, a := range r.items {
		out[i] = a.clone()
	}
	return out
}

// IDs returns artifact ids in order.
func (r *Registry) IDs() []string {
	return idsOf(r.items)
}

// Get returns a copy of the artifact with id.
func (r *Registry) Get(id string) (Artifact, bool) {
	i := r.indexOf(id)
	if i < 0 {
		return Artifact{}, false
	}
	return r.items[i].clone(), true
}

// ActiveIndex returns the active index, or ok=false when none is active.
func (r *Registry) ActiveIndex() (int, bool) {
	return r.active, r.active >= 0
}

// Active returns a copy of the active artifact. The copy can load content.
func (r *Registry) Active() (Artifact, bool) {
	if r.active < 0 {
		return Artifact{}, false
	}
	return r.items[r.active].clone(), true
}

func (r *Registry) indexOf(id string) int {
	return slices.IndexFunc(r.items, func(a *Artifact) bool { return a.ID == id })
}

// Add adds one artifact and makes it active. See AddMany.
func (r *Registry) Add(ctx context.Context, name, path string, src ContentSource) (string, error) {
	ids, err := r.AddMany(ctx, []Upload{{Name: name, Path: path, Content: src}})
	if len(ids) == 0 {
		return "", err
	}
	return ids[0], err
}

// AddMany adds uploads in order, persisting each artifact as it is added and
// the order record once after all of them. The last added artifact becomes
// active.
//
// If an upload fails, the ones before it stay added and the error is
// returned with their ids.
func (r *Registry) AddMany(ctx context.Context, uploads []Upload) ([]string, error) {
	var ids []string
	var firstErr error

	for _, up := range uploads {
		a, err := r.persistNew(ctx, up)
		if err != nil {
			firstErr = err
			break
		}
		r.items = append(r.items, a)
		ids = append(ids, a.ID)
	}

	if len(ids) == 0 {
		return nil, firstErr
	}

	r.active = len(r.items) - 1
	if err := r.saveOrder(ctx); err != nil && firstErr == nil {
		firstErr = err
	}

	slog.Info("artifacts added", "count", len(ids), "total", len(r.items))
	return ids, firstErr
}

func (r *Registry) persistNew(ctx context.Context, up Upload) (*Artifact, error) {
	if up.Content == nil {
		return nil, fmt.Errorf("add %s: no file provided", up.Name)
	}
	data, err := up.Content.Bytes(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", up.Name, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("add %s: empty file", up.Name)
	}

	path := up.Path
	if path == "" {
		path = up.Name
	}
	a := &Artifact{
		ID:          uuid.New().String(),
		Name:        up.Name,
		DisplayName: up.Name,
		SourcePath:  path,
		Tags:        []string{},
		Size:        int64(len(data)),
		CreatedAt:   r.now().UTC(),
	}

	if err := r.artifacts.PutArtifact(ctx, a.Record(), data); err != nil {
		return nil, fmt.Errorf("store %s: %w", up.Name, err)
	}
	a.content = r.storeSource(a.ID)
	return a, nil
}

// Remove deletes the artifact with id.
//
// When the active artifact is removed, the artifact that slides into its
// slot becomes active; if it was last, the new last artifact does; if the
// registry is now empty nothing is active. Removing an artifact before the
// active one shifts the active index down so it keeps pointing at the same
// artifact.
func (r *Registry) Remove(ctx context.Context, id string) error {
	idx := r.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("remove %s: %w", id, ErrArtifactNotFound)
	}

	if err := r.artifacts.DeleteArtifact(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}

	r.items = slices.Delete(r.items, idx, idx+1)
	r.active = activeAfterRemove(r.active, idx, len(r.items))

	return r.saveOrder(ctx)
}

// activeAfterRemove computes the active index after removing removed from a
// list that now has n items.
func activeAfterRemove(active, removed, n int) int {
	switch {
	case active < 0:
		return -1
	case n == 0:
		return -1
	case removed < active:
		return active - 1
	case removed == active && active >= n:
		return n - 1
	default:
		return active
	}
}

// Reorder moves the artifact at from to position to, shifting the ones in
// between. The active index stays positional unless the registry was built
// WithActiveFollowsReorder.
func (r *Registry) Reorder(ctx context.Context, from, to int) error {
	if from < 0 || from >= len(r.items) || to < 0 || to >= len(r.items) {
		return fmt.Errorf("reorder %d -> %d: %w", from, to, ErrIndexOutOfRange)
	}
	if from == to {
		return nil
	}

	next := moveItem(r.items, from, to)
	if err := r.order.SaveOrder(ctx, idsOf(next)); err != nil {
		return fmt.Errorf("save order: %w", err)
	}

	r.items = next
	if r.followActiveOnReorder {
		r.active = activeAfterMove(r.active, from, to)
	}
	return nil
}

// moveItem returns a copy of items with the element at from moved to to.
func moveItem[T any](items []T, from, to int) []T {
	next := slices.Clone(items)
	moved := next[from]
	next = slices.Delete(next, from, from+1)
	return slices.Insert(next, to, moved)
}

// activeAfterMove tracks an active index across an array move.
func activeAfterMove(active, from, to int) int {
	switch {
	case active < 0:
		return active
	case active == from:
		return to
	case from < active && active <= to:
		return active - 1
	case to <= active && active < from:
		return active + 1
	default:
		return active
	}
}

// Rename sets the display name. A blank name restores the original name.
func (r *Registry) Rename(ctx context.Context, id, displayName string) error {
	idx := r.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("rename %s: %w", id, ErrArtifactNotFound)
	}

	a := r.items[idx]
	name := strings.TrimSpace(displayName)
	if name == "" {
		name = a.Name
	}
	if name == a.DisplayName {
		return nil
	}

	rec := a.Record()
	rec.DisplayName = name
	if err := r.artifacts.PutArtifact(ctx, rec, nil); err != nil {
		return fmt.Errorf("rename %s: %w", id, err)
	}
	a.DisplayName = name
	return nil
}

// AddTag adds tag to the artifact. Adding a tag it already has is a no-op.
func (r *Registry) AddTag(ctx context.Context, id, tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ErrEmptyTag
	}
	idx := r.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("tag %s: %w", id, ErrArtifactNotFound)
	}

	a := r.items[idx]
	pos, found := slices.BinarySearch(a.Tags, tag)
	if found {
		return nil
	}
	return r.updateTags(ctx, a, slices.Insert(slices.Clone(a.Tags), pos, tag))
}

// RemoveTag removes tag from the artifact. Removing an absent tag is a no-op.
func (r *Registry) RemoveTag(ctx context.Context, id, tag string) error {
	idx := r.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("untag %s: %w", id, ErrArtifactNotFound)
	}

	a := r.items[idx]
	pos, found := slices.BinarySearch(a.Tags, tag)
	if !found {
		return nil
	}
	return r.updateTags(ctx, a, slices.Delete(slices.Clone(a.Tags), pos, pos+1))
}

func (r *Registry) updateTags(ctx context.Context, a *Artifact, tags []string) error {
	rec := a.Record()
	rec.Tags = tags
	if err := r.artifacts.PutArtifact(ctx, rec, nil); err != nil {
		return fmt.Errorf("update tags %s: %w", a.ID, err)
	}
	a.Tags = tags
	return nil
}

// SetActive selects the artifact at index.
func (r *Registry) SetActive(index int) error {
	if index < 0 || index >= len(r.items) {
		return fmt.Errorf("select %d: %w", index, ErrIndexOutOfRange)
	}
	r.active = index
	return nil
}

// ToggleSelectedTag adds tag to the filter, or removes it if present.
func (r *Registry) ToggleSelectedTag(tag string) {
	if _, ok := r.selectedTags[tag]; ok {
		delete(r.selectedTags, tag)
		return
	}
	r.selectedTags[tag] = struct{}{}
}

// SelectedTags returns the tag filter, sorted.
func (r *Registry) SelectedTags() []string {
	tags := make([]string, 0, len(r.selectedTags))
	for t := range r.selectedTags {
		tags = append(tags, t)
	}
	slices.Sort(tags)
	return tags
}

// Visible reports whether a passes the tag filter: the filter is empty or
// every selected tag is on the artifact.
func (r *Registry) Visible(a *Artifact) bool {
	for t := range r.selectedTags {
		if !a.HasTag(t) {
			return false
		}
	}
	return true
}

// Entry is one row of the registry as presented.
type Entry struct {
	Index    int      `json:"index"`
	Artifact Artifact `json:"artifact"`
	Active   bool     `json:"active"`
	Visible  bool     `json:"visible"`
}

// Entries returns every artifact with its presentation flags. Hidden
// artifacts are included; the active one may be hidden.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, len(r.items))
	for i, a := range r.items {
		entries[i] = Entry{
			Index:    i,
			Artifact: a.clone(),
			Active:   i == r.active,
			Visible:  r.Visible(a),
		}
	}
	return entries
}

// Tags returns every tag in use, sorted.
func (r *Registry) Tags() []string {
	var all []string
	for _, a := range r.items {
		all = append(all, a.Tags...)
	}
	slices.Sort(all)
	return slices.Compact(all)
}

// TagSuggestions returns tags used by other artifacts that the artifact with
// id does not have yet, sorted.
func (r *Registry) TagSuggestions(id string) ([]string, error) {
	idx := r.indexOf(id)
	if idx < 0 {
		return nil, fmt.Errorf("suggest %s: %w", id, ErrArtifactNotFound)
	}
	own := r.items[idx]

	var out []string
	for _, t := range r.Tags() {
		if !own.HasTag(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *Registry) saveOrder(ctx context.Context) error {
	if err := r.order.SaveOrder(ctx, r.IDs()); err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

func idsOf(items []*Artifact) []string {
	ids := make([]string, len(items))
	for i, a := range items {
		ids[i] = a.ID
	}
	return ids
}

// normalizeTags returns tags trimmed, deduplicated and sorted.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
