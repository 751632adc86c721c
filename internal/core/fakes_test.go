package core

import (
	"context"
	"slices"
	"sync"
)

// mapResolver resolves addresses from a fixed table.
type mapResolver struct {
	locations map[uint64]string
	errs      map[uint64]error
}

func (m mapResolver) Resolve(_ context.Context, addr uint64) (string, bool, error) {
	if err, ok := m.errs[addr]; ok {
		return "", false, err
	}
	loc, ok := m.locations[addr]
	return loc, ok, nil
}

// fakeResolver opens mapResolver handles and counts lifecycle calls.
type fakeResolver struct {
	mu        sync.Mutex
	locations map[uint64]string
	openErr   error
	opens     int
	closes    int
}

func (f *fakeResolver) Open(context.Context, []byte) (ResolverHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.opens++
	return &fakeHandle{owner: f, mapResolver: mapResolver{locations: f.locations}}, nil
}

type fakeHandle struct {
	mapResolver
	owner *fakeResolver
}

func (h *fakeHandle) Close() error {
	h.owner.mu.Lock()
	defer h.owner.mu.Unlock()
	h.owner.closes++
	return nil
}

// fakeStore is an in-memory ArtifactStore and OrderStore with failure
// injection and call counters.
type fakeStore struct {
	mu         sync.Mutex
	records    []ArtifactRecord
	content    map[string][]byte
	order      []string
	orderSaves int
	puts       int
	failPut    error
	failDelete error
	failOrder  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{content: make(map[string][]byte)}
}

func (s *fakeStore) PutArtifact(_ context.Context, rec ArtifactRecord, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut != nil {
		return s.failPut
	}
	s.puts++
	rec.Tags = slices.Clone(rec.Tags)
	if i := slices.IndexFunc(s.records, func(r ArtifactRecord) bool { return r.ID == rec.ID }); i >= 0 {
		s.records[i] = rec
	} else {
		s.records = append(s.records, rec)
	}
	if content != nil {
		s.content[rec.ID] = slices.Clone(content)
	}
	return nil
}

func (s *fakeStore) DeleteArtifact(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete != nil {
		return s.failDelete
	}
	s.records = slices.DeleteFunc(s.records, func(r ArtifactRecord) bool { return r.ID == id })
	delete(s.content, id)
	return nil
}

func (s *fakeStore) ListArtifacts(context.Context) ([]ArtifactRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records), nil
}

func (s *fakeStore) ArtifactContent(_ context.Context, id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.content[id]
	if !ok {
		return nil, ErrArtifactNotFound
	}
	return data, nil
}

func (s *fakeStore) SaveOrder(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failOrder != nil {
		return s.failOrder
	}
	s.orderSaves++
	s.order = slices.Clone(ids)
	return nil
}

func (s *fakeStore) LoadOrder(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order), nil
}

func (s *fakeStore) savedOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

// uploads builds one non-empty upload per name.
func uploads(names ...string) []Upload {
	out := make([]Upload, len(names))
	for i, n := range names {
		out[i] = Upload{Name: n, Content: BytesSource("ELF:" + n)}
	}
	return out
}

// newTestRegistry returns an empty registry over a fresh fakeStore, with the
// named artifacts added.
func newTestRegistry(ctx context.Context, names []string, opts ...RegistryOption) (*Registry, *fakeStore, error) {
	store := newFakeStore()
	reg, err := LoadRegistry(ctx, store, store, opts...)
	if err != nil {
		return nil, nil, err
	}
	if len(names) > 0 {
		if _, err := reg.AddMany(ctx, uploads(names...)); err != nil {
			return nil, nil, err
		}
	}
	return reg, store, nil
}

// displayNames returns the registry's display names in order.
func displayNames(r *Registry) []string {
	var out []string
	for _, a := range r.Items() {
		out = append(out, a.DisplayName)
	}
	return out
}
