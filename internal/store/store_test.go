package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/addr2line-web/addr2line/internal/config"
	"github.com/addr2line-web/addr2line/internal/core"
)

// backends returns every store under test. Postgres runs only when
// STORE_TEST_DATABASE_URL points at a scratch database.
func backends(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	out := map[string]func(t *testing.T) Store{
		"memory": func(*testing.T) Store { return NewMemory() },
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "artifacts.db"), true)
			if err != nil {
				t.Fatalf("OpenSQLite failed: %v", err)
			}
			return s
		},
	}
	if url := os.Getenv("STORE_TEST_DATABASE_URL"); url != "" {
		out["postgres"] = func(t *testing.T) Store {
			ctx := context.Background()
			p, err := OpenPostgres(ctx, config.DatabaseConfig{URL: url, MaxConns: 2, MinConns: 0}, true)
			if err != nil {
				t.Fatalf("OpenPostgres failed: %v", err)
			}
			if _, err := p.pool.Exec(ctx, `TRUNCATE artifacts, app_state`); err != nil {
				t.Fatalf("truncate: %v", err)
			}
			return p
		}
	}
	return out
}

func record(id string, tags ...string) core.ArtifactRecord {
	return core.ArtifactRecord{
		ID:          id,
		Name:        id + ".elf",
		DisplayName: id + ".elf",
		SourcePath:  "build/" + id + ".elf",
		Tags:        tags,
		Size:        int64(len(id)),
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStore_ArtifactLifecycle(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			for _, id := range []string{"b", "a", "c"} {
				if err := s.PutArtifact(ctx, record(id), []byte("ELF-"+id)); err != nil {
					t.Fatalf("PutArtifact(%s) failed: %v", id, err)
				}
			}

			// Metadata-only update keeps the blob and the discovery position.
			renamed := record("b", "release")
			renamed.DisplayName = "renamed"
			if err := s.PutArtifact(ctx, renamed, nil); err != nil {
				t.Fatalf("PutArtifact(metadata) failed: %v", err)
			}

			recs, err := s.ListArtifacts(ctx)
			if err != nil {
				t.Fatalf("ListArtifacts failed: %v", err)
			}
			var ids []string
			for _, r := range recs {
				ids = append(ids, r.ID)
			}
			if diff := cmp.Diff([]string{"b", "a", "c"}, ids); diff != "" {
				t.Errorf("discovery order mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(renamed, recs[0]); diff != "" {
				t.Errorf("record mismatch (-want +got):\n%s", diff)
			}

			data, err := s.ArtifactContent(ctx, "b")
			if err != nil || string(data) != "ELF-b" {
				t.Errorf("ArtifactContent(b) = %q, %v, want %q", data, err, "ELF-b")
			}

			if err := s.DeleteArtifact(ctx, "b"); err != nil {
				t.Fatalf("DeleteArtifact failed: %v", err)
			}
			if err := s.DeleteArtifact(ctx, "missing"); err != nil {
				t.Errorf("DeleteArtifact(missing) = %v, want nil", err)
			}
			if _, err := s.ArtifactContent(ctx, "b"); !errors.Is(err, core.ErrArtifactNotFound) {
				t.Errorf("ArtifactContent after delete = %v, want ErrArtifactNotFound", err)
			}
		})
	}
}

func TestStore_Order(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			ids, err := s.LoadOrder(ctx)
			if err != nil {
				t.Fatalf("LoadOrder failed: %v", err)
			}
			if ids != nil {
				t.Errorf("LoadOrder on empty store = %v, want nil", ids)
			}

			for _, order := range [][]string{{"a", "b"}, {"c", "a"}, {}} {
				if err := s.SaveOrder(ctx, order); err != nil {
					t.Fatalf("SaveOrder failed: %v", err)
				}
				got, err := s.LoadOrder(ctx)
				if err != nil {
					t.Fatalf("LoadOrder failed: %v", err)
				}
				if len(got) != len(order) || (len(order) > 0 && !cmp.Equal(order, got)) {
					t.Errorf("LoadOrder = %v, want %v", got, order)
				}
			}
		})
	}
}

func TestSQLite_RegistrySurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "artifacts.db")

	s, err := OpenSQLite(ctx, path, true)
	if err != nil {
		t.Fatal(err)
	}
	reg, err := core.LoadRegistry(ctx, s, s)
	if err != nil {
		t.Fatal(err)
	}
	ids, err := reg.AddMany(ctx, []core.Upload{
		{Name: "a.elf", Content: core.BytesSource("aaaa")},
		{Name: "b.elf", Content: core.BytesSource("bbbb")},
		{Name: "c.elf", Content: core.BytesSource("cccc")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.Reorder(ctx, 2, 0); err != nil {
		t.Fatal(err)
	}
	if err := reg.AddTag(ctx, ids[1], "arm64"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = OpenSQLite(ctx, path, true)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	reloaded, err := core.LoadRegistry(ctx, s, s)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{ids[2], ids[0], ids[1]}
	if diff := cmp.Diff(want, reloaded.IDs()); diff != "" {
		t.Errorf("reloaded order mismatch (-want +got):\n%s", diff)
	}
	b, _ := reloaded.Get(ids[1])
	if !b.HasTag("arm64") {
		t.Errorf("tags = %v, want arm64", b.Tags)
	}
	data, err := b.Content(ctx)
	if err != nil || string(data) != "bbbb" {
		t.Errorf("Content = %q, %v", data, err)
	}
}

func TestBlobCodec(t *testing.T) {
	payload := bytes.Repeat([]byte("\x7fELF debug_line "), 512)

	tests := []struct {
		name     string
		compress bool
	}{
		{name: "raw", compress: false},
		{name: "zstd", compress: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := encodeBlob(payload, tt.compress)
			if tt.compress && len(blob) >= len(payload) {
				t.Errorf("compressed size %d not smaller than %d", len(blob), len(payload))
			}

			got, err := decodeBlob(blob)
			if err != nil {
				t.Fatalf("decodeBlob failed: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Error("decoded blob differs from input")
			}
		})
	}

	if _, err := decodeBlob([]byte{9, 1, 2}); err == nil {
		t.Error("expected error for unknown codec")
	}
	if _, err := decodeBlob(nil); err == nil {
		t.Error("expected error for empty blob")
	}
}

func TestOpen_Drivers(t *testing.T) {
	tests := []struct {
		driver  string
		wantErr bool
	}{
		{driver: "memory"},
		{driver: "sqlite"},
		{driver: "mysql", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := &config.Config{Store: config.StoreConfig{
				Driver:     tt.driver,
				SQLitePath: filepath.Join(t.TempDir(), "a.db"),
			}}
			s, err := Open(context.Background(), cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open(%s) error = %v, wantErr %v", tt.driver, err, tt.wantErr)
			}
			if s != nil {
				s.Close()
			}
		})
	}
}
