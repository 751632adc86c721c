package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/addr2line-web/addr2line/internal/core"
)

type cli struct {
	t     *testing.T
	store string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &cli{t: t, store: filepath.Join(t.TempDir(), "artifacts.db")}
}

// run executes one command against the test store.
func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetArgs(append([]string{"--store", c.store}, args...))
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.Execute()
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run("", args...)
	if err != nil {
		c.t.Fatalf("%v: %v", args, err)
	}
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// listedNames returns the NAME column of "artifacts list".
func listedNames(out string) []string {
	var names []string
	lines := strings.Split(strings.TrimSpace(out), "\n")
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) >= 3 {
			names = append(names, fields[2])
		}
	}
	return names
}

func TestArtifactsLifecycle(t *testing.T) {
	c := newCLI(t)
	dir := t.TempDir()
	a := writeFile(t, dir, "a.elf", "ELF a")
	b := writeFile(t, dir, "b.elf", "ELF b")

	ids := strings.Fields(c.mustRun("artifacts", "add", a, b))
	if len(ids) != 2 {
		t.Fatalf("add printed %v, want two ids", ids)
	}

	out := c.mustRun("artifacts", "list")
	if got := listedNames(out); strings.Join(got, ",") != "a.elf,b.elf" {
		t.Fatalf("names = %v\n%s", got, out)
	}
	if !strings.Contains(out, a) {
		t.Errorf("list should show the source path %s:\n%s", a, out)
	}

	c.mustRun("artifacts", "rename", "a.elf", "first")
	c.mustRun("artifacts", "tag", "first", "arm64")
	c.mustRun("artifacts", "mv", "0", "1")

	out = c.mustRun("artifacts", "list")
	if got := listedNames(out); strings.Join(got, ",") != "b.elf,first" {
		t.Fatalf("names after mv = %v\n%s", got, out)
	}
	if !strings.Contains(out, "arm64") {
		t.Errorf("tag missing from list:\n%s", out)
	}

	c.mustRun("artifacts", "untag", ids[0], "arm64")
	c.mustRun("artifacts", "rename", ids[0])
	c.mustRun("artifacts", "rm", "b.elf")

	out = c.mustRun("artifacts", "list")
	if got := listedNames(out); strings.Join(got, ",") != "a.elf" {
		t.Errorf("names after rm = %v\n%s", got, out)
	}
	if strings.Contains(out, "arm64") {
		t.Errorf("tag should be gone:\n%s", out)
	}
}

func TestArtifacts_Errors(t *testing.T) {
	c := newCLI(t)
	root := t.TempDir()
	x1 := writeFile(t, filepath.Join(root, "one"), "x.elf", "ELF 1")
	x2 := writeFile(t, filepath.Join(root, "two"), "x.elf", "ELF 2")
	c.mustRun("artifacts", "add", x1, x2)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "ambiguous name", args: []string{"artifacts", "rm", "x.elf"}, wantErr: "more than one"},
		{name: "unknown artifact", args: []string{"artifacts", "tag", "nope", "t"}, wantErr: core.ErrArtifactNotFound.Error()},
		{name: "bad position", args: []string{"artifacts", "mv", "0", "9"}, wantErr: core.ErrIndexOutOfRange.Error()},
		{name: "non-numeric position", args: []string{"artifacts", "mv", "a", "1"}, wantErr: "FROM"},
		{name: "missing file", args: []string{"artifacts", "add", filepath.Join(root, "missing")}, wantErr: "no such file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.run("", tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestCleanupCmd(t *testing.T) {
	c := newCLI(t)

	out, err := c.run("/home/u/src/a.c:1\n", "cleanup", "--pattern", "/home/[^/]+/(src/)")
	if err != nil {
		t.Fatal(err)
	}
	if out != "src/a.c:1\n" {
		t.Errorf("out = %q", out)
	}

	if _, err := c.run("x", "cleanup"); err != errNoPattern {
		t.Errorf("missing pattern err = %v", err)
	}

	_, err = c.run("ab", "cleanup", "--pattern", "^(?=.(.))(.).$")
	if err == nil || !strings.Contains(err.Error(), "CLN002") {
		t.Errorf("non-terminating err = %v", err)
	}
}

func TestConvertCmd(t *testing.T) {
	c := newCLI(t)
	notBinary := writeFile(t, t.TempDir(), "notes.txt", "hello")

	tests := []struct {
		name      string
		stdin     string
		args      []string
		wantOut   string
		wantIn    string
		wantErrIn string
	}{
		{
			name:    "blank input passes through",
			stdin:   "",
			args:    []string{"convert"},
			wantOut: "",
		},
		{
			name:      "no stored artifact",
			stdin:     "pc 0x10",
			args:      []string{"convert"},
			wantOut:   core.NoActivePlaceholder,
			wantErrIn: "CONV001",
		},
		{
			name:      "unreadable binary",
			stdin:     "pc 0x10",
			args:      []string{"convert", "--binary", notBinary},
			wantIn:    "Error during conversion:",
			wantErrIn: "CONV002",
		},
		{
			name:      "binary and artifact are exclusive",
			args:      []string{"convert", "--binary", notBinary, "--artifact", "x"},
			wantErrIn: "none of the others can be",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := c.run(tt.stdin, tt.args...)
			if tt.wantErrIn == "" && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErrIn != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErrIn)) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErrIn)
			}
			if tt.wantIn != "" {
				if !strings.Contains(out, tt.wantIn) {
					t.Errorf("out = %q, want containing %q", out, tt.wantIn)
				}
				return
			}
			if tt.wantErrIn == "" || tt.wantOut != "" {
				if out != tt.wantOut {
					t.Errorf("out = %q, want %q", out, tt.wantOut)
				}
			}
		})
	}
}
