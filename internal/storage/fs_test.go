package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func tempFolder(t *testing.T) (*FS, string) {
	t.Helper()
	dir := t.TempDir()
	f, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return f, dir
}

func put(t *testing.T, dir, rel, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRead(t *testing.T) {
	f, dir := tempFolder(t)
	put(t, dir, "post.md", "# Hello\n")
	got, err := f.Read("post.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "# Hello\n" {
		t.Errorf("content = %q", got)
	}
	if _, err := f.Read("missing.md"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestList(t *testing.T) {
	f, dir := tempFolder(t)
	put(t, dir, "a.md", "a")
	put(t, dir, "sub/b.MD", "b")
	put(t, dir, "readme.txt", "not md")
	put(t, dir, ".drafts/c.md", "hidden")
	put(t, dir, ".d.md", "hidden")

	items, err := f.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v, want 2", items)
	}
	paths := map[string]string{}
	for _, it := range items {
		paths[it.Path] = it.Checksum
	}
	if paths["a.md"] != Checksum([]byte("a")) {
		t.Errorf("a.md checksum = %q", paths["a.md"])
	}
	if _, ok := paths["sub/b.MD"]; !ok {
		t.Errorf("nested path missing: %v", paths)
	}
}

func TestTraversalBlocked(t *testing.T) {
	f, _ := tempFolder(t)
	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow"} {
		if _, err := f.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
	}
}

func TestRel(t *testing.T) {
	f, _ := tempFolder(t)
	rel, err := f.Rel(filepath.Join(f.Root(), "x", "y.md"))
	if err != nil || rel != "x/y.md" {
		t.Errorf("Rel = %q, %v", rel, err)
	}
	if _, err := f.Rel(filepath.Dir(f.Root())); err == nil {
		t.Error("expected error for path outside root")
	}
}

func TestChecksumStable(t *testing.T) {
	if Checksum([]byte("x")) != Checksum([]byte("x")) {
		t.Fatal("checksum not deterministic")
	}
	if Checksum([]byte("x")) == Checksum([]byte("y")) {
		t.Fatal("checksum collision on trivial input")
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "folio-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
