package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func tempRepo(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempRepo(t)
	content := []byte("---\ntitle: \"x\"\n---\nWorld")
	if err := s.Write("content/blog/note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("content/blog/note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestDelete(t *testing.T) {
	s := tempRepo(t)
	_ = s.Write("del.md", []byte("bye"))
	if err := s.Delete("del.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("del.md"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestListMarkdown(t *testing.T) {
	s := tempRepo(t)
	_ = s.Write("content/blog/b.md", []byte("b"))
	_ = s.Write("content/blog/a.md", []byte("a"))
	_ = s.Write("content/blog/sub/c.md", []byte("c"))
	_ = s.Write("content/blog/readme.txt", []byte("not md"))

	names, err := s.ListMarkdown("content/blog")
	if err != nil {
		t.Fatalf("ListMarkdown: %v", err)
	}
	if want := []string{"a.md", "b.md"}; !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestListMarkdown_MissingDir(t *testing.T) {
	s := tempRepo(t)
	names, err := s.ListMarkdown("content/blog")
	if err != nil {
		t.Fatalf("ListMarkdown: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("names = %v, want none", names)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRepo(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteLeavesNoTemp(t *testing.T) {
	s := tempRepo(t)
	_ = s.Write("atomic.md", []byte("original content"))
	if err := s.Write("atomic.md", []byte("updated content")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != "updated content" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.Root(), ".herald-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "herald-test-*")
	_ = f.Close()
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
