package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

var discard = slog.New(slog.NewJSONHandler(io.Discard, nil))

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatch(t *testing.T, root string, debounce time.Duration) *atomic.Int32 {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	var n atomic.Int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, root, debounce, discard, func() { n.Add(1) })
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
	return &n
}

func TestWatch_BurstTriggersOnce(t *testing.T) {
	root := t.TempDir()
	n := startWatch(t, root, 200*time.Millisecond)

	for i := 0; i < 5; i++ {
		_ = os.WriteFile(filepath.Join(root, "note.md"), []byte{byte('a' + i)}, 0o644)
		time.Sleep(10 * time.Millisecond)
	}

	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool { return n.Load() >= 1 }, "trigger not called")
	time.Sleep(400 * time.Millisecond)
	if got := n.Load(); got != 1 {
		t.Errorf("triggers = %d, want 1", got)
	}
}

func TestWatch_NewDirectoryWatched(t *testing.T) {
	root := t.TempDir()
	n := startWatch(t, root, 50*time.Millisecond)

	sub := filepath.Join(root, "attachments")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool { return n.Load() >= 1 }, "mkdir not noticed")
	before := n.Load()

	time.Sleep(100 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "pic.png"), []byte("png"), 0o644)
	eventually(t, 5*time.Second, 20*time.Millisecond, func() bool { return n.Load() > before }, "file in new dir not noticed")
}

func TestWatch_HiddenEntriesIgnored(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".obsidian"), 0o755); err != nil {
		t.Fatal(err)
	}
	n := startWatch(t, root, 50*time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, ".obsidian", "workspace.json"), []byte("{}"), 0o644)
	_ = os.WriteFile(filepath.Join(root, ".hidden.md"), []byte("x"), 0o644)
	time.Sleep(300 * time.Millisecond)
	if got := n.Load(); got != 0 {
		t.Errorf("triggers = %d, want 0", got)
	}
}

func TestIgnored(t *testing.T) {
	root := "/vault"
	cases := map[string]bool{
		"/vault/note.md":            false,
		"/vault/a/b/pic.png":        false,
		"/vault/.git/index":         true,
		"/vault/.obsidian/app.json": true,
		"/vault/a/.trash/x.md":      true,
	}
	for path, want := range cases {
		if got := ignored(root, path); got != want {
			t.Errorf("ignored(%q) = %v, want %v", path, got, want)
		}
	}
}
