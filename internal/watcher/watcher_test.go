package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) record(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func startWatcher(t *testing.T, files []string, rec *recorder) *Watcher {
	t.Helper()
	w := NewWatcher(files, rec.record, WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcher_writeTriggersOnce(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "vectors.bin")
	rec := &recorder{}
	startWatcher(t, []string{target}, rec)

	for i := 0; i < 3; i++ {
		if err := writeFile(target, "chunk"); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(500 * time.Millisecond)

	got := rec.snapshot()
	if len(got) != 1 {
		t.Fatalf("expected one debounced callback, got %v", got)
	}
	if filepath.Base(got[0]) != "vectors.bin" {
		t.Errorf("callback path = %s", got[0])
	}
}

func TestWatcher_renameOntoTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "vectors.bin")
	if err := writeFile(target, "old"); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	startWatcher(t, []string{target}, rec)

	tmp := target + ".tmp"
	if err := writeFile(tmp, "new"); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, target); err != nil {
		t.Fatal(err)
	}
	time.Sleep(500 * time.Millisecond)

	if got := rec.snapshot(); len(got) != 1 {
		t.Errorf("expected one callback after rename, got %v", got)
	}
}

func TestWatcher_ignoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, []string{filepath.Join(dir, "vectors.bin")}, rec)

	if err := writeFile(filepath.Join(dir, "vectors.bin.tmp"), "x"); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(filepath.Join(dir, "notes.txt"), "x"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(400 * time.Millisecond)

	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("expected no callbacks, got %v", got)
	}
}

func TestWatcher_Stop_cancelsPending(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "vectors.bin")
	rec := &recorder{}
	w := NewWatcher([]string{target}, rec.record, WithDebounce(300*time.Millisecond))
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := writeFile(target, "x"); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	w.Stop()
	w.Stop()
	time.Sleep(400 * time.Millisecond)

	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("expected pending callback to be cancelled, got %v", got)
	}
}

func TestWatcher_Start_createsMissingDirectory(t *testing.T) {
	base := t.TempDir()
	target := filepath.Join(base, "data", "catalog", "vectors.bin")

	w := NewWatcher([]string{target}, nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if _, err := os.Stat(filepath.Dir(target)); err != nil {
		t.Errorf("parent directory should exist after Start: %v", err)
	}
}

func TestNewWatcher_sharedDirectory(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher([]string{filepath.Join(dir, "a.bin"), filepath.Join(dir, "b.db")}, nil)
	if len(w.dirs) != 1 {
		t.Errorf("expected one watched directory, got %v", w.dirs)
	}
	if len(w.Files()) != 2 {
		t.Errorf("Files() = %v", w.Files())
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}
