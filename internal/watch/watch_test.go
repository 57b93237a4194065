package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cogni/internal/tester"
)

func start(t *testing.T, path string) (chan struct{}, context.CancelFunc, chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	runs := make(chan struct{}, 16)
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, path, func() { runs <- struct{}{} }, Options{Debounce: 20 * time.Millisecond})
	}()
	return runs, cancel, done
}

func expectRun(t *testing.T, runs chan struct{}, what string) {
	t.Helper()
	select {
	case <-runs:
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestRunFiresImmediatelyAndOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prog.cog")
	tester.NoErr(t, os.WriteFile(path, []byte("1"), 0o644))

	runs, cancel, done := start(t, path)
	defer cancel()

	expectRun(t, runs, "initial run")

	tester.NoErr(t, os.WriteFile(path, []byte("2"), 0o644))
	expectRun(t, runs, "re-run after write")

	cancel()
	tester.NoErr(t, <-done)
}

func TestSiblingChangesIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.cog")
	tester.NoErr(t, os.WriteFile(path, []byte("1"), 0o644))

	runs, cancel, done := start(t, path)
	defer cancel()
	expectRun(t, runs, "initial run")

	tester.NoErr(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	select {
	case <-runs:
		t.Fatal("sibling write should not trigger a run")
	case <-time.After(150 * time.Millisecond):
	}

	cancel()
	tester.NoErr(t, <-done)
}

func TestReplaceTriggersRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.cog")
	tester.NoErr(t, os.WriteFile(path, []byte("1"), 0o644))

	runs, cancel, done := start(t, path)
	defer cancel()
	expectRun(t, runs, "initial run")

	// Atomic-replace save: write a temp file, rename it over the target.
	tmp := filepath.Join(dir, "prog.cog.tmp")
	tester.NoErr(t, os.WriteFile(tmp, []byte("2"), 0o644))
	tester.NoErr(t, os.Rename(tmp, path))
	expectRun(t, runs, "re-run after replace")

	cancel()
	tester.NoErr(t, <-done)
}
