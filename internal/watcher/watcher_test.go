package watcher_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/specforge/internal/watcher"
)

func startWatcher(t *testing.T, path string) <-chan struct{} {
	t.Helper()
	w, err := watcher.New(watcher.Config{
		Path:        path,
		DebounceDur: 50 * time.Millisecond,
	})
	require.NoError(t, err, "failed to create watcher")
	t.Cleanup(func() { _ = w.Stop() })

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")
	return onChange
}

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte("commands: []"), 0o644))

	onChange := startWatcher(t, planPath)

	// Rapid writes should coalesce into single notification
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(planPath, []byte(fmt.Sprintf("# edit %d", i)), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-onChange:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected notification but got timeout")
	}

	select {
	case <-onChange:
		t.Fatal("unexpected second notification")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.yaml")
	otherPath := filepath.Join(dir, "other.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte("commands: []"), 0o644))
	require.NoError(t, os.WriteFile(otherPath, []byte("initial"), 0o644))

	onChange := startWatcher(t, planPath)

	require.NoError(t, os.WriteFile(otherPath, []byte("other content"), 0o644))

	select {
	case <-onChange:
		t.Fatal("should not notify for unrelated files")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_DetectsReplaceByRename(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte("commands: []"), 0o644))

	onChange := startWatcher(t, planPath)

	// Editors save by writing a sibling and renaming it over the original.
	tmp := filepath.Join(dir, ".plan.yaml.swp")
	require.NoError(t, os.WriteFile(tmp, []byte("commands: [] # saved"), 0o644))
	require.NoError(t, os.Rename(tmp, planPath))

	select {
	case <-onChange:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected notification for rename over plan file")
	}
}

func TestWatcher_Stop(t *testing.T) {
	dir := t.TempDir()
	planPath := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(planPath, []byte("commands: []"), 0o644))

	w, err := watcher.New(watcher.Config{
		Path:        planPath,
		DebounceDur: 50 * time.Millisecond,
	})
	require.NoError(t, err, "failed to create watcher")

	_, err = w.Start()
	require.NoError(t, err, "failed to start watcher")

	done := make(chan struct{})
	go func() {
		assert.NoError(t, w.Stop(), "Stop returned error")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Stop() timed out - possible deadlock")
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w, err := watcher.New(watcher.DefaultConfig(filepath.Join(t.TempDir(), "missing", "plan.yaml")))
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	_, err = w.Start()
	require.ErrorContains(t, err, "watching directory")
}

func TestDefaultConfig(t *testing.T) {
	cfg := watcher.DefaultConfig("/plans/plan.yaml")

	assert.Equal(t, "/plans/plan.yaml", cfg.Path)
	assert.Equal(t, 300*time.Millisecond, cfg.DebounceDur)
}
