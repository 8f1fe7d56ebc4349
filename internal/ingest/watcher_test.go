package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketmoney/chatledger/internal/common"
)

func waitForPath(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got, ok := <-ch:
			require.True(t, ok, "channel closed while waiting for %s", want)
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestStartWatcherRequiresRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	require.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestStartWatcherInitialScan(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "chat.txt")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "photo.jpg"), []byte("x"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}, InitialScan: true})
	require.NoError(t, err)

	waitForPath(t, paths, existing)
}

func TestStartWatcherSeesNewFiles(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}})
	require.NoError(t, err)

	dropped := filepath.Join(dir, "export.txt")
	require.NoError(t, os.WriteFile(dropped, []byte("02/01/2024, 10:15 - Ali: hi"), 0o600))

	waitForPath(t, paths, dropped)
}

func TestStartWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths, _, err := StartWatcher(ctx, WatchConfig{
		Roots:    []string{dir},
		Debounce: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	dropped := filepath.Join(dir, "export.txt")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(dropped, []byte("02/01/2024, 10:15 - Ali: hi"), 0o600))
	}

	waitForPath(t, paths, dropped)
}

func TestStartWatcherHeavyBurst(t *testing.T) {
	// A write storm at a tiny debounce keeps firing the timer while new
	// events are still arriving; the path must still come through and the
	// race detector must stay quiet.
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths, _, err := StartWatcher(ctx, WatchConfig{
		Roots:    []string{dir},
		Debounce: time.Millisecond,
	})
	require.NoError(t, err)

	dropped := filepath.Join(dir, "export.txt")
	for i := 0; i < 200; i++ {
		require.NoError(t, os.WriteFile(dropped, []byte("02/01/2024, 10:15 - Ali: hi"), 0o600))
	}

	waitForPath(t, paths, dropped)
}

func TestStartWatcherClosesOnCancel(t *testing.T) {
	dir := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	paths, errs, err := StartWatcher(ctx, WatchConfig{Roots: []string{dir}})
	require.NoError(t, err)

	cancel()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-paths:
			if !ok {
				// Error channel closes with it.
				select {
				case _, ok := <-errs:
					assert.False(t, ok)
				case <-deadline:
					t.Fatal("error channel did not close")
				}
				return
			}
		case <-deadline:
			t.Fatal("path channel did not close after cancel")
		}
	}
}

func TestScanDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.TXT"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.pdf"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "c.txt"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".hidden"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden", "d.txt"), []byte("x"), 0o600))

	paths, err := ScanDirectory(dir, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.TXT"),
		filepath.Join(dir, "nested", "c.txt"),
	}, paths)
}

func TestScanDirectoryRequiresRoot(t *testing.T) {
	_, err := ScanDirectory("  ", nil)
	require.ErrorIs(t, err, common.ErrInvalidInput)
}
