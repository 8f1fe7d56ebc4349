// Package ingest discovers WhatsApp chat export files, either by watching
// drop directories or by scanning them once.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pocketmoney/chatledger/internal/common"
)

// defaultExts are the extensions treated as chat exports (lowercase,
// without the dot).
var defaultExts = map[string]struct{}{
	"txt": {},
}

// WatchConfig controls StartWatcher.
type WatchConfig struct {
	AllowedExts map[string]struct{}
	Roots       []string
	Debounce    time.Duration
	InitialScan bool
}

// StartWatcher watches the configured roots recursively and emits the path
// of every chat export that appears or changes. Bursts within the debounce
// window are coalesced per path. Both channels close when ctx is canceled.
func StartWatcher(ctx context.Context, cfg WatchConfig) (<-chan string, <-chan error, error) {
	if len(cfg.Roots) == 0 {
		return nil, nil, fmt.Errorf("no watch roots configured: %w", common.ErrInvalidConfig)
	}
	if cfg.AllowedExts == nil {
		cfg.AllowedExts = defaultExts
	}

	pathCh := make(chan string, 256)
	errCh := make(chan error, 1)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	addRoot := func(root string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return watcher.Add(path)
			}
			if cfg.InitialScan && allowed(path, cfg.AllowedExts) {
				select {
				case pathCh <- path:
				default:
					slog.Warn("dropping initial scan result, channel full", "path", path)
				}
			}
			return nil
		})
	}
	for _, root := range cfg.Roots {
		if err := addRoot(root); err != nil {
			_ = watcher.Close()
			return nil, nil, fmt.Errorf("failed to watch %s: %w", root, err)
		}
	}

	go func() {
		defer close(pathCh)
		defer close(errCh)
		defer func() { _ = watcher.Close() }()

		// pending and the debounce timer live entirely in this goroutine;
		// the timer only signals through timerC, so no lock is needed.
		var timer *time.Timer
		var timerC <-chan time.Time
		pending := map[string]struct{}{}

		sendPending := func() {
			for p := range pending {
				select {
				case pathCh <- p:
				default:
					slog.Warn("dropping change event, channel full", "path", p)
				}
				delete(pending, p)
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-timerC:
				timerC = nil
				sendPending()
			case event := <-watcher.Events:
				// Directories created under a watched root get watched too.
				if event.Op&fsnotify.Create != 0 {
					watchIfDir(watcher, event.Name)
				}

				if allowed(event.Name, cfg.AllowedExts) && event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
					pending[event.Name] = struct{}{}
					if cfg.Debounce > 0 {
						if timer != nil {
							timer.Stop()
						}
						timer = time.NewTimer(cfg.Debounce)
						timerC = timer.C
					} else {
						sendPending()
					}
				}
			case err := <-watcher.Errors:
				slog.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	slog.Info("watching for chat exports",
		"roots", cfg.Roots,
		"debounce", cfg.Debounce)

	return pathCh, errCh, nil
}

// ScanDirectory walks root once and returns every chat export under it,
// skipping dotfiles and dot-directories.
func ScanDirectory(root string, allowedExts map[string]struct{}) ([]string, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("scan root is required: %w", common.ErrInvalidInput)
	}
	if allowedExts == nil {
		allowedExts = defaultExts
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if isHidden(path) && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if allowed(path, allowedExts) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return paths, nil
}

func allowed(path string, exts map[string]struct{}) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	_, ok := exts[ext]
	return ok
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func watchIfDir(w *fsnotify.Watcher, path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.Add(path); err != nil {
		slog.Warn("failed to watch new directory", "path", path, "error", err)
	}
}
