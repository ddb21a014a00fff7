package rules

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"telepath/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads rule tables from an override directory whenever one of the
// YAML files changes, delivering each successfully parsed set to onReload.
// Parse failures keep the previous tables and are logged, never fatal.
// Watch blocks until ctx is cancelled; run it on its own goroutine.
func Watch(ctx context.Context, dir string, onReload func(*Tables)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	readFromDir := func(name string) ([]byte, error) {
		return os.ReadFile(filepath.Join(dir, name))
	}

	// Editors fire several events per save; debounce them.
	var pending *time.Timer
	reload := func() {
		t, err := LoadDir(readFromDir)
		if err != nil {
			logging.Get(logging.CategoryRules).Warn("rule reload failed, keeping previous tables: %v", err)
			return
		}
		logging.Rules("Reloaded rule tables from %s (version %s)", dir, t.Version)
		onReload(t)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".yaml") {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(200*time.Millisecond, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Get(logging.CategoryRules).Warn("watcher error: %v", err)
		}
	}
}
