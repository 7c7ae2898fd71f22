package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 150 * time.Millisecond

var watchedExts = map[string]bool{
	".toml": true, ".yaml": true, ".yml": true,
	".hlsl": true, ".ush": true, ".usf": true,
}

// watch compiles once, then again after every burst of changes in the
// directories holding the manifests, until ctx is cancelled.
func (c *compiler) watch(ctx context.Context, paths []string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dirs := make(map[string]bool)
	for _, p := range paths {
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	c.runAll(paths)
	fmt.Fprintf(os.Stderr, "Watching %d directories, press Ctrl-C to stop.\n", len(dirs))

	var timer <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !watchedExts[strings.ToLower(filepath.Ext(ev.Name))] {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				c.progress("Changed: %s", ev.Name)
				timer = time.After(watchDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "pcgk: watch: %v\n", err)
		case <-timer:
			timer = nil
			fmt.Fprintf(os.Stderr, "--- %s ---\n", time.Now().Format(time.TimeOnly))
			c.runAll(paths)
		}
	}
}
