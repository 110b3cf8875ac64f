package walk

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
	"github.com/skelly-dev/picgraph/internal/ignore"
)

// DefaultDebounce is the quiet period a Watcher waits for before reacting.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reports changes to analyzable files under a set of library roots.
// It applies the same hidden-directory and exclude rules as Files.
type Watcher struct {
	roots    []string
	matcher  *ignore.Matcher
	debounce time.Duration
	logger   *slog.Logger
}

func NewWatcher(roots []string, matcher *ignore.Matcher, debounce time.Duration, logger *slog.Logger) *Watcher {
	if matcher == nil {
		matcher = ignore.NewMatcher(nil)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{roots: roots, matcher: matcher, debounce: debounce, logger: logger}
}

// Run blocks until ctx is done, calling onChange once after each burst of
// relevant events has been quiet for the debounce period. A failing onChange
// is logged and watching continues.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context) error) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	for _, root := range w.roots {
		w.addTree(fsw, root)
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(fsw, event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", slog.Any("error", err))

		case <-timer.C:
			if err := onChange(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Error("rebuild after change failed", slog.Any("error", err))
			}
		}
	}
}

// addTree watches dir and every directory below it that Files would enter.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != dir && !w.included(path, true) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", slog.String("path", path), slog.Any("error", err))
		}
		return nil
	})
}

// handle reports whether event can change the graph. New directories are
// added to the watch set.
func (w *Watcher) handle(fsw *fsnotify.Watcher, event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.included(event.Name, true) {
				return false
			}
			w.addTree(fsw, event.Name)
			return true
		}
	}
	return w.relevant(event)
}

// relevant reports whether a file event touches an analyzable file. Removals
// and renames of anything else may be a directory going away, so they count
// unless the path is hidden or excluded.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	name := filepath.Base(event.Name)
	if Analyzable(name) {
		return w.included(event.Name, false)
	}
	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 && filepath.Ext(name) == "" {
		return w.included(event.Name, true)
	}
	return false
}

// included applies the hidden and exclude rules to path relative to its root.
func (w *Watcher) included(path string, isDir bool) bool {
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if rel == "." {
			return true
		}
		for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
			if hidden(part) {
				return false
			}
		}
		return !w.matcher.ShouldIgnore(rel, isDir)
	}
	return false
}
