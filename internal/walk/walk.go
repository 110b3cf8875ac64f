// Package walk discovers the analyzable files of a library root.
package walk

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/skelly-dev/picgraph/internal/ignore"
)

// keptHiddenDir is the only dot-prefixed directory that is walked.
const keptHiddenDir = ".venv"

// Analyzable reports whether name is a Python source or a .pic.yml netlist.
func Analyzable(name string) bool {
	return strings.HasSuffix(name, ".py") || strings.HasSuffix(name, ".pic.yml")
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != keptHiddenDir
}

// Files returns the analyzable files under root in lexical walk order.
// Dot-prefixed path components other than .venv are skipped, as is anything
// the matcher excludes. Unreadable directories are logged and skipped.
func Files(root string, matcher *ignore.Matcher, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if matcher == nil {
		matcher = ignore.NewMatcher(nil)
	}

	files := make([]string, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logger.Debug("walk error", slog.String("path", path), slog.Any("error", err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		name := d.Name()
		if hidden(name) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if matcher.ShouldIgnore(relPath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() && Analyzable(name) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return files, nil
}
