package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/skelly-dev/picgraph/internal/ignore"
	"github.com/skelly-dev/picgraph/internal/languages"
	"github.com/skelly-dev/picgraph/internal/parser"
	"github.com/skelly-dev/picgraph/internal/walk"
	"golang.org/x/sync/errgroup"
)

// DefaultBasePrefix is the module prefix searched when a partial's wrapped
// function cannot be found under its resolved name.
const DefaultBasePrefix = "gdsfactory"

// ErrNoLibraries is returned when none of the given library roots is usable.
var ErrNoLibraries = errors.New("no valid library paths given")

// Library is one library root: every module under Path is named Prefix.<rel>.
// The order libraries are given in is their YAML resolution priority.
type Library struct {
	Prefix string
	Path   string
}

// Builder runs the four build stages over a fixed, ordered set of libraries.
type Builder struct {
	libraries  []Library
	logger     *slog.Logger
	workers    int
	basePrefix string
	excludes   []string
	registry   *parser.Registry
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for build progress and skipped inputs.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithWorkers bounds the number of files extracted concurrently.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// WithBasePrefix overrides DefaultBasePrefix.
func WithBasePrefix(prefix string) Option {
	return func(b *Builder) {
		if prefix != "" {
			b.basePrefix = prefix
		}
	}
}

// WithExcludes adds gitignore-style exclude patterns applied under every root.
func WithExcludes(patterns ...string) Option {
	return func(b *Builder) {
		b.excludes = append(b.excludes, patterns...)
	}
}

// NewBuilder creates a builder for libraries, kept in the given order.
func NewBuilder(libraries []Library, opts ...Option) *Builder {
	b := &Builder{
		libraries:  append([]Library(nil), libraries...),
		logger:     slog.Default(),
		workers:    runtime.NumCPU(),
		basePrefix: DefaultBasePrefix,
		registry:   languages.NewDefaultRegistry(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build extracts declarations from every file of every library, then
// resolves, flattens partials and assembles the graph. Resolution only starts
// once extraction has finished for all files.
func (b *Builder) Build(ctx context.Context) (*parser.CallGraph, error) {
	libs := b.validLibraries()
	if len(libs) == 0 {
		return nil, ErrNoLibraries
	}

	table := parser.NewModuleTable()
	functions, err := b.extract(ctx, libs, table)
	if err != nil {
		return nil, err
	}

	modules := table.Snapshot()
	prefixes := make([]string, 0, len(libs))
	for _, lib := range libs {
		prefixes = append(prefixes, lib.Prefix)
	}

	newResolver(modules, functions, prefixes).resolveAll()
	flattenPartials(functions, modules, b.basePrefix)

	cg := assemble(functions, modules)
	b.logger.Info("call graph built",
		slog.Int("libraries", len(libs)),
		slog.Int("modules", len(cg.Modules)),
		slog.Int("functions", len(cg.Functions)))
	return cg, nil
}

// validLibraries drops roots that do not exist or are not directories and
// makes the remaining paths absolute.
func (b *Builder) validLibraries() []Library {
	libs := make([]Library, 0, len(b.libraries))
	for _, lib := range b.libraries {
		info, err := os.Stat(lib.Path)
		if err != nil {
			b.logger.Warn("library path does not exist", slog.String("path", lib.Path), slog.String("prefix", lib.Prefix))
			continue
		}
		if !info.IsDir() {
			b.logger.Warn("library path is not a directory", slog.String("path", lib.Path), slog.String("prefix", lib.Prefix))
			continue
		}
		abs, err := filepath.Abs(lib.Path)
		if err != nil {
			b.logger.Warn("failed to resolve library path", slog.String("path", lib.Path), slog.Any("error", err))
			continue
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		libs = append(libs, Library{Prefix: lib.Prefix, Path: abs})
	}
	return libs
}

type extractJob struct {
	path string
	lib  Library
}

// extract analyzes all files concurrently. Results are collected by job index
// so the returned functions keep file-walk order regardless of scheduling.
func (b *Builder) extract(ctx context.Context, libs []Library, table *parser.ModuleTable) ([]*parser.Function, error) {
	matcher := ignore.NewMatcher(b.excludes)

	var jobs []extractJob
	for _, lib := range libs {
		files, err := walk.Files(lib.Path, matcher, b.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to find analyzable files in %s: %w", lib.Path, err)
		}
		if len(files) == 0 {
			b.logger.Debug("no Python or YAML files found", slog.String("path", lib.Path))
			continue
		}
		for _, file := range files {
			jobs = append(jobs, extractJob{path: file, lib: lib})
		}
	}

	results := make([][]parser.Function, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = b.registry.AnalyzeFile(job.path, job.lib.Path, job.lib.Prefix, table, b.logger)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	functions := make([]*parser.Function, 0, len(jobs))
	for _, fileFunctions := range results {
		for i := range fileFunctions {
			functions = append(functions, &fileFunctions[i])
		}
	}
	b.logger.Debug("extraction complete", slog.Int("files", len(jobs)), slog.Int("functions", len(functions)))
	return functions, nil
}

// assemble keys every function by module.name. A later function with the same
// key replaces an earlier one.
func assemble(functions []*parser.Function, modules map[string]*parser.Module) *parser.CallGraph {
	cg := &parser.CallGraph{
		Functions: make(map[string]*parser.Function, len(functions)),
		Modules:   modules,
	}
	for _, fn := range functions {
		cg.Functions[fn.Key()] = fn
	}
	return cg
}
