package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/skelly-dev/picgraph/internal/config"
	"github.com/skelly-dev/picgraph/internal/fileutil"
	"github.com/skelly-dev/picgraph/internal/graph"
	"github.com/skelly-dev/picgraph/internal/ignore"
	"github.com/skelly-dev/picgraph/internal/parser"
	"github.com/skelly-dev/picgraph/internal/walk"
	"github.com/spf13/cobra"
)

// Exit codes returned by ExitCode.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitBadInput = 2
)

const maxSuggestions = 5

// ExitCode maps a command error to a process exit code. Unusable library
// arguments are reported as bad input.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, graph.ErrNoLibraries), errors.Is(err, config.ErrInvalidLibrary):
		return ExitBadInput
	default:
		return ExitFailure
	}
}

func RunGraph(cmd *cobra.Command, args []string) error {
	gf, err := parseGraphFlags(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(gf.verbose)

	wd, err := resolveWorkingDirectory()
	if err != nil {
		return err
	}
	cfg, err := config.LoadOptional(gf.configPath, wd)
	if err != nil {
		return err
	}
	if err := cfg.AddLibraries(args); err != nil {
		return err
	}
	if len(cfg.Libraries) == 0 {
		return fmt.Errorf("%w: pass prefix=path or add [[library]] to %s", graph.ErrNoLibraries, configFileName)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ignoreRules, err := LoadIgnoreRules(wd)
	if err != nil {
		return err
	}
	excludes := fileutil.DedupeStrings(append(append(cfg.Exclude, ignoreRules...), gf.excludes...))

	workers := cfg.Workers
	if gf.workersSet || workers == 0 {
		workers = gf.workers
	}
	basePrefix := cfg.BasePrefix
	if gf.baseSet || basePrefix == "" {
		basePrefix = gf.basePrefix
	}

	libs := make([]graph.Library, 0, len(cfg.Libraries))
	for _, lib := range cfg.Libraries {
		libs = append(libs, graph.Library{Prefix: lib.Prefix, Path: lib.Path})
	}
	builder := graph.NewBuilder(libs,
		graph.WithLogger(logger),
		graph.WithWorkers(workers),
		graph.WithBasePrefix(basePrefix),
		graph.WithExcludes(excludes...),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	render := func(ctx context.Context) error {
		cg, err := builder.Build(ctx)
		if err != nil {
			return fmt.Errorf("failed to build call graph: %w", err)
		}
		value, err := selectValue(cg, gf, logger)
		if err != nil {
			return err
		}
		return writeJSON(cmd, gf.output, value, logger)
	}
	if err := render(ctx); err != nil {
		return err
	}
	if !gf.watch {
		return nil
	}

	roots := make([]string, 0, len(libs))
	for _, lib := range libs {
		abs, err := filepath.Abs(lib.Path)
		if err != nil {
			return fmt.Errorf("failed to resolve path %q: %w", lib.Path, err)
		}
		roots = append(roots, abs)
	}
	logger.Info("watching for changes", slog.Int("libraries", len(roots)))
	return walk.NewWatcher(roots, ignore.NewMatcher(excludes), gf.debounce, logger).Run(ctx, render)
}

// selectValue applies the query flags to a built graph.
func selectValue(cg *parser.CallGraph, gf graphFlags, logger *slog.Logger) (any, error) {
	var value any
	switch {
	case gf.callers != "":
		value = graph.Callers(cg, gf.callers)
	case gf.pathFrom != "":
		value = graph.ShortestPath(cg, gf.pathFrom, gf.pathTo)
	default:
		filtered := cg
		if gf.function != "" {
			filtered = graph.FilterFunction(cg, gf.function)
			if len(filtered.Functions) == 0 {
				logger.Warn("no function matched",
					slog.String("function", gf.function),
					slog.Any("similar", graph.Suggest(cg, gf.function, maxSuggestions)))
			}
		}
		value = filtered
		if gf.simplify {
			value = graph.Simplify(filtered)
		}
	}

	if gf.selectPath == "" {
		return value, nil
	}
	generic, err := graph.ToValue(value)
	if err != nil {
		return nil, err
	}
	selected, ok := graph.SelectPath(generic, gf.selectPath)
	if !ok {
		logger.Debug("select path matched nothing", slog.String("path", gf.selectPath))
	}
	return selected, nil
}

func writeJSON(cmd *cobra.Command, outputPath string, value any, logger *slog.Logger) error {
	if outputPath == "" {
		return fileutil.PrintJSON(cmd.OutOrStdout(), value)
	}
	data, err := fileutil.EncodeJSON(value)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	wrote, err := fileutil.WriteIfChanged(outputPath, data)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	if !wrote {
		logger.Debug("output unchanged", slog.String("file", outputPath))
	}
	return nil
}
