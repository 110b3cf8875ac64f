package parser

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileContext is the per-file analysis state threaded through extraction.
// A fresh context is created for every file.
type FileContext struct {
	Path      string // absolute file path
	Root      string // library root the file was found under
	Prefix    string // logical dotted prefix of the library
	Module    string // derived module name
	IsPackage bool   // file is a package __init__.py

	Table  *ModuleTable
	Logger *slog.Logger
}

// NewFileContext prepares the context for one file of the given kind.
func NewFileContext(kind FileKind, path, root, prefix string, table *ModuleTable, logger *slog.Logger) *FileContext {
	module := DeriveModule(path, root, prefix)
	if kind == KindPic {
		module = DerivePicModule(path, root, prefix)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileContext{
		Path:      path,
		Root:      root,
		Prefix:    prefix,
		Module:    module,
		IsPackage: kind == KindPython && IsPackageInit(path),
		Table:     table,
		Logger:    logger,
	}
}

func (fc *FileContext) AddFunction(name string) { fc.Table.AddFunction(fc.Module, fc.Path, name) }
func (fc *FileContext) AddImport(target string) { fc.Table.AddImport(fc.Module, fc.Path, target) }
func (fc *FileContext) AddError(message string) { fc.Table.AddError(fc.Module, fc.Path, message) }
func (fc *FileContext) AddAlias(alias, target string) {
	fc.Table.AddAlias(fc.Module, fc.Path, alias, target)
}
func (fc *FileContext) AddConstant(name, value string) {
	fc.Table.AddConstant(fc.Module, fc.Path, name, value)
}
func (fc *FileContext) AddPartial(name string, binding PartialBinding) {
	fc.Table.AddPartial(fc.Module, fc.Path, name, binding)
}

// Constant returns a constant recorded for the current module so far.
func (fc *FileContext) Constant(name string) (string, bool) {
	return fc.Table.Constant(fc.Module, name)
}

// Analyzer extends the shared module table from one file and returns the
// function records the file defines.
type Analyzer interface {
	// Kind returns the file kind this analyzer handles.
	Kind() FileKind

	// Match reports whether the analyzer handles filename.
	Match(filename string) bool

	// Analyze extracts declarations from content. Recoverable problems are
	// recorded on the module through fc; a returned error means the file
	// contributed nothing.
	Analyze(fc *FileContext, content []byte) ([]Function, error)
}

// Registry holds the registered analyzers in registration order.
type Registry struct {
	analyzers []Analyzer
}

// NewRegistry creates a new analyzer registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an analyzer to the registry
func (r *Registry) Register(a Analyzer) {
	r.analyzers = append(r.analyzers, a)
}

// AnalyzerFor returns the first analyzer that handles filename. Matching is
// case-sensitive, the same as file discovery.
func (r *Registry) AnalyzerFor(filename string) (Analyzer, bool) {
	base := filepath.Base(filename)
	for _, a := range r.analyzers {
		if a.Match(base) {
			return a, true
		}
	}
	return nil, false
}

// AnalyzeFile reads and analyzes a single file. Failures are recorded as
// errors on the file's module; the functions extracted before the failure
// are still returned.
func (r *Registry) AnalyzeFile(path, root, prefix string, table *ModuleTable, logger *slog.Logger) []Function {
	analyzer, ok := r.AnalyzerFor(path)
	if !ok {
		return nil // unsupported file type, skip silently
	}

	fc := NewFileContext(analyzer.Kind(), path, root, prefix, table, logger)
	table.Touch(fc.Module, path)

	content, err := os.ReadFile(path)
	if err != nil {
		fc.AddError(fmt.Sprintf("failed to read file %s: %v", path, err))
		fc.Logger.Debug("failed to read file", slog.String("file", path), slog.Any("error", err))
		return nil
	}

	functions, err := analyzer.Analyze(fc, content)
	if err != nil {
		fc.AddError(err.Error())
		fc.Logger.Debug("failed to analyze file", slog.String("file", path), slog.Any("error", err))
	}
	return functions
}
