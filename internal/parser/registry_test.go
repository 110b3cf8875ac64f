package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAnalyzer struct {
	kind   FileKind
	suffix string
	err    error
}

func (m mockAnalyzer) Kind() FileKind {
	return m.kind
}

func (m mockAnalyzer) Match(filename string) bool {
	return strings.HasSuffix(filename, m.suffix)
}

func (m mockAnalyzer) Analyze(fc *FileContext, content []byte) ([]Function, error) {
	fc.AddFunction("mock")
	return []Function{{Name: "mock", Module: fc.Module, Line: 1}}, m.err
}

func TestRegistryAnalyzerForMatchesByFilename(t *testing.T) {
	r := NewRegistry()
	r.Register(mockAnalyzer{kind: KindPic, suffix: ".pic.yml"})
	r.Register(mockAnalyzer{kind: KindPython, suffix: ".py"})

	a, ok := r.AnalyzerFor("/lib/cells/mzi.pic.yml")
	require.True(t, ok)
	assert.Equal(t, KindPic, a.Kind())

	a, ok = r.AnalyzerFor("/lib/cells/mzi.py")
	require.True(t, ok)
	assert.Equal(t, KindPython, a.Kind())

	_, ok = r.AnalyzerFor("/lib/cells/notes.yml")
	assert.False(t, ok)
	_, ok = r.AnalyzerFor("/lib/cells/MZI.PIC.YML")
	assert.False(t, ok, "matching follows the case-sensitive discovery rules")
	_, ok = r.AnalyzerFor("/lib/cells/Cells.PY")
	assert.False(t, ok)
}

func TestRegistryAnalyzeFileRecordsAnalyzerErrors(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "cells", "mzi.py")
	mustWriteFile(t, path, "def mzi(): pass\n")

	r := NewRegistry()
	r.Register(mockAnalyzer{kind: KindPython, suffix: ".py", err: errors.New("boom")})

	table := NewModuleTable()
	functions := r.AnalyzeFile(path, root, "lib", table, nil)
	require.Len(t, functions, 1)
	assert.Equal(t, "lib.cells.mzi.mock", functions[0].Key())

	modules := table.Snapshot()
	require.Contains(t, modules, "lib.cells.mzi")
	assert.Equal(t, OrderedSet{"boom"}, modules["lib.cells.mzi"].Errors)
	assert.Equal(t, path, modules["lib.cells.mzi"].Path)
}

func TestRegistryAnalyzeFileSkipsUnsupported(t *testing.T) {
	r := NewRegistry()
	table := NewModuleTable()
	assert.Nil(t, r.AnalyzeFile("/nowhere/readme.md", "/nowhere", "lib", table, nil))
	assert.Empty(t, table.Snapshot())
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
