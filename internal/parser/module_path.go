package parser

import (
	"path/filepath"
	"strings"
)

const (
	pythonExt = ".py"
	picExt    = ".pic.yml"
	initStem  = "__init__"
)

// DeriveModule maps a Python file under libRoot to its dotted module name.
// Package __init__ files collapse to the package itself.
func DeriveModule(filePath, libRoot, prefix string) string {
	rel, ok := relativeDotted(filePath, libRoot)
	if !ok {
		return filePath
	}
	rel = strings.TrimSuffix(rel, pythonExt)
	switch {
	case rel == initStem:
		rel = ""
	case strings.HasSuffix(rel, "."+initStem):
		rel = strings.TrimSuffix(rel, "."+initStem)
	}
	return QualifiedName(prefix, rel)
}

// DerivePicModule maps a .pic.yml file to its module name: the relative path
// with the .pic.yml suffix rewritten to _picyml, e.g. lib/mzi.pic.yml -> lib.mzi_picyml.
func DerivePicModule(filePath, libRoot, prefix string) string {
	rel, ok := relativeDotted(filePath, libRoot)
	if !ok {
		return filePath
	}
	if strings.HasSuffix(rel, picExt) {
		rel = strings.TrimSuffix(rel, picExt) + "_picyml"
	}
	return QualifiedName(prefix, rel)
}

// PicFunctionName is the pseudo-function name of a .pic.yml file: its stem
// with a trailing .pic removed.
func PicFunctionName(filePath string) string {
	base := filepath.Base(filePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSuffix(stem, ".pic")
}

// IsPackageInit reports whether filePath is a package __init__.py.
func IsPackageInit(filePath string) bool {
	return filepath.Base(filePath) == initStem+pythonExt
}

func relativeDotted(filePath, libRoot string) (string, bool) {
	rel, err := filepath.Rel(libRoot, filePath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return strings.ReplaceAll(rel, string(filepath.Separator), "."), true
}

// ResolveRelativeImport turns the module part of a relative "from" import
// into an absolute dotted module.
//
// A module-qualified import (from .b import x, from ..c import y) resolves
// against the package containing the current module, stepping up level-1
// packages. When the step would leave the module path, the literal dotted
// form (e.g. "..c") is returned.
func ResolveRelativeImport(module, current string, isPackage bool, level int) string {
	if level <= 0 {
		return module
	}
	base, ok := relativeBase(current, isPackage, level, true)
	if !ok {
		return strings.Repeat(".", level) + module
	}
	return QualifiedName(base, module)
}

// ResolveRelativeName resolves a name imported without a module part
// (from . import x, from .. import x). Level 1 appends to the current module
// path; deeper levels step up from the containing package. When the step
// would leave the module path the bare name is returned.
func ResolveRelativeName(name, current string, isPackage bool, level int) string {
	base, ok := relativeBase(current, isPackage, level, false)
	if !ok {
		return name
	}
	return QualifiedName(base, name)
}

func relativeBase(current string, isPackage bool, level int, hasModule bool) (string, bool) {
	if level == 1 && !hasModule {
		return current, true
	}
	pkg := current
	if !isPackage {
		pkg = parentModule(current)
	}
	if pkg == "" {
		return "", level == 1
	}
	parts := strings.Split(pkg, ".")
	up := level - 1
	if up >= len(parts) {
		return "", false
	}
	return strings.Join(parts[:len(parts)-up], "."), true
}

func parentModule(module string) string {
	if idx := strings.LastIndex(module, "."); idx != -1 {
		return module[:idx]
	}
	return ""
}
