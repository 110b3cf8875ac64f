package graph

import (
	"strings"

	"github.com/skelly-dev/picgraph/internal/parser"
)

// maxResolveDepth bounds alias and star-import recursion so cyclic
// re-exports terminate.
const maxResolveDepth = 32

// resolver maps raw names to fully qualified function names against the
// final module tables. It only reads modules; it writes the resolved_* fields
// of functions.
type resolver struct {
	modules   map[string]*parser.Module
	functions []*parser.Function
	prefixes  []string
}

func newResolver(modules map[string]*parser.Module, functions []*parser.Function, prefixes []string) *resolver {
	return &resolver{modules: modules, functions: functions, prefixes: prefixes}
}

func (r *resolver) resolveAll() {
	for _, fn := range r.functions {
		r.resolveFunction(fn)
	}
}

func (r *resolver) resolveFunction(fn *parser.Function) {
	var calls, decorators, componentGets parser.OrderedSet

	yaml := fn.IsYAML()
	for _, call := range fn.Calls {
		var resolved string
		var ok bool
		if yaml {
			resolved, ok = r.resolveYAMLCall(call)
		} else {
			resolved, ok = r.resolveCallWithImports(call, fn.Module)
		}
		if ok {
			calls.Add(resolved)
		}
	}

	if !yaml {
		for _, decorator := range fn.Decorators {
			name, isCall := strings.CutSuffix(decorator, parser.CallMarker)
			resolved, ok := r.resolveCallWithImports(name, fn.Module)
			if !ok {
				continue
			}
			if isCall {
				resolved += parser.CallMarker
			}
			decorators.Add(resolved)
		}
	}

	for _, get := range fn.ComponentGets {
		name := strings.Trim(get, `"`)
		if resolved, ok := r.resolveYAMLCall(name); ok {
			componentGets.Add(resolved)
		} else if strings.Contains(name, ".") {
			if resolved, ok := r.resolveCallWithImports(name, fn.Module); ok {
				componentGets.Add(resolved)
			}
		}
	}

	fn.ResolvedCalls = calls
	fn.ResolvedDecorators = decorators
	fn.ResolvedComponentGets = componentGets

	if fn.ReturnAnnotation != nil {
		resolved := r.resolveAnnotation(*fn.ReturnAnnotation, fn.Module)
		fn.ResolvedReturnAnnotation = &resolved
	}
}

// resolveCallWithImports resolves a call the way Python name lookup would
// from inside module: local definitions, aliases and imports. A dotted call
// through an alias always resolves, to alias_target.rest when nothing better
// is found.
func (r *resolver) resolveCallWithImports(call, module string) (string, bool) {
	mod, ok := r.modules[module]
	if !ok || call == "" {
		return "", false
	}

	if head, rest, dotted := strings.Cut(call, "."); dotted {
		if target, ok := mod.Aliases[head]; ok {
			if resolved, ok := r.resolveInModule(rest, target, 0); ok {
				return resolved, true
			}
			return target + "." + rest, true
		}
		if target, ok := importTarget(head, mod); ok {
			return r.resolveInModule(rest, target, 0)
		}
		return "", false
	}

	return r.resolveInModule(call, module, 0)
}

// importTarget finds the import that binds name: an import equal to name or
// whose last segment is name.
func importTarget(name string, mod *parser.Module) (string, bool) {
	for _, imp := range mod.Imports {
		if imp == name || strings.HasSuffix(imp, "."+name) {
			return imp, true
		}
	}
	return "", false
}

// resolveInModule looks name up inside target: a direct definition, an
// alias-qualified name, an explicit import or, transitively, a star import.
func (r *resolver) resolveInModule(name, target string, depth int) (string, bool) {
	if depth > maxResolveDepth {
		return "", false
	}
	mod, ok := r.modules[target]
	if !ok {
		return "", false
	}

	if mod.Functions.Contains(name) {
		return parser.QualifiedName(target, name), true
	}

	if head, rest, dotted := strings.Cut(name, "."); dotted {
		if aliasTarget, ok := mod.Aliases[head]; ok {
			return r.resolveInModule(rest, aliasTarget, depth+1)
		}
	}

	for _, imp := range mod.Imports {
		if strings.HasSuffix(imp, "."+name) {
			return imp, true
		}
	}

	for _, imp := range mod.Imports {
		starModule, ok := strings.CutSuffix(imp, ".*")
		if !ok {
			continue
		}
		if resolved, ok := r.resolveInModule(name, starModule, depth+1); ok {
			return resolved, true
		}
	}
	return "", false
}

// resolveYAMLCall resolves a library-wide component name. An exact simple
// name match in any root, scanned in priority order, beats a trailing-segment
// match of a compound name such as Class.method in any root.
func (r *resolver) resolveYAMLCall(call string) (string, bool) {
	if call == "" {
		return "", false
	}
	for _, prefix := range r.prefixes {
		for _, fn := range r.functions {
			if strings.HasPrefix(fn.Module, prefix) && fn.Name == call {
				return fn.Key(), true
			}
		}
	}
	for _, prefix := range r.prefixes {
		for _, fn := range r.functions {
			if !strings.HasPrefix(fn.Module, prefix) || !strings.Contains(fn.Name, ".") {
				continue
			}
			if parser.LastSegment(fn.Name) == call {
				return fn.Key(), true
			}
		}
	}
	return "", false
}

// resolveAnnotation substitutes an alias for the leading segment of a dotted
// annotation. Anything else is returned unchanged.
func (r *resolver) resolveAnnotation(annotation, module string) string {
	head, rest, dotted := strings.Cut(annotation, ".")
	if !dotted {
		return annotation
	}
	mod, ok := r.modules[module]
	if !ok {
		return annotation
	}
	if target, ok := mod.Aliases[head]; ok {
		return target + "." + rest
	}
	return annotation
}
