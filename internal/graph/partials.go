package graph

import (
	"strings"

	"github.com/skelly-dev/picgraph/internal/parser"
)

var partialMarkers = []string{"partial", "functools.partial"}

// functionIndex looks functions up by fully qualified name over a frozen copy
// of the resolved functions, so flattening one partial never observes
// another partial's flattened state.
type functionIndex struct {
	ordered    []*parser.Function
	byKey      map[string]*parser.Function
	basePrefix string
}

func newFunctionIndex(functions []*parser.Function, basePrefix string) *functionIndex {
	idx := &functionIndex{
		ordered:    make([]*parser.Function, 0, len(functions)),
		byKey:      make(map[string]*parser.Function, len(functions)),
		basePrefix: basePrefix,
	}
	for _, fn := range functions {
		frozen := *fn
		idx.ordered = append(idx.ordered, &frozen)
		if _, exists := idx.byKey[frozen.Key()]; !exists {
			idx.byKey[frozen.Key()] = &frozen
		}
	}
	return idx
}

// lookup finds name exactly, or else any function under the base prefix
// whose simple name equals name's last segment.
func (idx *functionIndex) lookup(name string) (*parser.Function, bool) {
	if fn, ok := idx.byKey[name]; ok {
		return fn, true
	}
	simple := parser.LastSegment(name)
	for _, fn := range idx.ordered {
		if fn.Name == simple && strings.HasPrefix(fn.Module, idx.basePrefix) {
			return fn, true
		}
	}
	return nil, false
}

// flattenPartials copies base-function metadata into every partial: the
// wrapping chain is followed to its first non-partial function, keyword
// overrides are gathered nearest-first and applied over the base defaults.
func flattenPartials(functions []*parser.Function, modules map[string]*parser.Module, basePrefix string) {
	idx := newFunctionIndex(functions, basePrefix)

	for _, fn := range functions {
		if !fn.IsPartial {
			continue
		}
		target, ok := fn.ResolvedCalls.First()
		if !ok {
			continue
		}
		base, ok := idx.lookup(target)
		if !ok {
			continue
		}

		overrides := make(map[string]any)
		mergeKwargs(overrides, modules, fn)

		visited := map[string]bool{fn.Key(): true}
		for base.IsPartial && !visited[base.Key()] {
			visited[base.Key()] = true
			mergeKwargs(overrides, modules, base)

			next, ok := base.ResolvedCalls.First()
			if !ok {
				break
			}
			wrapped, ok := idx.lookup(next)
			if !ok {
				break
			}
			base = wrapped
		}

		defaults := make(map[string]any, len(base.ParameterDefaults)+len(overrides))
		for name, value := range base.ParameterDefaults {
			defaults[name] = value
		}
		for name, value := range overrides {
			defaults[name] = value
		}

		fn.ParameterDefaults = defaults
		fn.Decorators = base.Decorators.Without(partialMarkers...)
		fn.ResolvedDecorators = base.ResolvedDecorators.Without(partialMarkers...)
		fn.ComponentGets = base.ComponentGets.Clone()
		fn.ResolvedComponentGets = base.ResolvedComponentGets.Clone()
		fn.ReturnAnnotation = base.ReturnAnnotation
		fn.ResolvedReturnAnnotation = base.ResolvedReturnAnnotation
	}
}

// mergeKwargs adds fn's bound keyword arguments that are not already set.
func mergeKwargs(overrides map[string]any, modules map[string]*parser.Module, fn *parser.Function) {
	mod, ok := modules[fn.Module]
	if !ok {
		return
	}
	binding, ok := mod.Partials[fn.Name]
	if !ok {
		return
	}
	for name, value := range binding.Kwargs {
		if _, set := overrides[name]; !set {
			overrides[name] = value
		}
	}
}
