package parser

import (
	"encoding/json"
	"sort"
	"strings"
)

// FileKind identifies which analyzer handles a file.
type FileKind int

const (
	KindPython FileKind = iota
	KindPic
)

func (k FileKind) String() string {
	switch k {
	case KindPython:
		return "python"
	case KindPic:
		return "pic"
	default:
		return "unknown"
	}
}

// YAMLDecorator marks functions that originate from declarative .pic.yml files.
const YAMLDecorator = "yaml"

// CallMarker is appended to decorators written in call form, e.g. @cache(maxsize=8).
const CallMarker = "(...)"

// OrderedSet is an insertion-ordered set of strings.
type OrderedSet []string

// Add appends value unless it is already present. It reports whether value was added.
func (s *OrderedSet) Add(value string) bool {
	if s.Contains(value) {
		return false
	}
	*s = append(*s, value)
	return true
}

func (s OrderedSet) Contains(value string) bool {
	for _, item := range s {
		if item == value {
			return true
		}
	}
	return false
}

func (s OrderedSet) First() (string, bool) {
	if len(s) == 0 {
		return "", false
	}
	return s[0], true
}

func (s OrderedSet) Clone() OrderedSet {
	if s == nil {
		return nil
	}
	out := make(OrderedSet, len(s))
	copy(out, s)
	return out
}

// Without returns a copy of the set with the given values removed.
func (s OrderedSet) Without(values ...string) OrderedSet {
	out := make(OrderedSet, 0, len(s))
	for _, item := range s {
		drop := false
		for _, value := range values {
			if item == value {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, item)
		}
	}
	return out
}

// MarshalJSON renders an empty set as [] rather than null.
func (s OrderedSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

func (s *OrderedSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = nil
	for _, value := range values {
		s.Add(value)
	}
	return nil
}

// PartialBinding captures the arguments pre-bound at a functools.partial call site.
type PartialBinding struct {
	Func   string         `json:"func"`
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

// Function is one definition in the call graph: a Python function or method,
// a functools.partial assignment, or a .pic.yml pseudo-function.
type Function struct {
	Name                     string         `json:"name"`
	Module                   string         `json:"module"`
	Line                     int            `json:"line"`
	Calls                    OrderedSet     `json:"calls"`
	Decorators               OrderedSet     `json:"decorators"`
	ResolvedCalls            OrderedSet     `json:"resolved_calls"`
	ResolvedDecorators       OrderedSet     `json:"resolved_decorators"`
	ParameterDefaults        map[string]any `json:"parameter_defaults"`
	ComponentGets            OrderedSet     `json:"component_gets"`
	ResolvedComponentGets    OrderedSet     `json:"resolved_component_gets"`
	IsPartial                bool           `json:"is_partial"`
	ReturnAnnotation         *string        `json:"return_annotation"`
	ResolvedReturnAnnotation *string        `json:"resolved_return_annotation"`
}

// Key returns the fully qualified name used as the call graph key.
func (f *Function) Key() string {
	return QualifiedName(f.Module, f.Name)
}

// IsYAML reports whether the function came from a declarative file.
func (f *Function) IsYAML() bool {
	return f.Decorators.Contains(YAMLDecorator)
}

// Module is the per-module symbol table. Revisiting a module unions into it.
type Module struct {
	Name      string                    `json:"name"`
	Path      string                    `json:"path"`
	Functions OrderedSet                `json:"functions"`
	Partials  map[string]PartialBinding `json:"partials"`
	Imports   OrderedSet                `json:"imports"`
	Aliases   map[string]string         `json:"aliases"`
	Constants map[string]string         `json:"constants"`
	Errors    OrderedSet                `json:"errors"`
}

func newModule(name, path string) *Module {
	return &Module{
		Name:      name,
		Path:      path,
		Partials:  make(map[string]PartialBinding),
		Aliases:   make(map[string]string),
		Constants: make(map[string]string),
	}
}

// Clone returns a deep copy of the module.
func (m *Module) Clone() *Module {
	out := newModule(m.Name, m.Path)
	out.Functions = m.Functions.Clone()
	out.Imports = m.Imports.Clone()
	out.Errors = m.Errors.Clone()
	for name, binding := range m.Partials {
		out.Partials[name] = binding
	}
	for alias, target := range m.Aliases {
		out.Aliases[alias] = target
	}
	for name, value := range m.Constants {
		out.Constants[name] = value
	}
	return out
}

// CallGraph is the assembled result of one build.
type CallGraph struct {
	Functions map[string]*Function `json:"functions"`
	Modules   map[string]*Module   `json:"modules"`
}

// FunctionKeys returns the graph's function keys in sorted order.
func (g *CallGraph) FunctionKeys() []string {
	keys := make([]string, 0, len(g.Functions))
	for key := range g.Functions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// QualifiedName joins non-empty dotted segments.
func QualifiedName(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return strings.Join(out, ".")
}

// LastSegment returns the final dotted component of name.
func LastSegment(name string) string {
	if idx := strings.LastIndex(name, "."); idx != -1 {
		return name[idx+1:]
	}
	return name
}
