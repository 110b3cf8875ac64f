package parser

import "sync"

// ModuleTable is the shared, incrementally populated set of module records.
// It is safe for concurrent use during extraction; resolution works on a
// Snapshot taken once every file has been analyzed.
type ModuleTable struct {
	mu      sync.Mutex
	modules map[string]*Module
}

// NewModuleTable creates an empty table.
func NewModuleTable() *ModuleTable {
	return &ModuleTable{modules: make(map[string]*Module)}
}

// module returns the record for name, creating it with path on first use.
// Callers must hold t.mu.
func (t *ModuleTable) module(name, path string) *Module {
	mod, ok := t.modules[name]
	if !ok {
		mod = newModule(name, path)
		t.modules[name] = mod
	}
	return mod
}

// Touch registers module so that files defining nothing still appear.
func (t *ModuleTable) Touch(module, path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.module(module, path)
}

func (t *ModuleTable) AddFunction(module, path, function string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.module(module, path).Functions.Add(function)
}

func (t *ModuleTable) AddImport(module, path, target string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.module(module, path).Imports.Add(target)
}

func (t *ModuleTable) AddPartial(module, path, name string, binding PartialBinding) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.module(module, path).Partials[name] = binding
}

func (t *ModuleTable) AddAlias(module, path, alias, target string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.module(module, path).Aliases[alias] = target
}

func (t *ModuleTable) AddConstant(module, path, name, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.module(module, path).Constants[name] = value
}

func (t *ModuleTable) AddError(module, path, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.module(module, path).Errors.Add(message)
}

// Constant looks up a module-level string constant recorded so far.
func (t *ModuleTable) Constant(module, name string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	mod, ok := t.modules[module]
	if !ok {
		return "", false
	}
	value, ok := mod.Constants[name]
	return value, ok
}

// Snapshot returns a deep copy of every module record.
func (t *ModuleTable) Snapshot() map[string]*Module {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]*Module, len(t.modules))
	for name, mod := range t.modules {
		out[name] = mod.Clone()
	}
	return out
}
