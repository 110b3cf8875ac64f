package languages

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/skelly-dev/picgraph/internal/parser"
)

func analyzePython(t *testing.T, rel, src string) ([]parser.Function, *parser.Module) {
	t.Helper()
	root := filepath.FromSlash("/work/lib")
	table := parser.NewModuleTable()
	fc := parser.NewFileContext(parser.KindPython, filepath.Join(root, filepath.FromSlash(rel)), root, "lib", table, nil)

	functions, err := NewPythonAnalyzer().Analyze(fc, []byte(src))
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	mod, ok := table.Snapshot()[fc.Module]
	if !ok {
		t.Fatalf("expected module %s to be recorded", fc.Module)
	}
	return functions, mod
}

func findFunction(t *testing.T, functions []parser.Function, name string) parser.Function {
	t.Helper()
	for _, fn := range functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("function %s not found in %#v", name, functions)
	return parser.Function{}
}

func TestPythonFunctionCallsDefaultsAndAnnotations(t *testing.T) {
	functions, mod := analyzePython(t, "cells/mzi.py", `import gdsfactory as gf
from gdsfactory.components import straight as st


@gf.cell
@register("mzi")
def mzi(length: float = 10.0, name="x", n=-2, flag=True, xs=None) -> gf.Component:
    c = gf.Component()
    ref = c << st(length=length)
    if n > 0:
        bend = gf.get_component("bend_euler")
    else:
        helper(wrap(1))
    for item in items():
        item.move()
    return c
`)

	fn := findFunction(t, functions, "mzi")
	if fn.Module != "lib.cells.mzi" {
		t.Fatalf("expected module lib.cells.mzi, got %q", fn.Module)
	}
	if fn.Line != 7 {
		t.Fatalf("expected def line 7, got %d", fn.Line)
	}

	wantCalls := parser.OrderedSet{"gf.Component", "st", "gf.get_component", "helper", "wrap", "items", "item.move"}
	if !reflect.DeepEqual(fn.Calls, wantCalls) {
		t.Fatalf("unexpected calls %#v", fn.Calls)
	}
	if !reflect.DeepEqual(fn.Decorators, parser.OrderedSet{"gf.cell", "register(...)"}) {
		t.Fatalf("unexpected decorators %#v", fn.Decorators)
	}
	if !reflect.DeepEqual(fn.ComponentGets, parser.OrderedSet{"bend_euler"}) {
		t.Fatalf("unexpected component gets %#v", fn.ComponentGets)
	}
	if fn.ReturnAnnotation == nil || *fn.ReturnAnnotation != "gf.Component" {
		t.Fatalf("unexpected return annotation %v", fn.ReturnAnnotation)
	}

	wantDefaults := map[string]any{"length": 10.0, "name": "x", "n": int64(-2), "flag": true, "xs": nil}
	if !reflect.DeepEqual(fn.ParameterDefaults, wantDefaults) {
		t.Fatalf("unexpected defaults %#v", fn.ParameterDefaults)
	}

	if !reflect.DeepEqual(mod.Imports, parser.OrderedSet{"gdsfactory", "gdsfactory.components.straight"}) {
		t.Fatalf("unexpected imports %#v", mod.Imports)
	}
	if mod.Aliases["gf"] != "gdsfactory" || mod.Aliases["st"] != "gdsfactory.components.straight" {
		t.Fatalf("unexpected aliases %#v", mod.Aliases)
	}
	if !reflect.DeepEqual(mod.Functions, parser.OrderedSet{"mzi"}) {
		t.Fatalf("unexpected module functions %#v", mod.Functions)
	}
}

func TestPythonPartialBindings(t *testing.T) {
	functions, mod := analyzePython(t, "cells/wg.py", `from functools import partial
import functools
from .base import straight

wg = partial(straight, length=5, width=0.5)
wg2 = functools.partial(wg, 1, cross_section="xs")
`)

	wg := findFunction(t, functions, "wg")
	if !wg.IsPartial || wg.Line != 5 {
		t.Fatalf("expected partial at line 5, got %#v", wg)
	}
	if !reflect.DeepEqual(wg.Calls, parser.OrderedSet{"straight"}) {
		t.Fatalf("unexpected partial calls %#v", wg.Calls)
	}

	binding := mod.Partials["wg"]
	if binding.Func != "straight" || len(binding.Args) != 0 {
		t.Fatalf("unexpected binding %#v", binding)
	}
	if !reflect.DeepEqual(binding.Kwargs, map[string]any{"length": int64(5), "width": 0.5}) {
		t.Fatalf("unexpected kwargs %#v", binding.Kwargs)
	}

	binding = mod.Partials["wg2"]
	if binding.Func != "wg" || !reflect.DeepEqual(binding.Args, []any{int64(1)}) {
		t.Fatalf("unexpected binding %#v", binding)
	}
	if binding.Kwargs["cross_section"] != "xs" {
		t.Fatalf("unexpected kwargs %#v", binding.Kwargs)
	}

	if !mod.Functions.Contains("wg") || !mod.Functions.Contains("wg2") {
		t.Fatalf("expected partial names in module functions, got %#v", mod.Functions)
	}
	if !mod.Imports.Contains("lib.cells.base.straight") {
		t.Fatalf("expected relative import to resolve, got %#v", mod.Imports)
	}
}

func TestPythonConstantsAliasesAndComponentArguments(t *testing.T) {
	functions, mod := analyzePython(t, "cells/pdk.py", `BEND = "bend_circular"
c = components
sm = gf.components.straight
LEFT = RIGHT = "pad"

def build(component="mmi", style=BEND, idx=3):
    get_component(component)
    get_component(style)
    gf.get_component(BEND)
    get_component(idx)
    get_component(other)
    get_component(make())
`)

	if mod.Constants["BEND"] != "bend_circular" || mod.Constants["LEFT"] != "pad" || mod.Constants["RIGHT"] != "pad" {
		t.Fatalf("unexpected constants %#v", mod.Constants)
	}
	if mod.Aliases["c"] != "lib.cells.pdk.components" {
		t.Fatalf("expected bare alias to be qualified, got %q", mod.Aliases["c"])
	}
	if mod.Aliases["sm"] != "gf.components.straight" {
		t.Fatalf("expected dotted alias as-is, got %q", mod.Aliases["sm"])
	}

	fn := findFunction(t, functions, "build")
	want := parser.OrderedSet{"mmi", "BEND", "bend_circular", "3", "other", "unknown"}
	if !reflect.DeepEqual(fn.ComponentGets, want) {
		t.Fatalf("unexpected component gets %#v", fn.ComponentGets)
	}
}

func TestPythonComponentArgumentNonStringDefaults(t *testing.T) {
	functions, _ := analyzePython(t, "cells/pdk.py", `def build(a=None, b=True, c=2.0, d=-4):
    get_component(a)
    get_component(b)
    get_component(c)
    get_component(d)
`)

	fn := findFunction(t, functions, "build")
	want := parser.OrderedSet{"null", "true", "2.0", "-4"}
	if !reflect.DeepEqual(fn.ComponentGets, want) {
		t.Fatalf("unexpected component gets %#v", fn.ComponentGets)
	}
}

func TestPythonIfBranchesWalkBodiesButNotElifTests(t *testing.T) {
	functions, _ := analyzePython(t, "cells/branch.py", `def route(kind):
    if is_ring(kind):
        ring()
    elif is_mzi(kind):
        mzi()
    else:
        straight()
`)

	fn := findFunction(t, functions, "route")
	want := parser.OrderedSet{"is_ring", "ring", "mzi", "straight"}
	if !reflect.DeepEqual(fn.Calls, want) {
		t.Fatalf("unexpected calls %#v", fn.Calls)
	}
}

func TestPythonClassMethodsAndImports(t *testing.T) {
	functions, mod := analyzePython(t, "pkg/__init__.py", `import os, numpy as np
from . import helpers
from .shapes import *
from ..outside import thing

class Cell:
    @property
    def size(self):
        return np.array([1, 2])

    def draw(self):
        self.size()
        helpers.draw()

if True:
    def hidden():
        pass
`)

	if len(functions) != 2 {
		t.Fatalf("expected two methods, got %#v", functions)
	}
	size := findFunction(t, functions, "Cell.size")
	if !reflect.DeepEqual(size.Decorators, parser.OrderedSet{"property"}) {
		t.Fatalf("unexpected decorators %#v", size.Decorators)
	}
	if !reflect.DeepEqual(size.Calls, parser.OrderedSet{"np.array"}) {
		t.Fatalf("unexpected calls %#v", size.Calls)
	}
	draw := findFunction(t, functions, "Cell.draw")
	if !reflect.DeepEqual(draw.Calls, parser.OrderedSet{"self.size", "helpers.draw"}) {
		t.Fatalf("unexpected calls %#v", draw.Calls)
	}

	if mod.Name != "lib.pkg" {
		t.Fatalf("expected package module lib.pkg, got %q", mod.Name)
	}
	wantImports := parser.OrderedSet{"os", "numpy", "lib.pkg.helpers", "lib.pkg.shapes.*", "lib.outside.thing"}
	if !reflect.DeepEqual(mod.Imports, wantImports) {
		t.Fatalf("unexpected imports %#v", mod.Imports)
	}
	if mod.Aliases["np"] != "numpy" {
		t.Fatalf("unexpected aliases %#v", mod.Aliases)
	}
}

func TestPythonReturnAnnotationForms(t *testing.T) {
	functions, _ := analyzePython(t, "types.py", `def a() -> Optional[int]: pass
def b() -> dict[str, int]: pass
def c() -> int | None: pass
def d() -> "Component": pass
def e() -> gf.typings.ComponentSpec: pass
`)

	want := map[string]string{
		"a": "Optional[int]",
		"b": "dict[(str, int)]",
		"c": "int | None",
		"d": `"Component"`,
		"e": "gf.typings.ComponentSpec",
	}
	for name, annotation := range want {
		fn := findFunction(t, functions, name)
		if fn.ReturnAnnotation == nil || *fn.ReturnAnnotation != annotation {
			t.Fatalf("%s: expected %q, got %v", name, annotation, fn.ReturnAnnotation)
		}
	}
}

func TestPythonLiteralValues(t *testing.T) {
	functions, _ := analyzePython(t, "lit.py", `def f(a=0x1F, b=1_000, c=99999999999999999999999, d=2j, e=r"\d", f=("x" "y"), g=[1], h=-1.5, i=foo.bar): pass
`)

	want := map[string]any{
		"a": int64(31),
		"b": int64(1000),
		"c": "99999999999999999999999",
		"d": "(0+2j)",
		"e": `\d`,
		"f": "xy",
		"g": "<unknown>",
		"h": -1.5,
		"i": "foo.bar",
	}
	fn := findFunction(t, functions, "f")
	if !reflect.DeepEqual(fn.ParameterDefaults, want) {
		t.Fatalf("unexpected defaults %#v", fn.ParameterDefaults)
	}
}

func TestPythonSyntaxErrorRecoversGoodBlocks(t *testing.T) {
	functions, mod := analyzePython(t, "broken.py", `import gdsfactory as gf

def good():
    gf.components.straight()

def bad(:
    pass

@gf.cell
def also_good():
    return ring()
`)

	if len(functions) != 2 {
		t.Fatalf("expected good and also_good, got %#v", functions)
	}
	good := findFunction(t, functions, "good")
	if good.Line != 3 {
		t.Fatalf("expected good at line 3, got %d", good.Line)
	}
	alsoGood := findFunction(t, functions, "also_good")
	if alsoGood.Line != 10 || !reflect.DeepEqual(alsoGood.Decorators, parser.OrderedSet{"gf.cell"}) {
		t.Fatalf("unexpected recovered function %#v", alsoGood)
	}
	if len(mod.Errors) != 1 {
		t.Fatalf("expected one block error, got %#v", mod.Errors)
	}
	if mod.Aliases["gf"] != "gdsfactory" {
		t.Fatalf("expected imports from clean blocks, got %#v", mod.Aliases)
	}
}
