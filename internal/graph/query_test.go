package graph

import (
	"testing"

	"github.com/skelly-dev/picgraph/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryFixture() *parser.CallGraph {
	return &parser.CallGraph{
		Functions: map[string]*parser.Function{
			"lib.a.mzi": {
				Name: "mzi", Module: "lib.a",
				ResolvedCalls:         parser.OrderedSet{"lib.b.ring", "lib.a.helper"},
				ResolvedComponentGets: parser.OrderedSet{"lib.b.ring", "lib.c.bend"},
			},
			"lib.a.helper": {Name: "helper", Module: "lib.a"},
			"lib.b.mzi":    {Name: "mzi", Module: "lib.b"},
			"lib.b.ring":   {Name: "ring", Module: "lib.b"},
		},
		Modules: map[string]*parser.Module{
			"lib.a": {Name: "lib.a"},
			"lib.b": {Name: "lib.b"},
			"lib.c": {Name: "lib.c"},
		},
	}
}

func TestFilterFunctionBySimpleAndQualifiedName(t *testing.T) {
	cg := queryFixture()

	bySimple := FilterFunction(cg, "mzi")
	assert.ElementsMatch(t, []string{"lib.a.mzi", "lib.b.mzi"}, bySimple.FunctionKeys())
	assert.Len(t, bySimple.Modules, 2)
	assert.NotContains(t, bySimple.Modules, "lib.c")

	byKey := FilterFunction(cg, "lib.b.ring")
	assert.Equal(t, []string{"lib.b.ring"}, byKey.FunctionKeys())
	assert.Equal(t, []string{"lib.b"}, keys(byKey.Modules))

	none := FilterFunction(cg, "nothing")
	assert.Empty(t, none.Functions)
	assert.Empty(t, none.Modules)
}

func TestSimplifyUnionsCallsAndComponentGets(t *testing.T) {
	simple := Simplify(queryFixture())

	assert.Equal(t, []string{"lib.a.helper", "lib.b.ring", "lib.c.bend"}, simple["lib.a.mzi"])
	assert.Equal(t, []string{}, simple["lib.b.ring"])
	assert.Len(t, simple, 4)
}

func TestSelectPath(t *testing.T) {
	value, err := ToValue(queryFixture())
	require.NoError(t, err)

	got, ok := SelectPath(value, "functions:lib.a.mzi:resolved_calls:1")
	require.True(t, ok)
	assert.Equal(t, "lib.a.helper", got)

	got, ok = SelectPath(value, "functions:lib.b.ring:name")
	require.True(t, ok)
	assert.Equal(t, "ring", got)

	for _, path := range []string{
		"functions:missing",
		"functions:lib.a.mzi:resolved_calls:9",
		"functions:lib.a.mzi:resolved_calls:x",
		"functions:lib.a.mzi:name:deeper",
	} {
		_, ok := SelectPath(value, path)
		assert.False(t, ok, path)
	}
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestCallers(t *testing.T) {
	cg := queryFixture()

	assert.Equal(t, []string{"lib.a.mzi"}, Callers(cg, "lib.b.ring"))
	assert.Equal(t, []string{"lib.a.mzi"}, Callers(cg, "lib.c.bend"))
	assert.Equal(t, []string{}, Callers(cg, "lib.a.mzi"))
}

func TestShortestPath(t *testing.T) {
	cg := queryFixture()
	cg.Functions["lib.b.ring"].ResolvedCalls = parser.OrderedSet{"lib.b.mzi"}
	cg.Functions["lib.a.helper"].ResolvedCalls = parser.OrderedSet{"lib.b.ring"}

	assert.Equal(t, []string{"lib.a.mzi", "lib.b.ring", "lib.b.mzi"}, ShortestPath(cg, "lib.a.mzi", "lib.b.mzi"))
	assert.Equal(t, []string{"lib.a.mzi"}, ShortestPath(cg, "lib.a.mzi", "lib.a.mzi"))
	assert.Nil(t, ShortestPath(cg, "lib.b.mzi", "lib.a.mzi"))
	assert.Nil(t, ShortestPath(cg, "missing", "lib.a.mzi"))
}

func TestSuggest(t *testing.T) {
	cg := queryFixture()

	got := Suggest(cg, "mzii", 5)
	require.NotEmpty(t, got)
	assert.ElementsMatch(t, []string{"lib.a.mzi", "lib.b.mzi"}, got[:2])
	assert.Len(t, Suggest(cg, "mzii", 1), 1)
	assert.Empty(t, Suggest(cg, "completely_different_name", 5))
}
