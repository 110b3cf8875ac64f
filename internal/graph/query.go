package graph

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/skelly-dev/picgraph/internal/parser"
)

// FilterFunction keeps the functions whose key or simple name equals name,
// and only the modules those functions belong to.
func FilterFunction(cg *parser.CallGraph, name string) *parser.CallGraph {
	out := &parser.CallGraph{
		Functions: make(map[string]*parser.Function),
		Modules:   make(map[string]*parser.Module),
	}
	for key, fn := range cg.Functions {
		if key == name || fn.Name == name {
			out.Functions[key] = fn
		}
	}
	for _, fn := range out.Functions {
		if mod, ok := cg.Modules[fn.Module]; ok {
			out.Modules[fn.Module] = mod
		}
	}
	return out
}

// Simplify maps every function to the sorted union of its resolved calls and
// resolved component gets.
func Simplify(cg *parser.CallGraph) map[string][]string {
	out := make(map[string][]string, len(cg.Functions))
	for key, fn := range cg.Functions {
		var edges parser.OrderedSet
		for _, call := range fn.ResolvedCalls {
			edges.Add(call)
		}
		for _, get := range fn.ResolvedComponentGets {
			edges.Add(get)
		}
		sorted := []string(edges.Clone())
		if sorted == nil {
			sorted = []string{}
		}
		sort.Strings(sorted)
		out[key] = sorted
	}
	return out
}

// ToValue converts v to its generic JSON form (maps, slices and scalars) so a
// sub-value can be selected from it.
func ToValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return out, nil
}

// SelectPath walks a colon-delimited path of object keys and array indices,
// e.g. "functions:lib.cells.mzi:resolved_calls:0". It reports false when any
// step is missing.
func SelectPath(value any, path string) (any, bool) {
	current := value
	for _, part := range strings.Split(path, ":") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			index, err := strconv.Atoi(part)
			if err != nil || index < 0 || index >= len(node) {
				return nil, false
			}
			current = node[index]
		default:
			return nil, false
		}
	}
	return current, true
}

// edges returns the resolved calls and component gets of fn, calls first.
func edges(fn *parser.Function) []string {
	out := make([]string, 0, len(fn.ResolvedCalls)+len(fn.ResolvedComponentGets))
	out = append(out, fn.ResolvedCalls...)
	return append(out, fn.ResolvedComponentGets...)
}

// Callers returns the sorted keys of functions with a resolved call or
// component get naming target.
func Callers(cg *parser.CallGraph, target string) []string {
	out := []string{}
	for key, fn := range cg.Functions {
		if slices.Contains(edges(fn), target) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// ShortestPath returns the shortest chain of function keys from one function
// to another following resolved edges, or nil when to is unreachable.
// Neighbours are visited in sorted order so equal-length paths are stable.
func ShortestPath(cg *parser.CallGraph, from, to string) []string {
	if _, ok := cg.Functions[from]; !ok {
		return nil
	}
	if from == to {
		return []string{from}
	}

	queue := []string{from}
	parent := map[string]string{from: ""}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		fn := cg.Functions[current]
		if fn == nil {
			continue
		}
		next := edges(fn)
		sort.Strings(next)
		for _, nextKey := range next {
			if _, seen := parent[nextKey]; seen {
				continue
			}
			parent[nextKey] = current
			if nextKey == to {
				return reconstructPath(parent, from, to)
			}
			queue = append(queue, nextKey)
		}
	}
	return nil
}

func reconstructPath(parent map[string]string, from, to string) []string {
	out := []string{to}
	for current := to; current != from; {
		prev := parent[current]
		out = append(out, prev)
		current = prev
	}
	slices.Reverse(out)
	return out
}

// minSuggestScore is the Jaro-Winkler similarity a name needs to be suggested.
const minSuggestScore = 0.85

// Suggest returns up to limit function keys whose key or simple name is
// similar to name, best match first.
func Suggest(cg *parser.CallGraph, name string, limit int) []string {
	type scored struct {
		key   string
		score float32
	}
	var candidates []scored
	for key, fn := range cg.Functions {
		best := float32(0)
		for _, candidate := range []string{key, fn.Name} {
			score, err := edlib.StringsSimilarity(name, candidate, edlib.JaroWinkler)
			if err == nil && score > best {
				best = score
			}
		}
		if best >= minSuggestScore {
			candidates = append(candidates, scored{key: key, score: best})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].key < candidates[j].key
	})

	out := make([]string, 0, min(limit, len(candidates)))
	for _, c := range candidates {
		if len(out) == limit {
			break
		}
		out = append(out, c.key)
	}
	return out
}
