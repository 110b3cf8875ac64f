package languages

import (
	"fmt"
	"strings"

	"github.com/skelly-dev/picgraph/internal/parser"
	"gopkg.in/yaml.v3"
)

// PicAnalyzer turns a .pic.yml netlist into a single function whose calls are
// the component names of its instances, in document order.
type PicAnalyzer struct{}

// NewPicAnalyzer creates a new .pic.yml analyzer
func NewPicAnalyzer() *PicAnalyzer {
	return &PicAnalyzer{}
}

func (a *PicAnalyzer) Kind() parser.FileKind {
	return parser.KindPic
}

func (a *PicAnalyzer) Match(filename string) bool {
	return strings.HasSuffix(filename, ".pic.yml")
}

// Analyze never fails: malformed YAML is recorded on the module and the file
// still yields its function, with no calls.
func (a *PicAnalyzer) Analyze(fc *parser.FileContext, content []byte) ([]parser.Function, error) {
	name := parser.PicFunctionName(fc.Path)
	fn := parser.Function{
		Name:              name,
		Module:            fc.Module,
		Line:              1,
		Decorators:        parser.OrderedSet{parser.YAMLDecorator},
		ParameterDefaults: make(map[string]any),
	}
	fc.AddFunction(name)

	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		fc.AddError(fmt.Sprintf("failed to parse YAML file %s: %v", fc.Path, err))
		return []parser.Function{fn}, nil
	}

	for _, component := range instanceComponents(&doc) {
		fn.Calls.Add(component)
	}
	return []parser.Function{fn}, nil
}

// instanceComponents returns the string "component" field of every entry in
// the top-level "instances" mapping. Entries of any other shape are skipped.
func instanceComponents(doc *yaml.Node) []string {
	root := deref(doc)
	if root != nil && root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil
		}
		root = deref(root.Content[0])
	}

	instances := mappingValue(root, "instances")
	if instances == nil || instances.Kind != yaml.MappingNode {
		return nil
	}

	var components []string
	for i := 1; i < len(instances.Content); i += 2 {
		component := mappingValue(deref(instances.Content[i]), "component")
		if component == nil || component.Kind != yaml.ScalarNode || component.Tag != "!!str" {
			continue
		}
		components = append(components, component.Value)
	}
	return components
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if k := deref(node.Content[i]); k != nil && k.Value == key {
			return deref(node.Content[i+1])
		}
	}
	return nil
}

func deref(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}
