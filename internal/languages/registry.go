package languages

import "github.com/skelly-dev/picgraph/internal/parser"

// NewDefaultRegistry creates a registry with the .pic.yml and Python analyzers.
// The netlist analyzer is registered first so it claims .pic.yml files.
func NewDefaultRegistry() *parser.Registry {
	r := parser.NewRegistry()

	r.Register(NewPicAnalyzer())
	r.Register(NewPythonAnalyzer())

	return r
}
