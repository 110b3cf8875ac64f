package languages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/skelly-dev/picgraph/internal/parser"
)

// PythonAnalyzer extracts functions, methods, imports, aliases, constants and
// functools.partial bindings from Python source files.
//
// Each call to Analyze creates its own tree-sitter parser, so a single
// PythonAnalyzer may be shared across goroutines.
type PythonAnalyzer struct{}

// NewPythonAnalyzer creates a new Python analyzer
func NewPythonAnalyzer() *PythonAnalyzer {
	return &PythonAnalyzer{}
}

func (a *PythonAnalyzer) Kind() parser.FileKind {
	return parser.KindPython
}

func (a *PythonAnalyzer) Match(filename string) bool {
	return strings.HasSuffix(filename, ".py")
}

// Analyze walks the file's top-level statements once. When the file does not
// parse cleanly it falls back to block recovery: each block is parsed on its
// own, clean blocks still contribute declarations and every failing block adds
// one error to the module.
func (a *PythonAnalyzer) Analyze(fc *parser.FileContext, content []byte) ([]parser.Function, error) {
	tree, err := parsePython(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Python file %s: %w", fc.Path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		ex := newPyExtractor(fc, content, 0)
		ex.visitModule(root)
		return ex.functions, nil
	}

	fc.Logger.Debug("full parse failed, attempting block recovery",
		slog.String("file", fc.Path),
		slog.String("error", describeSyntaxError(root, 0)))

	return recoverBlocks(fc, string(content)), nil
}

func parsePython(content []byte) (*sitter.Tree, error) {
	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(python.GetLanguage())
	return p.ParseCtx(context.Background(), nil, content)
}

// pyExtractor walks one parsed source unit. lineOffset shifts tree rows when
// the unit is a recovered block rather than the whole file.
type pyExtractor struct {
	fc         *parser.FileContext
	src        []byte
	lineOffset int
	functions  []parser.Function
}

// funcScope collects what one function or method body references.
type funcScope struct {
	defaults      map[string]any
	calls         parser.OrderedSet
	componentGets parser.OrderedSet
}

func newPyExtractor(fc *parser.FileContext, src []byte, lineOffset int) *pyExtractor {
	return &pyExtractor{fc: fc, src: src, lineOffset: lineOffset}
}

func (e *pyExtractor) line(node *sitter.Node) int {
	return int(node.StartPoint().Row) + 1 + e.lineOffset
}

func (e *pyExtractor) text(node *sitter.Node) string {
	return strings.TrimSpace(node.Content(e.src))
}

func (e *pyExtractor) visitModule(root *sitter.Node) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		e.visitStatement(root.NamedChild(i))
	}
}

func (e *pyExtractor) visitStatement(node *sitter.Node) {
	switch node.Type() {
	case "import_statement":
		e.importStatement(node)
	case "import_from_statement":
		e.importFromStatement(node)
	case "expression_statement":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if child := node.NamedChild(i); child.Type() == "assignment" {
				e.assignment(child)
			}
		}
	case "function_definition":
		e.functionDefinition(node, nil, "")
	case "decorated_definition":
		def := node.ChildByFieldName("definition")
		if def == nil {
			return
		}
		switch def.Type() {
		case "function_definition":
			e.functionDefinition(def, decoratorNodes(node), "")
		case "class_definition":
			e.classDefinition(def)
		}
	case "class_definition":
		e.classDefinition(node)
	}
}

// importStatement handles "import X" and "import X as Y".
func (e *pyExtractor) importStatement(node *sitter.Node) {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.FieldNameForChild(i) != "name" {
			continue
		}
		child := node.Child(i)
		module, alias := "", ""
		switch child.Type() {
		case "dotted_name":
			module = e.text(child)
			alias = module
		case "aliased_import":
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				module = e.text(nameNode)
			}
			if aliasNode := child.ChildByFieldName("alias"); aliasNode != nil {
				alias = e.text(aliasNode)
			}
		}
		if module == "" {
			continue
		}
		if alias == "" {
			alias = module
		}

		e.fc.AddImport(module)
		if alias != module {
			e.fc.AddAlias(alias, module)
		}
	}
}

// importFromStatement handles absolute and relative "from M import N [as A]",
// including star imports and module-less relative forms.
func (e *pyExtractor) importFromStatement(node *sitter.Node) {
	moduleName, level := "", 0
	if moduleNode := node.ChildByFieldName("module_name"); moduleNode != nil {
		switch moduleNode.Type() {
		case "relative_import":
			for i := 0; i < int(moduleNode.ChildCount()); i++ {
				part := moduleNode.Child(i)
				switch part.Type() {
				case "import_prefix":
					level = strings.Count(e.text(part), ".")
				case "dotted_name":
					moduleName = e.text(part)
				}
			}
		default:
			moduleName = e.text(moduleNode)
		}
	}

	type importedName struct{ name, alias string }
	names := make([]importedName, 0)
	star := false
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "wildcard_import" {
			star = true
			continue
		}
		if node.FieldNameForChild(i) != "name" {
			continue
		}
		switch child.Type() {
		case "aliased_import":
			imported := importedName{}
			if nameNode := child.ChildByFieldName("name"); nameNode != nil {
				imported.name = e.text(nameNode)
			}
			if aliasNode := child.ChildByFieldName("alias"); aliasNode != nil {
				imported.alias = e.text(aliasNode)
			}
			if imported.name != "" {
				names = append(names, imported)
			}
		case "dotted_name", "identifier":
			if name := e.text(child); name != "" {
				names = append(names, importedName{name: name})
			}
		}
	}

	switch {
	case moduleName != "":
		absolute := moduleName
		if level > 0 {
			absolute = parser.ResolveRelativeImport(moduleName, e.fc.Module, e.fc.IsPackage, level)
		}
		if star {
			e.fc.AddImport(absolute + ".*")
		}
		for _, imported := range names {
			e.bindImport(imported.name, imported.alias, absolute+"."+imported.name)
		}
	case level > 0:
		if star {
			base := parser.ResolveRelativeName("", e.fc.Module, e.fc.IsPackage, level)
			e.fc.AddImport(parser.QualifiedName(base, "*"))
		}
		for _, imported := range names {
			target := parser.ResolveRelativeName(imported.name, e.fc.Module, e.fc.IsPackage, level)
			e.bindImport(imported.name, imported.alias, target)
		}
	}
}

func (e *pyExtractor) bindImport(name, alias, target string) {
	if alias == "" {
		alias = name
	}
	if alias != name {
		e.fc.AddAlias(alias, target)
	}
	e.fc.AddImport(target)
}

// assignment runs the partial and constant/alias detectors on one assignment
// statement and returns the assigned value expression.
func (e *pyExtractor) assignment(node *sitter.Node) *sitter.Node {
	targets := make([]string, 0, 1)
	value := node
	for value != nil && value.Type() == "assignment" {
		if left := value.ChildByFieldName("left"); left != nil {
			targets = append(targets, assignmentTargets(left, e.src)...)
		}
		value = value.ChildByFieldName("right")
	}
	if value == nil || len(targets) == 0 {
		return value
	}

	e.detectPartial(node, targets, value)
	e.detectConstant(targets, value)
	return value
}

// detectPartial records name = functools.partial(fn, *args, **kwargs).
func (e *pyExtractor) detectPartial(stmt *sitter.Node, targets []string, value *sitter.Node) {
	call := unwrapParens(value)
	if call == nil || call.Type() != "call" {
		return
	}
	callee, ok := dottedName(call.ChildByFieldName("function"), e.src)
	if !ok || (callee != "functools.partial" && callee != "partial") {
		return
	}

	positional, keywords := callArguments(call)
	if len(positional) == 0 {
		return
	}
	wrapped, ok := dottedName(positional[0], e.src)
	if !ok {
		return
	}

	args := make([]any, 0, len(positional)-1)
	for _, arg := range positional[1:] {
		args = append(args, literalValue(arg, e.src))
	}
	kwargs := make(map[string]any, len(keywords))
	for _, kw := range keywords {
		nameNode := kw.ChildByFieldName("name")
		valueNode := kw.ChildByFieldName("value")
		if nameNode == nil || valueNode == nil {
			continue
		}
		kwargs[e.text(nameNode)] = literalValue(valueNode, e.src)
	}

	for _, target := range targets {
		e.fc.AddPartial(target, parser.PartialBinding{Func: wrapped, Args: args, Kwargs: kwargs})
		e.fc.AddFunction(target)
		e.functions = append(e.functions, parser.Function{
			Name:              target,
			Module:            e.fc.Module,
			Line:              e.line(stmt),
			Calls:             parser.OrderedSet{wrapped},
			ParameterDefaults: make(map[string]any),
			IsPartial:         true,
		})
	}
}

// detectConstant records string constants and module aliases such as c = components.
func (e *pyExtractor) detectConstant(targets []string, value *sitter.Node) {
	if s, ok := stringLiteral(value, e.src); ok {
		for _, target := range targets {
			e.fc.AddConstant(target, s)
		}
		return
	}

	name, ok := dottedName(value, e.src)
	if !ok {
		return
	}
	full := name
	if !strings.Contains(name, ".") {
		full = e.fc.Module + "." + name
	}
	for _, target := range targets {
		e.fc.AddAlias(target, full)
	}
}

func (e *pyExtractor) classDefinition(node *sitter.Node) {
	nameNode := node.ChildByFieldName("name")
	body := node.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return
	}
	className := e.text(nameNode)

	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		switch child.Type() {
		case "function_definition":
			e.functionDefinition(child, nil, className)
		case "decorated_definition":
			if def := child.ChildByFieldName("definition"); def != nil && def.Type() == "function_definition" {
				e.functionDefinition(def, decoratorNodes(child), className)
			}
		}
	}
}

func (e *pyExtractor) functionDefinition(node *sitter.Node, decorators []*sitter.Node, className string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := e.text(nameNode)
	if className != "" {
		name = className + "." + name
	}

	scope := &funcScope{defaults: parameterDefaults(node.ChildByFieldName("parameters"), e.src)}
	if body := node.ChildByFieldName("body"); body != nil {
		e.walkBlock(body, scope)
	}

	fn := parser.Function{
		Name:              name,
		Module:            e.fc.Module,
		Line:              e.line(node),
		Calls:             scope.calls,
		ParameterDefaults: scope.defaults,
		ComponentGets:     scope.componentGets,
	}
	for _, decorator := range decorators {
		if decoratorName, ok := decoratorName(decorator, e.src); ok {
			fn.Decorators.Add(decoratorName)
		}
	}
	if returnType := node.ChildByFieldName("return_type"); returnType != nil {
		annotation := annotationString(returnType, e.src)
		fn.ReturnAnnotation = &annotation
	}

	e.fc.AddFunction(name)
	e.functions = append(e.functions, fn)
}

// walkBlock visits expression statements, assignments, returns, if/elif/else
// branches and for bodies. while, try and with blocks are not entered, and
// nested definitions are not visited.
func (e *pyExtractor) walkBlock(block *sitter.Node, scope *funcScope) {
	for i := 0; i < int(block.NamedChildCount()); i++ {
		e.walkStatement(block.NamedChild(i), scope)
	}
}

func (e *pyExtractor) walkStatement(node *sitter.Node, scope *funcScope) {
	switch node.Type() {
	case "expression_statement":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			switch child.Type() {
			case "assignment":
				if value := e.assignment(child); value != nil {
					e.walkExpr(value, scope)
				}
			case "augmented_assignment":
			default:
				e.walkExpr(child, scope)
			}
		}
	case "return_statement":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			e.walkExpr(node.NamedChild(i), scope)
		}
	case "if_statement":
		if cond := node.ChildByFieldName("condition"); cond != nil {
			e.walkExpr(cond, scope)
		}
		if body := node.ChildByFieldName("consequence"); body != nil {
			e.walkBlock(body, scope)
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			if node.FieldNameForChild(i) != "alternative" {
				continue
			}
			clause := node.Child(i)
			switch clause.Type() {
			case "elif_clause":
				// Only the if test is walked; elif tests are not.
				if body := clause.ChildByFieldName("consequence"); body != nil {
					e.walkBlock(body, scope)
				}
			case "else_clause":
				if body := clause.ChildByFieldName("body"); body != nil {
					e.walkBlock(body, scope)
				}
			}
		}
	case "for_statement":
		if iter := node.ChildByFieldName("right"); iter != nil {
			e.walkExpr(iter, scope)
		}
		if body := node.ChildByFieldName("body"); body != nil {
			e.walkBlock(body, scope)
		}
	}
}

// walkExpr records calls and get_component references. It descends into
// callee expressions, positional arguments, binary operands and list/tuple
// elements.
func (e *pyExtractor) walkExpr(node *sitter.Node, scope *funcScope) {
	if node == nil {
		return
	}
	switch node.Type() {
	case "call":
		fnNode := node.ChildByFieldName("function")
		positional, _ := callArguments(node)
		if name, ok := dottedName(fnNode, e.src); ok {
			scope.calls.Add(name)
			if (name == "get_component" || name == "gf.get_component") && len(positional) > 0 {
				scope.componentGets.Add(e.componentArgument(positional[0], scope))
			}
		}
		e.walkExpr(fnNode, scope)
		for _, arg := range positional {
			e.walkExpr(arg, scope)
		}
	case "attribute":
		e.walkExpr(node.ChildByFieldName("object"), scope)
	case "binary_operator":
		e.walkExpr(node.ChildByFieldName("left"), scope)
		e.walkExpr(node.ChildByFieldName("right"), scope)
	case "list", "tuple", "expression_list":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			e.walkExpr(node.NamedChild(i), scope)
		}
	case "parenthesized_expression":
		e.walkExpr(unwrapParens(node), scope)
	}
}

// componentArgument resolves the first argument of get_component: a string
// literal verbatim, a bare name through the function's parameter defaults
// and then the module constants, falling back to the name itself.
func (e *pyExtractor) componentArgument(arg *sitter.Node, scope *funcScope) string {
	if s, ok := stringLiteral(arg, e.src); ok {
		return s
	}
	name, ok := dottedName(arg, e.src)
	if !ok {
		return "unknown"
	}
	if value, ok := scope.defaults[name]; ok {
		if s, ok := value.(string); ok {
			return s
		}
		text := jsonText(value)
		if constant, ok := e.fc.Constant(text); ok {
			return constant
		}
		return text
	}
	if constant, ok := e.fc.Constant(name); ok {
		return constant
	}
	return name
}
