package languages

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/skelly-dev/picgraph/internal/parser"
)

// unknownLiteral stands in for expressions that have no literal form.
const unknownLiteral = "<unknown>"

func unwrapParens(node *sitter.Node) *sitter.Node {
	for node != nil && node.Type() == "parenthesized_expression" {
		var inner *sitter.Node
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if child := node.NamedChild(i); child.Type() != "comment" {
				inner = child
				break
			}
		}
		node = inner
	}
	return node
}

// dottedName renders identifiers and attribute chains. When the base of an
// attribute has no name (a call, a subscript) only the attribute is kept.
func dottedName(node *sitter.Node, src []byte) (string, bool) {
	node = unwrapParens(node)
	if node == nil {
		return "", false
	}
	switch node.Type() {
	case "identifier":
		return node.Content(src), true
	case "attribute":
		attr := node.ChildByFieldName("attribute")
		if attr == nil {
			return "", false
		}
		if base, ok := dottedName(node.ChildByFieldName("object"), src); ok {
			return base + "." + attr.Content(src), true
		}
		return attr.Content(src), true
	}
	return "", false
}

// callArguments splits a call's argument list into positional arguments and
// keyword_argument nodes. Splats are dropped.
func callArguments(call *sitter.Node) (positional, keywords []*sitter.Node) {
	args := call.ChildByFieldName("arguments")
	if args == nil || args.Type() != "argument_list" {
		return nil, nil
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		switch child.Type() {
		case "keyword_argument":
			keywords = append(keywords, child)
		case "list_splat", "dictionary_splat", "comment":
		default:
			positional = append(positional, child)
		}
	}
	return positional, keywords
}

func assignmentTargets(left *sitter.Node, src []byte) []string {
	switch left.Type() {
	case "identifier":
		return []string{left.Content(src)}
	case "pattern_list", "tuple_pattern", "list_pattern", "tuple", "list", "expression_list":
		names := make([]string, 0, left.NamedChildCount())
		for i := 0; i < int(left.NamedChildCount()); i++ {
			if child := left.NamedChild(i); child.Type() == "identifier" {
				names = append(names, child.Content(src))
			}
		}
		return names
	}
	return nil
}

func decoratorNodes(decorated *sitter.Node) []*sitter.Node {
	var decorators []*sitter.Node
	for i := 0; i < int(decorated.NamedChildCount()); i++ {
		if child := decorated.NamedChild(i); child.Type() == "decorator" {
			decorators = append(decorators, child)
		}
	}
	return decorators
}

// decoratorName returns "name" for @name or @a.b and "name(...)" for a call
// decorator.
func decoratorName(decorator *sitter.Node, src []byte) (string, bool) {
	var expr *sitter.Node
	for i := 0; i < int(decorator.NamedChildCount()); i++ {
		if child := decorator.NamedChild(i); child.Type() != "comment" {
			expr = child
			break
		}
	}
	expr = unwrapParens(expr)
	if expr == nil {
		return "", false
	}
	if expr.Type() == "call" {
		name, ok := dottedName(expr.ChildByFieldName("function"), src)
		if !ok {
			return "", false
		}
		return name + parser.CallMarker, true
	}
	return dottedName(expr, src)
}

// parameterDefaults collects default values of parameters, positional and
// keyword-only alike.
func parameterDefaults(params *sitter.Node, src []byte) map[string]any {
	defaults := make(map[string]any)
	if params == nil {
		return defaults
	}
	for i := 0; i < int(params.NamedChildCount()); i++ {
		param := params.NamedChild(i)
		if param.Type() != "default_parameter" && param.Type() != "typed_default_parameter" {
			continue
		}
		nameNode := param.ChildByFieldName("name")
		valueNode := param.ChildByFieldName("value")
		if nameNode == nil || valueNode == nil || nameNode.Type() != "identifier" {
			continue
		}
		defaults[nameNode.Content(src)] = literalValue(valueNode, src)
	}
	return defaults
}

// stringLiteral decodes plain and raw string literals, including implicit
// concatenation. f-strings and bytes do not count.
func stringLiteral(node *sitter.Node, src []byte) (string, bool) {
	node = unwrapParens(node)
	if node == nil {
		return "", false
	}
	switch node.Type() {
	case "string":
		return decodeString(node.Content(src))
	case "concatenated_string":
		var b strings.Builder
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "comment" {
				continue
			}
			part, ok := stringLiteral(child, src)
			if !ok {
				return "", false
			}
			b.WriteString(part)
		}
		return b.String(), true
	}
	return "", false
}

var pythonEscapes = strings.NewReplacer(
	`\\`, `\`,
	`\n`, "\n",
	`\t`, "\t",
	`\r`, "\r",
	`\'`, `'`,
	`\"`, `"`,
	`\0`, "\x00",
)

func decodeString(raw string) (string, bool) {
	quote := strings.IndexAny(raw, `'"`)
	if quote < 0 {
		return "", false
	}
	prefix := strings.ToLower(raw[:quote])
	if strings.ContainsAny(prefix, "fb") {
		return "", false
	}
	body := raw[quote:]
	for _, delim := range []string{`"""`, `'''`, `"`, `'`} {
		if len(body) >= 2*len(delim) && strings.HasPrefix(body, delim) && strings.HasSuffix(body, delim) {
			body = body[len(delim) : len(body)-len(delim)]
			break
		}
	}
	if strings.Contains(prefix, "r") {
		return body, true
	}
	return pythonEscapes.Replace(body), true
}

// literalValue converts an expression to the JSON value recorded for partial
// arguments and parameter defaults. Names become their dotted string and any
// other expression becomes "<unknown>".
func literalValue(node *sitter.Node, src []byte) any {
	node = unwrapParens(node)
	if node == nil {
		return unknownLiteral
	}
	if s, ok := stringLiteral(node, src); ok {
		return s
	}
	switch node.Type() {
	case "integer":
		return integerValue(node.Content(src))
	case "float":
		return floatValue(node.Content(src))
	case "true":
		return true
	case "false":
		return false
	case "none":
		return nil
	case "unary_operator":
		arg := unwrapParens(node.ChildByFieldName("argument"))
		op := node.ChildByFieldName("operator")
		if arg == nil || op == nil || op.Type() != "-" {
			break
		}
		switch v := literalValue(arg, src).(type) {
		case int64:
			return -v
		case float64:
			return -v
		}
	case "identifier", "attribute":
		if name, ok := dottedName(node, src); ok {
			return name
		}
	}
	return unknownLiteral
}

func integerValue(text string) any {
	clean := strings.ReplaceAll(text, "_", "")
	lower := strings.ToLower(clean)
	if strings.HasSuffix(lower, "j") {
		return complexText(clean[:len(clean)-1])
	}
	if strings.HasSuffix(lower, "l") {
		clean = clean[:len(clean)-1]
	}
	if v, err := strconv.ParseInt(clean, 0, 64); err == nil {
		return v
	}
	return text
}

func floatValue(text string) any {
	clean := strings.ReplaceAll(text, "_", "")
	if strings.HasSuffix(strings.ToLower(clean), "j") {
		return complexText(clean[:len(clean)-1])
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return text
	}
	return v
}

func complexText(imag string) string {
	if v, err := strconv.ParseFloat(imag, 64); err == nil {
		return fmt.Sprintf("(0+%sj)", strconv.FormatFloat(v, 'g', -1, 64))
	}
	return fmt.Sprintf("(0+%sj)", imag)
}

// jsonText renders a non-string default as JSON text (null, true, 2.0). The
// result is the get_component name unless a module constant of that name
// exists.
func jsonText(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		text := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(text, ".eE") {
			text += ".0"
		}
		return text
	case string:
		return v
	}
	return fmt.Sprint(v)
}

// annotationString renders a return annotation as readable text.
func annotationString(node *sitter.Node, src []byte) string {
	node = unwrapParens(node)
	if node == nil {
		return unknownLiteral
	}
	switch node.Type() {
	case "type":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if child := node.NamedChild(i); child.Type() != "comment" {
				return annotationString(child, src)
			}
		}
		return unknownLiteral
	case "identifier":
		return node.Content(src)
	case "attribute":
		object := node.ChildByFieldName("object")
		attr := node.ChildByFieldName("attribute")
		if object == nil || attr == nil {
			return unknownLiteral
		}
		return annotationString(object, src) + "." + attr.Content(src)
	case "member_type":
		parts := make([]string, 0, node.NamedChildCount())
		for i := 0; i < int(node.NamedChildCount()); i++ {
			parts = append(parts, annotationString(node.NamedChild(i), src))
		}
		return strings.Join(parts, ".")
	case "subscript":
		value := node.ChildByFieldName("value")
		if value == nil {
			return unknownLiteral
		}
		var subscripts []*sitter.Node
		for i := 0; i < int(node.ChildCount()); i++ {
			if node.FieldNameForChild(i) == "subscript" {
				subscripts = append(subscripts, node.Child(i))
			}
		}
		return subscriptString(annotationString(value, src), subscripts, src)
	case "generic_type":
		var base string
		var params []*sitter.Node
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "type_parameter" {
				for j := 0; j < int(child.NamedChildCount()); j++ {
					params = append(params, child.NamedChild(j))
				}
				continue
			}
			if base == "" {
				base = annotationString(child, src)
			}
		}
		if base == "" {
			return unknownLiteral
		}
		return subscriptString(base, params, src)
	case "union_type":
		parts := make([]string, 0, 2)
		for i := 0; i < int(node.NamedChildCount()); i++ {
			parts = append(parts, annotationString(node.NamedChild(i), src))
		}
		return strings.Join(parts, " | ")
	case "binary_operator":
		op := node.ChildByFieldName("operator")
		if op == nil || op.Type() != "|" {
			return unknownLiteral
		}
		return annotationString(node.ChildByFieldName("left"), src) + " | " + annotationString(node.ChildByFieldName("right"), src)
	case "tuple":
		return "(" + joinAnnotations(node, src) + ")"
	case "list":
		return "[" + joinAnnotations(node, src) + "]"
	case "string", "concatenated_string":
		if s, ok := stringLiteral(node, src); ok {
			return strconv.Quote(s)
		}
	case "integer", "float":
		return node.Content(src)
	case "true":
		return "true"
	case "false":
		return "false"
	case "none":
		return "None"
	}
	return unknownLiteral
}

func subscriptString(base string, items []*sitter.Node, src []byte) string {
	switch len(items) {
	case 0:
		return base
	case 1:
		return base + "[" + annotationString(items[0], src) + "]"
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, annotationString(item, src))
	}
	return base + "[(" + strings.Join(parts, ", ") + ")]"
}

func joinAnnotations(node *sitter.Node, src []byte) string {
	parts := make([]string, 0, node.NamedChildCount())
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		parts = append(parts, annotationString(child, src))
	}
	return strings.Join(parts, ", ")
}

// describeSyntaxError reports the position of the first error or missing node.
func describeSyntaxError(root *sitter.Node, lineOffset int) string {
	node := firstErrorNode(root)
	if node == nil {
		return "invalid syntax"
	}
	pos := node.StartPoint()
	if node.IsMissing() {
		return fmt.Sprintf("missing %s at line %d, column %d", node.Type(), int(pos.Row)+1+lineOffset, pos.Column+1)
	}
	return fmt.Sprintf("invalid syntax at line %d, column %d", int(pos.Row)+1+lineOffset, pos.Column+1)
}

func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if node.Type() == "ERROR" || node.IsMissing() {
		return node
	}
	if !node.HasError() {
		return nil
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if found := firstErrorNode(node.Child(i)); found != nil {
			return found
		}
	}
	return node
}
