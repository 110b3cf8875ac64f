package languages

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/skelly-dev/picgraph/internal/parser"
)

// sourceBlock is a chunk of a file that is parsed on its own during recovery.
// line is the 1-based line the chunk starts at.
type sourceBlock struct {
	text string
	line int
}

// splitBlocks cuts source into top-level units: a def, class, import or from
// statement together with its indented continuation, a run of decorators
// attached to the definition that follows it, or any other statement line with
// its indented continuation.
func splitBlocks(content string) []sourceBlock {
	lines := strings.Split(content, "\n")
	if strings.HasSuffix(content, "\n") {
		lines = lines[:len(lines)-1]
	}

	var (
		blocks      []sourceBlock
		current     strings.Builder
		start       int
		indent      int
		inBlock     bool
		inDecorator bool
	)

	flush := func() {
		if strings.TrimSpace(current.String()) != "" {
			blocks = append(blocks, sourceBlock{text: current.String(), line: start})
		}
		current.Reset()
		inBlock = false
		inDecorator = false
	}
	open := func(line string, lineNum, lineIndent int) {
		inBlock = true
		start = lineNum
		indent = lineIndent
		current.WriteString(line)
		current.WriteByte('\n')
	}

	for i, raw := range lines {
		line := strings.TrimSuffix(raw, "\r")
		lineNum := i + 1
		trimmed := strings.TrimLeft(line, " \t\f")
		lineIndent := len(line) - len(trimmed)
		blank := strings.TrimSpace(line) == ""

		if inBlock && (blank || lineIndent > indent) {
			current.WriteString(line)
			current.WriteByte('\n')
			continue
		}

		switch {
		case strings.HasPrefix(trimmed, "@"):
			if !inDecorator {
				flush()
				open(line, lineNum, lineIndent)
				inDecorator = true
				continue
			}
			current.WriteString(line)
			current.WriteByte('\n')
		case startsBlock(trimmed):
			if inDecorator {
				inDecorator = false
				current.WriteString(line)
				current.WriteByte('\n')
				continue
			}
			flush()
			open(line, lineNum, lineIndent)
		default:
			flush()
			if !blank {
				open(line, lineNum, lineIndent)
			}
		}
	}
	flush()

	return blocks
}

func startsBlock(trimmed string) bool {
	for _, keyword := range []string{"def ", "async def ", "class ", "import ", "from "} {
		if strings.HasPrefix(trimmed, keyword) {
			return true
		}
	}
	return false
}

// recoverBlocks parses each block independently. Clean blocks contribute their
// declarations with line numbers shifted to file positions; every failing
// block adds one error to the module.
func recoverBlocks(fc *parser.FileContext, content string) []parser.Function {
	var functions []parser.Function
	failed := 0

	for _, block := range splitBlocks(content) {
		src := []byte(block.text)
		tree, err := parsePython(src)
		if err != nil {
			failed++
			fc.AddError(fmt.Sprintf("parse error at line %d: %v", block.line, err))
			continue
		}

		root := tree.RootNode()
		if root.HasError() {
			failed++
			fc.AddError(fmt.Sprintf("parse error at line %d: %s", block.line, describeSyntaxError(root, block.line-1)))
			tree.Close()
			continue
		}

		ex := newPyExtractor(fc, src, block.line-1)
		ex.visitModule(root)
		functions = append(functions, ex.functions...)
		tree.Close()
	}

	if failed > 0 {
		fc.Logger.Debug("recovered partial parse",
			slog.String("file", fc.Path),
			slog.Int("failed_blocks", failed),
			slog.Int("functions", len(functions)))
	}
	return functions
}
