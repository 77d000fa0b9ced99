package render

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

type Diagnostic struct {
	Message string
	Line    uint32
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s", d.Line+1, d.Message)
}

const importNamesQuery = `(import_specifier name: (identifier) @name)`

const referenceQuery = `[(identifier) (type_identifier) (shorthand_property_identifier)] @ref`

// Lint checks generated TypeScript (TSX for .tsx paths). It reports the
// first syntax error and every named import the file never references.
func Lint(filePath string, content []byte) ([]Diagnostic, error) {
	lang := typescript.GetLanguage()
	if strings.HasSuffix(filePath, ".tsx") {
		lang = tsx.GetLanguage()
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	root := tree.RootNode()

	var diags []Diagnostic
	if root.HasError() {
		line := uint32(0)
		if n := firstError(root); n != nil {
			line = n.StartPoint().Row
		}
		diags = append(diags, Diagnostic{Message: "syntax error", Line: line})
	}

	imported, err := captures(importNamesQuery, lang, root)
	if err != nil {
		return nil, err
	}
	if len(imported) == 0 {
		return diags, nil
	}
	refs, err := captures(referenceQuery, lang, root)
	if err != nil {
		return nil, err
	}
	used := make(map[string]bool)
	for _, n := range refs {
		if !insideImport(n) {
			used[n.Content(content)] = true
		}
	}
	for _, n := range imported {
		if name := n.Content(content); !used[name] {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("unused import %s", name),
				Line:    n.StartPoint().Row,
			})
		}
	}
	return diags, nil
}

func captures(query string, lang *sitter.Language, root *sitter.Node) ([]*sitter.Node, error) {
	q, err := sitter.NewQuery([]byte(query), lang)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	defer q.Close()
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	var out []*sitter.Node
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			out = append(out, c.Node)
		}
	}
	return out, nil
}

func insideImport(n *sitter.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "import_statement" {
			return true
		}
	}
	return false
}

func firstError(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.HasError() || child.IsError() || child.IsMissing() {
			if found := firstError(child); found != nil {
				return found
			}
		}
	}
	return nil
}
