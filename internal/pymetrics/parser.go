// Package pymetrics derives per-snapshot quality metrics from Python
// source: maintainability index, cyclomatic complexity, raw line counts,
// structural counts and Halstead measures. Analysis is pure; identical
// text always yields identical numbers.
package pymetrics

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexaandru/go-sitter-forest/python"
	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/kaizenlab/codedrift/pkg/safeconv"
)

// ErrParse marks source the Python grammar could not parse.
var ErrParse = errors.New("python parse failed")

const (
	errorKind  = "ERROR"
	moduleKind = "module"

	// rootParent marks a node with no syntactic parent.
	rootParent = -1
)

// Parser owns a tree-sitter parser configured for Python. It is not safe
// for concurrent use; the engine analyzes one snapshot at a time.
type Parser struct {
	inner *sitter.Parser
}

// NewParser creates a parser with the Python grammar loaded.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(sitter.NewLanguage(python.GetLanguage()))

	return &Parser{inner: p}
}

// Parse flattens source into an immutable node table. Source containing
// syntax errors yields ErrParse.
func (p *Parser) Parse(ctx context.Context, src []byte) (*sourceTree, error) {
	tree, err := p.inner.ParseString(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	root := tree.RootNode()
	if root.IsNull() {
		return nil, fmt.Errorf("%w: no root node", ErrParse)
	}

	st := &sourceTree{src: src, lines: splitLines(src)}

	flattenErr := st.flatten(root, rootParent)
	if flattenErr != nil {
		return nil, flattenErr
	}

	return st, nil
}

// sourceTree is a flattened syntax tree: nodes in depth-first preorder,
// each holding the index of its syntactic parent. The table is built in
// one pass and consumed read-only by every metric family.
type sourceTree struct {
	src   []byte
	lines []string
	nodes []sourceNode
}

// sourceNode is one row of the flattened table.
type sourceNode struct {
	kind     string
	parent   int
	children []int
	named    bool

	startByte int
	endByte   int
	startRow  int
	endRow    int
	startCol  int
}

func (t *sourceTree) flatten(n sitter.Node, parent int) error {
	// The grammar recovers broken source two ways: ERROR nodes and
	// MISSING tokens inserted under an ordinary kind. Both mean the
	// snapshot is not valid Python.
	if n.Type() == errorKind || n.IsMissing() {
		return fmt.Errorf("%w: syntax error at line %d", ErrParse, safeconv.MustUintToInt(n.StartPoint().Row)+1)
	}

	idx := len(t.nodes)
	t.nodes = append(t.nodes, sourceNode{
		kind:      n.Type(),
		parent:    parent,
		named:     n.IsNamed(),
		startByte: safeconv.MustUintToInt(n.StartByte()),
		endByte:   safeconv.MustUintToInt(n.EndByte()),
		startRow:  safeconv.MustUintToInt(n.StartPoint().Row),
		endRow:    safeconv.MustUintToInt(n.EndPoint().Row),
		startCol:  safeconv.MustUintToInt(n.StartPoint().Column),
	})

	if parent != rootParent {
		t.nodes[parent].children = append(t.nodes[parent].children, idx)
	}

	for i := range n.ChildCount() {
		childErr := t.flatten(n.Child(i), idx)
		if childErr != nil {
			return childErr
		}
	}

	return nil
}

// text returns the source slice a node spans.
func (t *sourceTree) text(i int) string {
	n := &t.nodes[i]

	return string(t.src[n.startByte:n.endByte])
}

// namedChildren returns the indices of the named children of node i.
func (t *sourceTree) namedChildren(i int) []int {
	var out []int

	for _, c := range t.nodes[i].children {
		if t.nodes[c].named {
			out = append(out, c)
		}
	}

	return out
}

// childOfKind returns the first child of node i with the given kind, or
// rootParent when none exists.
func (t *sourceTree) childOfKind(i int, kind string) int {
	for _, c := range t.nodes[i].children {
		if t.nodes[c].kind == kind {
			return c
		}
	}

	return rootParent
}

// splitLines splits source into physical lines, ignoring a trailing
// final newline so that "a\n" counts as one line.
func splitLines(src []byte) []string {
	if len(src) == 0 {
		return nil
	}

	lines := strings.Split(string(src), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}
