package pymetrics

import "strings"

const (
	commentKind             = "comment"
	expressionStatementKind = "expression_statement"
	stringKind              = "string"
	concatenatedStringKind  = "concatenated_string"
)

// llocKinds are the node kinds that each count as one logical line:
// simple statements plus compound headers and clauses.
var llocKinds = map[string]struct{}{
	"expression_statement":    {},
	"return_statement":        {},
	"pass_statement":          {},
	"break_statement":         {},
	"continue_statement":      {},
	"raise_statement":         {},
	"import_statement":        {},
	"import_from_statement":   {},
	"future_import_statement": {},
	"global_statement":        {},
	"nonlocal_statement":      {},
	"assert_statement":        {},
	"delete_statement":        {},
	"if_statement":            {},
	"elif_clause":             {},
	"else_clause":             {},
	"for_statement":           {},
	"while_statement":         {},
	"try_statement":           {},
	"except_clause":           {},
	"except_group_clause":     {},
	"finally_clause":          {},
	"with_statement":          {},
	"function_definition":     {},
	"class_definition":        {},
	"match_statement":         {},
	"case_clause":             {},
}

// computeRaw classifies every physical line exactly once: blank first,
// then string-literal lines, then comment-only lines; what remains is
// source. Lines with trailing comments stay source lines but still count
// toward the comment total.
func computeRaw(t *sourceTree) Raw {
	commentRows := make(map[int]bool)
	commentOnly := make(map[int]bool)
	stringRows := make(map[int]bool)
	logical := 0

	for i := range t.nodes {
		n := &t.nodes[i]

		if _, ok := llocKinds[n.kind]; ok {
			logical++
		}

		switch n.kind {
		case commentKind:
			for row := n.startRow; row <= n.endRow; row++ {
				commentRows[row] = true
			}

			if t.onlyWhitespaceBefore(n.startRow, n.startCol) {
				commentOnly[n.startRow] = true
			}
		case expressionStatementKind:
			lit := t.standaloneString(i)
			if lit == rootParent {
				continue
			}

			for row := t.nodes[lit].startRow; row <= t.nodes[lit].endRow; row++ {
				stringRows[row] = true
			}
		}
	}

	total := len(t.lines)
	blank, multi, commentOnlyCount := 0, 0, 0

	for row, line := range t.lines {
		switch {
		case strings.TrimSpace(line) == "":
			blank++
		case stringRows[row]:
			multi++
		case commentOnly[row]:
			commentOnlyCount++
		}
	}

	source := total - blank - multi - commentOnlyCount
	if source < 0 {
		source = 0
	}

	return Raw{
		Total:   total,
		Logical: logical,
		Source:  source,
		Comment: len(commentRows),
		Multi:   multi,
		Blank:   blank,
	}
}

// standaloneString returns the string literal carried by an expression
// statement whose sole named child is a string, or rootParent otherwise.
func (t *sourceTree) standaloneString(i int) int {
	named := t.namedChildren(i)
	if len(named) != 1 {
		return rootParent
	}

	switch t.nodes[named[0]].kind {
	case stringKind, concatenatedStringKind:
		return named[0]
	}

	return rootParent
}

func (t *sourceTree) onlyWhitespaceBefore(row, col int) bool {
	if row >= len(t.lines) {
		return true
	}

	line := t.lines[row]
	if col > len(line) {
		col = len(line)
	}

	return strings.TrimSpace(line[:col]) == ""
}
