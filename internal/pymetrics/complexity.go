package pymetrics

const (
	functionDefinitionKind = "function_definition"
	classDefinitionKind    = "class_definition"
)

// decisionKinds are the node kinds that add one branch to the enclosing
// function's cyclomatic complexity.
var decisionKinds = map[string]struct{}{
	"if_statement":           {},
	"elif_clause":            {},
	"conditional_expression": {},
	"for_statement":          {},
	"while_statement":        {},
	"except_clause":          {},
	"case_clause":            {},
	"boolean_operator":       {},
	"for_in_clause":          {},
	"if_clause":              {},
}

// computeComplexity sums per-function cyclomatic complexity: one base
// point per function definition plus one per decision point inside it,
// attributed to the nearest enclosing function. Decision points at
// module level belong to no unit and are not counted.
func computeComplexity(t *sourceTree) int {
	total := 0

	for i := range t.nodes {
		kind := t.nodes[i].kind

		if kind == functionDefinitionKind {
			total++ // Base complexity.

			continue
		}

		if _, ok := decisionKinds[kind]; !ok {
			continue
		}

		if t.enclosingFunction(i) != rootParent {
			total++
		}
	}

	return total
}

// enclosingFunction walks the parent chain from node i and returns the
// index of the nearest function definition, or rootParent when the node
// sits at module level.
func (t *sourceTree) enclosingFunction(i int) int {
	for p := t.nodes[i].parent; p != rootParent; p = t.nodes[p].parent {
		if t.nodes[p].kind == functionDefinitionKind {
			return p
		}
	}

	return rootParent
}
