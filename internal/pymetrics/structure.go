package pymetrics

const (
	blockKind               = "block"
	decoratedDefinitionKind = "decorated_definition"
)

// computeStructural counts definitions using the parent table: function
// and class definitions, methods, and docstring-bearing definitions
// (module included).
func computeStructural(t *sourceTree) Structural {
	var s Structural

	for i := range t.nodes {
		switch t.nodes[i].kind {
		case functionDefinitionKind:
			s.Functions++

			if t.isMethod(i) {
				s.Methods++
			}

			if t.hasDocstring(i) {
				s.Docstrings++
			}
		case classDefinitionKind:
			s.Classes++

			if t.hasDocstring(i) {
				s.Docstrings++
			}
		case moduleKind:
			if t.hasDocstring(i) {
				s.Docstrings++
			}
		}
	}

	return s
}

// isMethod reports whether function i is defined directly inside a class
// body, looking through block and decorator wrappers.
func (t *sourceTree) isMethod(i int) bool {
	for p := t.nodes[i].parent; p != rootParent; p = t.nodes[p].parent {
		switch t.nodes[p].kind {
		case blockKind, decoratedDefinitionKind:
			continue
		case classDefinitionKind:
			return true
		default:
			return false
		}
	}

	return false
}

// hasDocstring reports whether the first statement of a definition body
// is a standalone string literal. Comments preceding it are skipped.
func (t *sourceTree) hasDocstring(i int) bool {
	body := i
	if t.nodes[i].kind != moduleKind {
		body = t.childOfKind(i, blockKind)
		if body == rootParent {
			return false
		}
	}

	for _, c := range t.namedChildren(body) {
		if t.nodes[c].kind == commentKind {
			continue
		}

		return t.nodes[c].kind == expressionStatementKind && t.standaloneString(c) != rootParent
	}

	return false
}
