package pymetrics

import "math"

// Halstead formula constants.
const (
	// operatorPoolDivisor is the divisor in the difficulty formula h1/2 * (N2/h2).
	operatorPoolDivisor = 2.0
	// timePerEffortUnit converts effort into seconds of programming time.
	timePerEffortUnit = 18.0
	// bugsPerVolumeUnit converts volume into an estimated defect count.
	bugsPerVolumeUnit = 3000.0
)

// operatorExprKinds are the expression kinds whose unnamed child tokens
// are Halstead operators and whose leaf named children are operands.
var operatorExprKinds = map[string]struct{}{
	"binary_operator":      {},
	"boolean_operator":     {},
	"comparison_operator":  {},
	"unary_operator":       {},
	"not_operator":         {},
	"augmented_assignment": {},
}

// operandKinds are the leaf kinds counted as Halstead operands.
var operandKinds = map[string]struct{}{
	"identifier":          {},
	"integer":             {},
	"float":               {},
	"string":              {},
	"concatenated_string": {},
	"attribute":           {},
	"true":                {},
	"false":               {},
	"none":                {},
}

// computeHalstead builds operator and operand inventories over the
// snapshot's operator expressions. It returns nil when the vocabulary is
// empty or no distinct operand exists: the family is undefined as a
// whole rather than risking a division by zero.
func computeHalstead(t *sourceTree) *Halstead {
	operators := make(map[string]int)
	operands := make(map[string]int)

	for i := range t.nodes {
		if _, ok := operatorExprKinds[t.nodes[i].kind]; !ok {
			continue
		}

		for _, c := range t.nodes[i].children {
			child := &t.nodes[c]

			if !child.named {
				operators[t.text(c)]++

				continue
			}

			if _, ok := operandKinds[child.kind]; ok {
				operands[t.text(c)]++
			}
		}
	}

	h1, h2 := len(operators), len(operands)
	if h1+h2 == 0 || h2 == 0 {
		return nil
	}

	n1, n2 := sumCounts(operators), sumCounts(operands)

	volume := float64(n1+n2) * math.Log2(float64(h1+h2))
	difficulty := float64(h1) / operatorPoolDivisor * (float64(n2) / float64(h2))
	effort := difficulty * volume

	return &Halstead{
		DistinctOperators: h1,
		DistinctOperands:  h2,
		TotalOperators:    n1,
		TotalOperands:     n2,
		Volume:            volume,
		Difficulty:        difficulty,
		Effort:            effort,
		Time:              effort / timePerEffortUnit,
		Bugs:              volume / bugsPerVolumeUnit,
	}
}

func sumCounts(m map[string]int) int {
	total := 0
	for _, v := range m {
		total += v
	}

	return total
}
