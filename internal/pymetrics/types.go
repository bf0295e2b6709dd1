package pymetrics

import "math"

// Raw holds the line-oriented counts for one snapshot.
type Raw struct {
	Total   int // physical lines
	Logical int // one per statement or clause header
	Source  int // total minus blank, comment-only and string-literal lines
	Comment int // lines containing a comment, trailing included
	Multi   int // lines of standalone string-literal statements
	Blank   int
}

// Structural holds the definition counts for one snapshot.
type Structural struct {
	Functions  int
	Classes    int
	Methods    int
	Docstrings int
}

// Halstead holds the operator/operand inventory measures. The family is
// either fully defined or absent as a whole.
type Halstead struct {
	DistinctOperators int // h1
	DistinctOperands  int // h2
	TotalOperators    int // N1
	TotalOperands     int // N2
	Volume            float64
	Difficulty        float64
	Effort            float64
	Time              float64
	Bugs              float64
}

// MetricSet is the full measurement of one snapshot. Halstead is nil
// when the snapshot has an empty operator/operand vocabulary.
type MetricSet struct {
	MaintainabilityIndex float64
	Complexity           int
	Raw                  Raw
	Structural           Structural
	Halstead             *Halstead
}

// MetricNames lists the persisted metric identifiers in column order.
var MetricNames = []string{
	"mi", "cc",
	"loc", "lloc", "sloc", "comments", "multi", "blank",
	"n_functions", "n_classes", "n_methods", "n_docstrings",
	"h1", "h2", "N1", "N2",
	"h_volume", "h_difficulty", "h_effort", "t", "b",
}

// HalsteadStart is the index in MetricNames of the first Halstead field.
const HalsteadStart = 12

// Values returns the metric values aligned with MetricNames. Halstead
// entries are NaN when the family is undefined.
func (m *MetricSet) Values() []float64 {
	v := make([]float64, len(MetricNames))

	v[0] = m.MaintainabilityIndex
	v[1] = float64(m.Complexity)
	v[2] = float64(m.Raw.Total)
	v[3] = float64(m.Raw.Logical)
	v[4] = float64(m.Raw.Source)
	v[5] = float64(m.Raw.Comment)
	v[6] = float64(m.Raw.Multi)
	v[7] = float64(m.Raw.Blank)
	v[8] = float64(m.Structural.Functions)
	v[9] = float64(m.Structural.Classes)
	v[10] = float64(m.Structural.Methods)
	v[11] = float64(m.Structural.Docstrings)

	if m.Halstead == nil {
		for i := HalsteadStart; i < len(v); i++ {
			v[i] = math.NaN()
		}

		return v
	}

	v[12] = float64(m.Halstead.DistinctOperators)
	v[13] = float64(m.Halstead.DistinctOperands)
	v[14] = float64(m.Halstead.TotalOperators)
	v[15] = float64(m.Halstead.TotalOperands)
	v[16] = m.Halstead.Volume
	v[17] = m.Halstead.Difficulty
	v[18] = m.Halstead.Effort
	v[19] = m.Halstead.Time
	v[20] = m.Halstead.Bugs

	return v
}
