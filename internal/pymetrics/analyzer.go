package pymetrics

import "context"

// Analyzer computes a MetricSet per Python snapshot. The zero value is
// not usable; construct with NewAnalyzer. Not safe for concurrent use.
type Analyzer struct {
	parser *Parser
}

// NewAnalyzer creates an analyzer with a ready Python parser.
func NewAnalyzer() *Analyzer {
	return &Analyzer{parser: NewParser()}
}

// Analyze parses text and derives every metric family. Unparseable text
// yields ErrParse and no MetricSet; an empty snapshot is valid and
// scores MI 100 with an undefined Halstead family.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*MetricSet, error) {
	tree, err := a.parser.Parse(ctx, []byte(text))
	if err != nil {
		return nil, err
	}

	raw := computeRaw(tree)
	complexity := computeComplexity(tree)
	structural := computeStructural(tree)
	halstead := computeHalstead(tree)

	volume := 0.0
	if halstead != nil {
		volume = halstead.Volume
	}

	return &MetricSet{
		MaintainabilityIndex: computeMaintainability(volume, complexity, raw),
		Complexity:           complexity,
		Raw:                  raw,
		Structural:           structural,
		Halstead:             halstead,
	}, nil
}
