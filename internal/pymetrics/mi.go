package pymetrics

import "math"

// Maintainability-index formula constants.
const (
	miMax              = 100.0
	miBase             = 171.0
	miVolumeWeight     = 5.2
	miComplexityWeight = 0.23
	miSlocWeight       = 16.2
	miCommentWeight    = 50.0
	miCommentScale     = 2.46
	degreesPerRadian   = 180.0
	percentScale       = 100.0
)

// computeMaintainability derives the 0-100 maintainability index from
// Halstead volume, total cyclomatic complexity and the line counts.
// Degenerate inputs, no volume or no source lines, score as perfectly
// maintainable.
func computeMaintainability(volume float64, complexity int, raw Raw) float64 {
	sloc := float64(raw.Source)
	if volume <= 0 || sloc <= 0 {
		return miMax
	}

	perCM := float64(raw.Comment+raw.Multi) / sloc * percentScale
	commentTerm := miCommentWeight * math.Sin(math.Sqrt(miCommentScale*perCM*math.Pi/degreesPerRadian))

	mi := miBase -
		miVolumeWeight*math.Log(volume) -
		miComplexityWeight*float64(complexity) -
		miSlocWeight*math.Log(sloc) +
		commentTerm

	mi = mi * miMax / miBase

	switch {
	case mi < 0:
		return 0
	case mi > miMax:
		return miMax
	}

	return mi
}
