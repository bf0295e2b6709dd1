package pymetrics

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const floatDelta = 1e-9

const branchySource = "def f(x):\n    if x:\n        return 1\n    return 0\n"

const straightSource = "def f(x):\n    return 0\n"

func TestAnalyzeIsDeterministic(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	first, err := a.Analyze(context.Background(), branchySource)
	require.NoError(t, err)

	second, err := a.Analyze(context.Background(), branchySource)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestComplexityCountsBranchesPerFunction(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	branchy, err := a.Analyze(context.Background(), branchySource)
	require.NoError(t, err)
	assert.Equal(t, 2, branchy.Complexity)

	straight, err := a.Analyze(context.Background(), straightSource)
	require.NoError(t, err)
	assert.Equal(t, 1, straight.Complexity)
}

func TestComplexityIgnoresModuleLevelBranches(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	src := "if a:\n    x = 1\nelse:\n    x = 2\n"

	ms, err := a.Analyze(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 0, ms.Complexity)
}

func TestAnalyzeEmptySnapshot(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	ms, err := a.Analyze(context.Background(), "")
	require.NoError(t, err)

	assert.Nil(t, ms.Halstead)
	assert.InDelta(t, 100.0, ms.MaintainabilityIndex, floatDelta)
	assert.Equal(t, Raw{}, ms.Raw)
	assert.Equal(t, Structural{}, ms.Structural)
	assert.Equal(t, 0, ms.Complexity)
}

func TestAnalyzeDocstringOnlySnapshot(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	ms, err := a.Analyze(context.Background(), "'docstring only'\n")
	require.NoError(t, err)

	assert.Nil(t, ms.Halstead)
	assert.Equal(t, 1, ms.Raw.Total)
	assert.Equal(t, 1, ms.Raw.Multi)
	assert.Equal(t, 0, ms.Raw.Source)
	assert.Equal(t, 1, ms.Structural.Docstrings)
	assert.InDelta(t, 100.0, ms.MaintainabilityIndex, floatDelta)
}

func TestAnalyzeRejectsBrokenSource(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	ms, err := a.Analyze(context.Background(), "def f(:\n")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
	assert.Nil(t, ms)
}

func TestAnalyzeRejectsTruncatedSource(t *testing.T) {
	t.Parallel()

	// The grammar recovers these with inserted missing tokens rather
	// than ERROR nodes; they are still invalid Python and must not be
	// scored.
	cases := []struct {
		name string
		src  string
	}{
		{name: "if without body", src: "if x:\n"},
		{name: "function without body", src: "def f():\n"},
		{name: "class without body", src: "class C:\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			a := NewAnalyzer()

			ms, err := a.Analyze(context.Background(), tc.src)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrParse)
			assert.Nil(t, ms)
		})
	}
}

func TestRawLineClassification(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	src := "# header\nx = 1  # trailing\n\ny = 2\n"

	ms, err := a.Analyze(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 4, ms.Raw.Total)
	assert.Equal(t, 1, ms.Raw.Blank)
	assert.Equal(t, 2, ms.Raw.Comment)
	assert.Equal(t, 0, ms.Raw.Multi)
	assert.Equal(t, 2, ms.Raw.Source)
	assert.Equal(t, 2, ms.Raw.Logical)
}

func TestRawTotalNeverBelowSource(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	sources := []string{"", "x = 1\n", branchySource, "# only a comment\n"}
	for _, src := range sources {
		ms, err := a.Analyze(context.Background(), src)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, ms.Raw.Total, ms.Raw.Source)
		assert.GreaterOrEqual(t, ms.Raw.Source, 0)
	}
}

func TestStructuralCounts(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	src := "class C:\n" +
		"    \"\"\"doc\"\"\"\n" +
		"\n" +
		"    def m(self):\n" +
		"        return 1\n" +
		"\n" +
		"def f():\n" +
		"    pass\n"

	ms, err := a.Analyze(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 2, ms.Structural.Functions)
	assert.Equal(t, 1, ms.Structural.Classes)
	assert.Equal(t, 1, ms.Structural.Methods)
	assert.Equal(t, 1, ms.Structural.Docstrings)
}

func TestDecoratedMethodStillCounts(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	src := "class C:\n" +
		"    @staticmethod\n" +
		"    def m():\n" +
		"        return 1\n"

	ms, err := a.Analyze(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 1, ms.Structural.Methods)
}

func TestHalsteadInventory(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	ms, err := a.Analyze(context.Background(), "x = a + b\n")
	require.NoError(t, err)
	require.NotNil(t, ms.Halstead)

	h := ms.Halstead
	assert.Equal(t, 1, h.DistinctOperators)
	assert.Equal(t, 2, h.DistinctOperands)
	assert.Equal(t, 1, h.TotalOperators)
	assert.Equal(t, 2, h.TotalOperands)

	wantVolume := 3 * math.Log2(3)
	assert.InDelta(t, wantVolume, h.Volume, floatDelta)
	assert.InDelta(t, 0.5, h.Difficulty, floatDelta)
	assert.InDelta(t, 0.5*wantVolume, h.Effort, floatDelta)
	assert.InDelta(t, h.Effort/18.0, h.Time, floatDelta)
	assert.InDelta(t, h.Volume/3000.0, h.Bugs, floatDelta)
}

func TestHalsteadUndefinedWithoutOperators(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	ms, err := a.Analyze(context.Background(), "x = 1\ny = 2\n")
	require.NoError(t, err)
	assert.Nil(t, ms.Halstead)
}

func TestValuesAlignWithMetricNames(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	ms, err := a.Analyze(context.Background(), branchySource)
	require.NoError(t, err)

	values := ms.Values()
	require.Len(t, values, len(MetricNames))

	assert.InDelta(t, ms.MaintainabilityIndex, values[0], floatDelta)
	assert.InDelta(t, float64(ms.Complexity), values[1], floatDelta)
	assert.InDelta(t, float64(ms.Raw.Total), values[2], floatDelta)
	assert.InDelta(t, float64(ms.Structural.Functions), values[8], floatDelta)
}

func TestValuesMarkUndefinedHalsteadAsNaN(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	ms, err := a.Analyze(context.Background(), "")
	require.NoError(t, err)
	require.Nil(t, ms.Halstead)

	values := ms.Values()
	for i := HalsteadStart; i < len(values); i++ {
		assert.True(t, math.IsNaN(values[i]), "metric %s should be NaN", MetricNames[i])
	}
}

func TestMaintainabilityStaysInRange(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	sources := []string{branchySource, straightSource, "x = a + b\n", ""}
	for _, src := range sources {
		ms, err := a.Analyze(context.Background(), src)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, ms.MaintainabilityIndex, 0.0)
		assert.LessOrEqual(t, ms.MaintainabilityIndex, 100.0)
	}
}
