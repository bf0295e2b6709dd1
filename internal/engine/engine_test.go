package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaizenlab/codedrift/internal/mirror"
	"github.com/kaizenlab/codedrift/internal/observability"
	"github.com/kaizenlab/codedrift/internal/pymetrics"
	"github.com/kaizenlab/codedrift/internal/store"
	"github.com/kaizenlab/codedrift/internal/tasks"
)

const (
	testRepoURL = "https://github.com/acme/widgets.git"

	branchySource  = "def f(x):\n    if x:\n        return 1\n    return 0\n"
	straightSource = "def f(x):\n    return 0\n"

	ccIndex    = 1
	floatDelta = 1e-9
)

// testHarness is a ready engine over a fixture history placed directly
// inside the persistent cache, so Ensure reuses it without cloning.
type testHarness struct {
	engine *Engine
	store  *store.CSVStore
	shas   []string
}

func newHarness(t *testing.T, batchSize int, details *store.DetailWriter) *testHarness {
	t.Helper()

	cacheRoot := t.TempDir()
	shas := buildFixtureRepo(t, filepath.Join(cacheRoot, "widgets"))

	mirrors, err := mirror.NewManager(cacheRoot, mirror.Persistent, "", nil)
	require.NoError(t, err)

	results, err := store.OpenCSV(filepath.Join(t.TempDir(), "results.csv"))
	require.NoError(t, err)

	e := New(Params{
		Mirrors:   mirrors,
		Store:     results,
		Details:   details,
		Metrics:   observability.NewRunMetrics(),
		Suffix:    ".py",
		BatchSize: batchSize,
	})

	return &testHarness{engine: e, store: results, shas: shas}
}

// buildFixtureRepo writes four commits: a root adding a branchy a.py,
// a simplification of it, a deletion of it, and a z.py change.
func buildFixtureRepo(t *testing.T, dir string) []string {
	t.Helper()

	native, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)
	t.Cleanup(native.Free)

	writeFile(t, dir, "a.py", branchySource)
	writeFile(t, dir, "readme.md", "# fixture\n")
	shas := []string{commitAll(t, native, "add a.py")}

	writeFile(t, dir, "a.py", straightSource)
	writeFile(t, dir, "z.py", "x = 1\n")
	shas = append(shas, commitAll(t, native, "simplify a.py"))

	require.NoError(t, os.Remove(filepath.Join(dir, "a.py")))
	shas = append(shas, commitAll(t, native, "drop a.py"))

	writeFile(t, dir, "z.py", "x = 2\ny = x + 1\n")
	shas = append(shas, commitAll(t, native, "grow z.py"))

	return shas
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func commitAll(t *testing.T, native *git2go.Repository, message string) string {
	t.Helper()

	index, err := native.Index()
	require.NoError(t, err)

	defer index.Free()

	require.NoError(t, index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil))
	require.NoError(t, index.UpdateAll([]string{"*"}, nil))
	require.NoError(t, index.Write())

	treeID, err := index.WriteTree()
	require.NoError(t, err)

	tree, err := native.LookupTree(treeID)
	require.NoError(t, err)

	defer tree.Free()

	sig := &git2go.Signature{Name: "Fixture", Email: "fixture@test.com", When: time.Now()}

	var parents []*git2go.Commit

	head, headErr := native.Head()
	if headErr == nil {
		parent, lookupErr := native.LookupCommit(head.Target())
		require.NoError(t, lookupErr)

		parents = append(parents, parent)

		head.Free()
	}

	oid, err := native.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	require.NoError(t, err)

	for _, p := range parents {
		p.Free()
	}

	return oid.String()
}

func task(sha string) tasks.CommitTask {
	return tasks.CommitTask{SHA: sha, PRID: 1, RepoURL: testRepoURL}
}

func fakeSummary(sha string, fill float64) *store.Summary {
	before := make([]float64, len(pymetrics.MetricNames))
	after := make([]float64, len(pymetrics.MetricNames))

	for i := range before {
		before[i] = fill
		after[i] = fill
	}

	return &store.Summary{RepoURL: testRepoURL, SHA: sha, Before: before, After: after}
}

func TestRunMeasuresComplexityDrop(t *testing.T) {
	h := newHarness(t, 0, nil)

	report, err := h.engine.Run(context.Background(), []tasks.CommitTask{task(h.shas[1])})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 0, report.Remaining)

	row := h.store.Row(h.shas[1])
	require.NotNil(t, row)

	// a.py goes from two decision paths to one; z.py is new on the
	// before side and dropped, leaving a.py as the only contributor.
	assert.InDelta(t, 2.0, row.Before[ccIndex], floatDelta)
	assert.InDelta(t, 1.0, row.After[ccIndex], floatDelta)
}

func TestRunDeletedOnlyFileYieldsNoRow(t *testing.T) {
	h := newHarness(t, 0, nil)

	report, err := h.engine.Run(context.Background(), []tasks.CommitTask{task(h.shas[2])})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 1, report.Skipped[SkipEmptyResult])
	assert.False(t, h.store.Contains(h.shas[2]))
}

func TestRunRootCommitIsSkipped(t *testing.T) {
	h := newHarness(t, 0, nil)

	report, err := h.engine.Run(context.Background(), []tasks.CommitTask{task(h.shas[0])})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 1, report.Skipped[SkipResolution])
	assert.False(t, h.store.Contains(h.shas[0]))
}

func TestRunResumeLeavesSeededRowUntouched(t *testing.T) {
	h := newHarness(t, 0, nil)

	seeded := fakeSummary(h.shas[1], 7)
	h.store.Merge(seeded)
	require.NoError(t, h.store.Flush())

	report, err := h.engine.Run(context.Background(), []tasks.CommitTask{task(h.shas[1]), task(h.shas[3])})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Processed)

	row := h.store.Row(h.shas[1])
	require.NotNil(t, row)
	assert.InDelta(t, 7.0, row.Before[0], floatDelta)

	assert.True(t, h.store.Contains(h.shas[3]))
	assert.Equal(t, 0, report.Remaining)
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	h := newHarness(t, 0, nil)
	stream := []tasks.CommitTask{task(h.shas[1]), task(h.shas[3])}

	first, err := h.engine.Run(context.Background(), stream)
	require.NoError(t, err)
	require.Equal(t, 2, first.Processed)

	firstRow := h.store.Row(h.shas[1])

	second, err := h.engine.Run(context.Background(), stream)
	require.NoError(t, err)

	assert.Equal(t, 0, second.Processed)
	assert.Equal(t, 0, second.Attempted)
	assert.Equal(t, 2, h.store.Len())
	assert.Equal(t, firstRow, h.store.Row(h.shas[1]))
}

func TestRunHonoursBatchCap(t *testing.T) {
	h := newHarness(t, 1, nil)

	report, err := h.engine.Run(context.Background(), []tasks.CommitTask{task(h.shas[1]), task(h.shas[3])})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Attempted)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Remaining)
}

func TestRunUnreachableRepositoryIsSkipped(t *testing.T) {
	h := newHarness(t, 0, nil)

	broken := tasks.CommitTask{SHA: "ffff", PRID: 2, RepoURL: "https://github.com/acme/definitely-missing-xyz.git"}

	report, err := h.engine.Run(context.Background(), []tasks.CommitTask{broken})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped[SkipClone])

	// The queue is exhausted: a skipped commit was attempted and must
	// not be reported as remaining, or rerun loops would never end.
	assert.Equal(t, 0, report.Remaining)
}

func TestRunExhaustedQueueWithSkipsReportsNothingRemaining(t *testing.T) {
	h := newHarness(t, 0, nil)

	// A root commit fails resolution on every run; the stream is still
	// fully walked, so nothing is left for a follow-up invocation.
	report, err := h.engine.Run(context.Background(), []tasks.CommitTask{task(h.shas[0]), task(h.shas[3])})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Attempted)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Skipped[SkipResolution])
	assert.Equal(t, 0, report.Remaining)
}

func TestRunWritesDetailRows(t *testing.T) {
	detailPath := filepath.Join(t.TempDir(), "details.parquet")

	details, err := store.NewDetailWriter(detailPath)
	require.NoError(t, err)

	h := newHarness(t, 0, details)

	_, runErr := h.engine.Run(context.Background(), []tasks.CommitTask{task(h.shas[3])})
	require.NoError(t, runErr)
	require.NoError(t, details.Close())

	info, statErr := os.Stat(detailPath)
	require.NoError(t, statErr)
	assert.Positive(t, info.Size())
}
