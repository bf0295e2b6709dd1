package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/require"
)

// fixtureRepo is a small history used across the resolver and fetcher
// tests: one root commit, one modifying commit, one deleting commit.
type fixtureRepo struct {
	dir    string
	shas   []string
	native *git2go.Repository
}

const fixtureBranchy = "def f(x):\n    if x:\n        return 1\n    return 0\n"

const fixtureStraight = "def f(x):\n    return 0\n"

func newFixtureRepo(t *testing.T) *fixtureRepo {
	t.Helper()

	dir := t.TempDir()

	native, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)
	t.Cleanup(native.Free)

	f := &fixtureRepo{dir: dir, native: native}

	f.write(t, "a.py", fixtureBranchy)
	f.write(t, "readme.md", "# fixture\n")
	f.commit(t, "add a.py")

	f.write(t, "a.py", fixtureStraight)
	f.write(t, "z.py", "x = 1\n")
	f.commit(t, "simplify a.py")

	require.NoError(t, os.Remove(filepath.Join(dir, "a.py")))
	f.commit(t, "drop a.py")

	return f
}

func (f *fixtureRepo) write(t *testing.T, name, content string) {
	t.Helper()

	path := filepath.Join(f.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fixtureRepo) commit(t *testing.T, message string) {
	t.Helper()

	index, err := f.native.Index()
	require.NoError(t, err)

	defer index.Free()

	require.NoError(t, index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil))
	require.NoError(t, index.UpdateAll([]string{"*"}, nil))
	require.NoError(t, index.Write())

	treeID, err := index.WriteTree()
	require.NoError(t, err)

	tree, err := f.native.LookupTree(treeID)
	require.NoError(t, err)

	defer tree.Free()

	sig := &git2go.Signature{Name: "Fixture", Email: "fixture@test.com", When: time.Now()}

	var parents []*git2go.Commit

	head, headErr := f.native.Head()
	if headErr == nil {
		parent, lookupErr := f.native.LookupCommit(head.Target())
		require.NoError(t, lookupErr)

		parents = append(parents, parent)

		head.Free()
	}

	oid, err := f.native.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	require.NoError(t, err)

	for _, p := range parents {
		p.Free()
	}

	f.shas = append(f.shas, oid.String())
}
