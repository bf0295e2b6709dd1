package snapshot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kaizenlab/codedrift/pkg/gitlib"
)

const pySuffix = ".py"

func openFixture(t *testing.T, f *fixtureRepo) *gitlib.Repository {
	t.Helper()

	repo, err := gitlib.OpenRepository(f.dir)
	require.NoError(t, err)
	t.Cleanup(repo.Free)

	return repo
}

func TestParentResolvesFirstParent(t *testing.T) {
	f := newFixtureRepo(t)
	r := NewResolver(openFixture(t, f), false)

	parent, err := r.Parent(f.shas[1])
	require.NoError(t, err)
	assert.Equal(t, f.shas[0], parent)
}

func TestParentOfRootCommitFails(t *testing.T) {
	f := newFixtureRepo(t)
	r := NewResolver(openFixture(t, f), false)

	_, err := r.Parent(f.shas[0])
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolution)
}

func TestParentOfUnknownIDFails(t *testing.T) {
	f := newFixtureRepo(t)
	r := NewResolver(openFixture(t, f), false)

	_, err := r.Parent(strings.Repeat("deadbeef", 5))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolution)
}

func TestChangedFilesFiltersBySuffix(t *testing.T) {
	f := newFixtureRepo(t)
	r := NewResolver(openFixture(t, f), false)

	paths, err := r.ChangedFiles(f.shas[0], f.shas[1], pySuffix)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.py", "z.py"}, paths)

	for _, p := range paths {
		assert.True(t, strings.HasSuffix(p, pySuffix))
	}
}

func TestChangedFilesReportsDeletions(t *testing.T) {
	f := newFixtureRepo(t)
	r := NewResolver(openFixture(t, f), false)

	paths, err := r.ChangedFiles(f.shas[1], f.shas[2], pySuffix)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py"}, paths)
}

func TestChangedFilesUnknownRevisionFails(t *testing.T) {
	f := newFixtureRepo(t)
	r := NewResolver(openFixture(t, f), false)

	_, err := r.ChangedFiles(strings.Repeat("deadbeef", 5), f.shas[1], pySuffix)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResolution)
}

func TestFetchReturnsContentAtRevision(t *testing.T) {
	f := newFixtureRepo(t)
	fetcher := NewFetcher(openFixture(t, f))

	before, err := fetcher.Fetch(f.shas[0], "a.py")
	require.NoError(t, err)
	assert.Equal(t, fixtureBranchy, before)

	after, err := fetcher.Fetch(f.shas[1], "a.py")
	require.NoError(t, err)
	assert.Equal(t, fixtureStraight, after)
}

func TestFetchMissingAfterDeletion(t *testing.T) {
	f := newFixtureRepo(t)
	fetcher := NewFetcher(openFixture(t, f))

	_, err := fetcher.Fetch(f.shas[2], "a.py")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissing)
}

func TestFetchUnknownPath(t *testing.T) {
	f := newFixtureRepo(t)
	fetcher := NewFetcher(openFixture(t, f))

	_, err := fetcher.Fetch(f.shas[0], "nope.py")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissing)
}
