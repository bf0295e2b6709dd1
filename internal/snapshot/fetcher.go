package snapshot

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kaizenlab/codedrift/pkg/gitlib"
)

// ErrMissing marks a file that does not exist at the requested
// revision, the normal case for files added or deleted by the commit.
var ErrMissing = errors.New("content missing at revision")

// Fetcher reads file snapshots out of one opened repository.
type Fetcher struct {
	repo *gitlib.Repository
}

// NewFetcher wraps an opened repository.
func NewFetcher(repo *gitlib.Repository) *Fetcher {
	return &Fetcher{repo: repo}
}

// Fetch returns the text of path at revisionID. Historical content may
// carry inconsistent encodings, so invalid UTF-8 sequences are replaced
// with U+FFFD instead of failing.
func (f *Fetcher) Fetch(revisionID, path string) (string, error) {
	commit, err := f.repo.ResolveCommit(revisionID)
	if err != nil {
		return "", fmt.Errorf("%w: %s at %q", ErrMissing, path, revisionID)
	}
	defer commit.Free()

	tree, treeErr := commit.Tree()
	if treeErr != nil {
		return "", fmt.Errorf("%w: %s at %q", ErrMissing, path, revisionID)
	}
	defer tree.Free()

	entry, entryErr := tree.EntryByPath(path)
	if entryErr != nil || !entry.IsBlob() {
		return "", fmt.Errorf("%w: %s at %q", ErrMissing, path, revisionID)
	}

	blob, blobErr := f.repo.LookupBlob(entry.Hash())
	if blobErr != nil {
		return "", fmt.Errorf("%w: %s at %q", ErrMissing, path, revisionID)
	}
	defer blob.Free()

	return strings.ToValidUTF8(string(blob.Contents()), string(utf8.RuneError)), nil
}
