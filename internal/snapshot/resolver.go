// Package snapshot resolves before/after revision pairs inside a local
// mirror and fetches file content at specific revisions.
package snapshot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/src-d/enry/v2"

	"github.com/kaizenlab/codedrift/pkg/gitlib"
)

// ErrResolution marks a commit that cannot anchor a before/after pair:
// unresolvable id, root commit, or a failed tree diff.
var ErrResolution = errors.New("revision resolution failed")

// Resolver locates parent revisions and changed-file sets in one opened
// repository.
type Resolver struct {
	repo         *gitlib.Repository
	skipVendored bool
}

// NewResolver wraps an opened repository. With skipVendored set, paths
// recognized as vendored are dropped from changed-file sets.
func NewResolver(repo *gitlib.Repository, skipVendored bool) *Resolver {
	return &Resolver{repo: repo, skipVendored: skipVendored}
}

// Parent resolves the first parent of commitID. Root commits and
// unknown ids yield ErrResolution.
func (r *Resolver) Parent(commitID string) (string, error) {
	commit, err := r.repo.ResolveCommit(commitID)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrResolution, commitID, err)
	}
	defer commit.Free()

	if commit.NumParents() == 0 {
		return "", fmt.Errorf("%w: %q is a root commit", ErrResolution, commitID)
	}

	return commit.ParentHash(0).String(), nil
}

// ChangedFiles diffs the trees of parentID and commitID and returns the
// touched paths carrying the suffix, in diff order, deduplicated.
func (r *Resolver) ChangedFiles(parentID, commitID, suffix string) ([]string, error) {
	oldTree, err := r.commitTree(parentID)
	if err != nil {
		return nil, err
	}
	defer oldTree.Free()

	newTree, err := r.commitTree(commitID)
	if err != nil {
		return nil, err
	}
	defer newTree.Free()

	changes, diffErr := gitlib.TreeDiff(r.repo, oldTree, newTree)
	if diffErr != nil {
		return nil, fmt.Errorf("%w: diff %q..%q: %w", ErrResolution, parentID, commitID, diffErr)
	}

	var paths []string

	seen := make(map[string]bool)

	for _, change := range changes {
		path := change.Path()

		if !strings.HasSuffix(path, suffix) || seen[path] {
			continue
		}

		if r.skipVendored && enry.IsVendor(path) {
			continue
		}

		seen[path] = true
		paths = append(paths, path)
	}

	return paths, nil
}

func (r *Resolver) commitTree(revisionID string) (*gitlib.Tree, error) {
	commit, err := r.repo.ResolveCommit(revisionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrResolution, revisionID, err)
	}
	defer commit.Free()

	tree, treeErr := commit.Tree()
	if treeErr != nil {
		return nil, fmt.Errorf("%w: tree of %q: %w", ErrResolution, revisionID, treeErr)
	}

	return tree, nil
}
