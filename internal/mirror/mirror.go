// Package mirror maintains local clones of the repositories under
// analysis, one directory per repository, reused across runs when the
// cache is persistent.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/kaizenlab/codedrift/pkg/gitlib"
)

// ErrClone marks a remote that could not be cloned: unreachable,
// unauthorized or malformed.
var ErrClone = errors.New("clone failed")

// Lifetime selects how long cached mirrors outlive a run.
type Lifetime int

const (
	// Persistent keeps mirrors under a fixed cache root that survives
	// the run.
	Persistent Lifetime = iota
	// Ephemeral roots the cache in a run-scoped directory removed by
	// Cleanup.
	Ephemeral
)

const (
	gitSuffix     = ".git"
	gitMarkerDir  = ".git"
	apiHostPrefix = "https://api.github.com/repos/"
	webHostPrefix = "https://github.com/"

	mirrorDirPerm = 0o755
)

// Manager ensures a local mirror exists for every repository it is
// asked about. The access token, when set, is embedded into clone URLs
// only; it never reaches logs or error strings.
type Manager struct {
	root     string
	token    string
	lifetime Lifetime
	logger   *slog.Logger
}

// NewManager creates a cache manager rooted at root. With the Ephemeral
// lifetime an empty root selects a fresh temporary directory.
func NewManager(root string, lifetime Lifetime, token string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if root == "" {
		if lifetime == Persistent {
			return nil, errors.New("persistent cache requires a root directory")
		}

		tmp, err := os.MkdirTemp("", "codedrift-mirror-")
		if err != nil {
			return nil, fmt.Errorf("create ephemeral cache root: %w", err)
		}

		root = tmp
	}

	mkdirErr := os.MkdirAll(root, mirrorDirPerm)
	if mkdirErr != nil {
		return nil, fmt.Errorf("create cache root: %w", mkdirErr)
	}

	return &Manager{
		root:     root,
		token:    token,
		lifetime: lifetime,
		logger:   logger.With("component", "mirror"),
	}, nil
}

// Root returns the cache root directory.
func (m *Manager) Root() string { return m.root }

// Ensure returns the path of a local mirror of repoURL, cloning it when
// the cache has none. An existing clone is reused regardless of
// lifetime; lifetime only decides whether Cleanup removes the root.
func (m *Manager) Ensure(ctx context.Context, repoURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrClone, err)
	}

	canonical := CanonicalURL(repoURL)
	dir := filepath.Join(m.root, mirrorName(canonical))

	if _, err := os.Stat(filepath.Join(dir, gitMarkerDir)); err == nil {
		m.logger.Debug("mirror reused", "repo", canonical, "path", dir)

		return dir, nil
	}

	cloneURL, err := m.authenticatedURL(canonical)
	if err != nil {
		return "", fmt.Errorf("%w: bad repository url %q", ErrClone, canonical)
	}

	m.logger.Info("cloning repository", "repo", canonical, "path", dir)

	repo, cloneErr := gitlib.CloneRepository(cloneURL, dir)
	if cloneErr != nil {
		// A failed clone may leave a partial directory behind.
		_ = os.RemoveAll(dir)

		return "", fmt.Errorf("%w: %s", ErrClone, canonical)
	}

	repo.Free()

	return dir, nil
}

// Cleanup removes the cache root of an ephemeral manager. Persistent
// caches survive for the next run.
func (m *Manager) Cleanup() error {
	if m.lifetime != Ephemeral {
		return nil
	}

	removeErr := os.RemoveAll(m.root)
	if removeErr != nil {
		return fmt.Errorf("remove ephemeral cache root: %w", removeErr)
	}

	return nil
}

// authenticatedURL embeds the access token into github.com clone URLs.
// Other hosts are cloned anonymously.
func (m *Manager) authenticatedURL(canonical string) (string, error) {
	if m.token == "" || !strings.HasPrefix(canonical, webHostPrefix) {
		return canonical, nil
	}

	u, err := url.Parse(canonical)
	if err != nil {
		return "", err
	}

	u.User = url.User(m.token)

	return u.String(), nil
}

// CanonicalURL normalizes a repository reference: API-style GitHub URLs
// become web URLs and exactly one trailing ".git" is kept.
func CanonicalURL(repoURL string) string {
	out := strings.TrimSpace(repoURL)

	if rest, ok := strings.CutPrefix(out, apiHostPrefix); ok {
		out = webHostPrefix + rest
	}

	for strings.HasSuffix(out, gitSuffix) {
		out = strings.TrimSuffix(out, gitSuffix)
	}

	return out + gitSuffix
}

// mirrorName derives the cache directory name from the canonical URL.
func mirrorName(canonical string) string {
	base := strings.TrimSuffix(filepath.Base(canonical), gitSuffix)
	if base == "" || base == "." || base == "/" {
		return "repository"
	}

	return base
}
