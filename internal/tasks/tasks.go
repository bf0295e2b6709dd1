// Package tasks loads the candidate-commit stream: a commit table
// joined to the pull-request table that names each repository.
package tasks

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// CommitTask is one candidate commit to measure.
type CommitTask struct {
	SHA     string
	PRID    int64
	RepoURL string
}

// commitRow mirrors the pre-filtered commit table.
type commitRow struct {
	SHA  string `parquet:"sha,snappy"`
	PRID int64  `parquet:"pr_id"`
}

// pullRow mirrors the pull-request table.
type pullRow struct {
	ID      int64  `parquet:"id"`
	RepoURL string `parquet:"repo_url,snappy"`
}

// Load joins the commit table to the pull-request table on pr_id,
// preserving commit order. Commits without a matching pull request are
// dropped; the count of dropped commits is returned alongside.
func Load(commitsPath, pullsPath string) ([]CommitTask, int, error) {
	commits, err := readAll[commitRow](commitsPath)
	if err != nil {
		return nil, 0, fmt.Errorf("load commit table: %w", err)
	}

	pulls, err := readAll[pullRow](pullsPath)
	if err != nil {
		return nil, 0, fmt.Errorf("load pull-request table: %w", err)
	}

	repoByPR := make(map[int64]string, len(pulls))
	for _, p := range pulls {
		repoByPR[p.ID] = p.RepoURL
	}

	var out []CommitTask

	dropped := 0

	for _, c := range commits {
		repoURL, ok := repoByPR[c.PRID]
		if !ok {
			dropped++

			continue
		}

		out = append(out, CommitTask{SHA: c.SHA, PRID: c.PRID, RepoURL: repoURL})
	}

	return out, dropped, nil
}

func readAll[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := parquet.NewGenericReader[T](file)
	defer reader.Close()

	rows := make([]T, reader.NumRows())

	n, readErr := reader.Read(rows)
	if readErr != nil && !errors.Is(readErr, io.EOF) {
		return nil, readErr
	}

	return rows[:n], nil
}
