// Package store persists run output: the per-commit summary table that
// drives resume, and the per-file detail table.
package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/kaizenlab/codedrift/internal/pymetrics"
)

// ErrMalformed marks a summary table whose rows do not match the
// expected column layout.
var ErrMalformed = errors.New("malformed summary table")

// fixedColumns precede the per-metric pairs: repo_url and sha.
const fixedColumns = 2

// Summary is one commit's aggregated measurement: per-metric means of
// the before and after snapshots, aligned with pymetrics.MetricNames.
type Summary struct {
	RepoURL string
	SHA     string
	Before  []float64
	After   []float64
}

// CSVStore is the persisted summary table. The whole file is loaded at
// startup so membership checks answer resume questions without touching
// disk again; Flush rewrites it atomically.
type CSVStore struct {
	path  string
	order []string
	rows  map[string]*Summary
}

// Header returns the column names: repo_url, sha, then a before/after
// pair per metric in canonical order.
func Header() []string {
	header := []string{"repo_url", "sha"}

	for _, name := range pymetrics.MetricNames {
		header = append(header, name+"_before_avg", name+"_after_avg")
	}

	return header
}

// OpenCSV loads the summary table at path. A missing file is an empty
// store; an unreadable or malformed one is an error, since resuming
// over it would silently redo or lose work.
func OpenCSV(path string) (*CSVStore, error) {
	s := &CSVStore{path: path, rows: make(map[string]*Summary)}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}

	if err != nil {
		return nil, fmt.Errorf("open summary table: %w", err)
	}
	defer f.Close()

	records, readErr := csv.NewReader(f).ReadAll()
	if readErr != nil {
		return nil, fmt.Errorf("read summary table: %w", readErr)
	}

	for i, record := range records {
		if i == 0 && len(record) > 0 && record[0] == "repo_url" {
			continue
		}

		sum, rowErr := parseRow(record)
		if rowErr != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformed, i+1, rowErr)
		}

		s.insert(sum)
	}

	return s, nil
}

// Path returns the table location.
func (s *CSVStore) Path() string { return s.path }

// Len returns the number of persisted commits.
func (s *CSVStore) Len() int { return len(s.order) }

// Contains reports whether a commit already has a row.
func (s *CSVStore) Contains(sha string) bool {
	_, ok := s.rows[sha]

	return ok
}

// Row returns the summary stored for sha, or nil.
func (s *CSVStore) Row(sha string) *Summary { return s.rows[sha] }

// Merge upserts a summary keyed by commit id. Replacing an existing row
// keeps resume correct after partial runs.
func (s *CSVStore) Merge(sum *Summary) {
	s.insert(sum)
}

// Flush rewrites the table atomically: temp file in the same directory,
// then rename over the target.
func (s *CSVStore) Flush() error {
	dir := filepath.Dir(s.path)

	tmp, err := os.CreateTemp(dir, ".summary-*.csv")
	if err != nil {
		return fmt.Errorf("create summary temp file: %w", err)
	}

	tmpName := tmp.Name()
	w := csv.NewWriter(tmp)

	writeErr := s.writeAll(w)

	w.Flush()

	if writeErr == nil {
		writeErr = w.Error()
	}

	closeErr := tmp.Close()

	if writeErr != nil || closeErr != nil {
		_ = os.Remove(tmpName)

		if writeErr != nil {
			return fmt.Errorf("write summary table: %w", writeErr)
		}

		return fmt.Errorf("write summary table: %w", closeErr)
	}

	renameErr := os.Rename(tmpName, s.path)
	if renameErr != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("replace summary table: %w", renameErr)
	}

	return nil
}

func (s *CSVStore) insert(sum *Summary) {
	if _, ok := s.rows[sum.SHA]; !ok {
		s.order = append(s.order, sum.SHA)
	}

	s.rows[sum.SHA] = sum
}

func (s *CSVStore) writeAll(w *csv.Writer) error {
	if err := w.Write(Header()); err != nil {
		return err
	}

	for _, sha := range s.order {
		if err := w.Write(formatRow(s.rows[sha])); err != nil {
			return err
		}
	}

	return nil
}

func formatRow(sum *Summary) []string {
	record := make([]string, 0, fixedColumns+2*len(pymetrics.MetricNames))
	record = append(record, sum.RepoURL, sum.SHA)

	for i := range pymetrics.MetricNames {
		record = append(record,
			strconv.FormatFloat(sum.Before[i], 'g', -1, 64),
			strconv.FormatFloat(sum.After[i], 'g', -1, 64))
	}

	return record
}

func parseRow(record []string) (*Summary, error) {
	want := fixedColumns + 2*len(pymetrics.MetricNames)
	if len(record) != want {
		return nil, fmt.Errorf("got %d columns, want %d", len(record), want)
	}

	sum := &Summary{
		RepoURL: record[0],
		SHA:     record[1],
		Before:  make([]float64, len(pymetrics.MetricNames)),
		After:   make([]float64, len(pymetrics.MetricNames)),
	}

	for i := range pymetrics.MetricNames {
		before, err := strconv.ParseFloat(record[fixedColumns+2*i], 64)
		if err != nil {
			return nil, err
		}

		after, err := strconv.ParseFloat(record[fixedColumns+2*i+1], 64)
		if err != nil {
			return nil, err
		}

		sum.Before[i], sum.After[i] = before, after
	}

	return sum, nil
}
