package store

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/kaizenlab/codedrift/internal/pymetrics"
	"github.com/kaizenlab/codedrift/pkg/safeconv"
)

// DetailRow is one metric comparison of one analyzed file pair. Line
// churn is repeated on every metric row of the pair.
type DetailRow struct {
	SHA          string  `parquet:"sha,snappy"`
	Path         string  `parquet:"path,snappy"`
	Metric       string  `parquet:"metric,snappy"`
	Before       float64 `parquet:"before"`
	After        float64 `parquet:"after"`
	Diff         float64 `parquet:"diff"`
	LinesAdded   int32   `parquet:"lines_added"`
	LinesRemoved int32   `parquet:"lines_removed"`
}

// DetailWriter streams per-file metric rows into one parquet file per
// run. The schema is inferred from the DetailRow struct tags.
type DetailWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[DetailRow]
}

// NewDetailWriter creates the detail table at path, truncating any
// previous run's file.
func NewDetailWriter(path string) (*DetailWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create detail table: %w", err)
	}

	return &DetailWriter{
		file:   file,
		writer: parquet.NewGenericWriter[DetailRow](file),
	}, nil
}

// Append records one analyzed file pair: one row per metric, before and
// after values aligned with pymetrics.MetricNames.
func (w *DetailWriter) Append(sha, path string, before, after []float64, added, removed int) error {
	rows := make([]DetailRow, 0, len(pymetrics.MetricNames))

	for i, name := range pymetrics.MetricNames {
		rows = append(rows, DetailRow{
			SHA:          sha,
			Path:         path,
			Metric:       name,
			Before:       before[i],
			After:        after[i],
			Diff:         after[i] - before[i],
			LinesAdded:   safeconv.MustIntToInt32(added),
			LinesRemoved: safeconv.MustIntToInt32(removed),
		})
	}

	_, err := w.writer.Write(rows)
	if err != nil {
		return fmt.Errorf("write detail rows: %w", err)
	}

	return nil
}

// Close flushes the parquet footer and closes the file.
func (w *DetailWriter) Close() error {
	writerErr := w.writer.Close()
	fileErr := w.file.Close()

	if writerErr != nil {
		return fmt.Errorf("close detail table: %w", writerErr)
	}

	if fileErr != nil {
		return fmt.Errorf("close detail table: %w", fileErr)
	}

	return nil
}
