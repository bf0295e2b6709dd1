// Package engine orchestrates a batch run: for each pending commit it
// ensures a mirror, resolves the before/after pair, measures every
// changed file and persists the per-commit summary.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kaizenlab/codedrift/internal/aggregate"
	"github.com/kaizenlab/codedrift/internal/mirror"
	"github.com/kaizenlab/codedrift/internal/observability"
	"github.com/kaizenlab/codedrift/internal/pymetrics"
	"github.com/kaizenlab/codedrift/internal/snapshot"
	"github.com/kaizenlab/codedrift/internal/store"
	"github.com/kaizenlab/codedrift/internal/tasks"
	"github.com/kaizenlab/codedrift/pkg/gitlib"
	"github.com/kaizenlab/codedrift/pkg/textutil"
)

// SkipReason classifies why a commit produced no summary row.
type SkipReason string

// Skip reasons, also used as counter labels.
const (
	SkipClone       SkipReason = "clone"
	SkipResolution  SkipReason = "resolution"
	SkipEmptyDiff   SkipReason = "empty_diff"
	SkipEmptyResult SkipReason = "empty_result"
)

// RunReport summarizes one engine invocation. Remaining counts commits
// the run never got to (batch cap or cancellation); commits attempted
// and skipped are not remaining, or a rerun-until-empty scheduler would
// never terminate on permanently failing commits.
type RunReport struct {
	Attempted int
	Processed int
	Skipped   map[SkipReason]int
	Remaining int
	Duration  time.Duration
}

// TotalSkipped sums the skip counters.
func (r *RunReport) TotalSkipped() int {
	total := 0
	for _, n := range r.Skipped {
		total += n
	}

	return total
}

// Params wires an Engine. Store, Mirrors and Metrics are required;
// Details and Logger are optional.
type Params struct {
	Mirrors *mirror.Manager
	Store   *store.CSVStore
	Details *store.DetailWriter
	Metrics *observability.RunMetrics
	Logger  *slog.Logger

	Suffix       string
	BatchSize    int
	Delay        time.Duration
	SkipVendored bool
}

// Engine processes commits strictly sequentially: one commit at a
// time, one file at a time, because a single mirror cannot serve
// concurrent revision extractions.
type Engine struct {
	mirrors  *mirror.Manager
	results  *store.CSVStore
	details  *store.DetailWriter
	metrics  *observability.RunMetrics
	analyzer *pymetrics.Analyzer
	logger   *slog.Logger

	suffix       string
	batchSize    int
	delay        time.Duration
	skipVendored bool
}

// New creates an engine from wired dependencies.
func New(p Params) *Engine {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		mirrors:      p.Mirrors,
		results:      p.Store,
		details:      p.Details,
		metrics:      p.Metrics,
		analyzer:     pymetrics.NewAnalyzer(),
		logger:       logger.With("component", "engine"),
		suffix:       p.Suffix,
		batchSize:    p.BatchSize,
		delay:        p.Delay,
		skipVendored: p.SkipVendored,
	}
}

// Run walks the task stream, skipping commits that already have a row.
// Per-commit failures are counted and never abort the batch; only a
// failed store flush does, since continuing would lose finished work.
func (e *Engine) Run(ctx context.Context, stream []tasks.CommitTask) (*RunReport, error) {
	started := time.Now()
	report := &RunReport{Skipped: make(map[SkipReason]int)}
	attempted := make(map[string]bool)

	for _, task := range stream {
		if ctx.Err() != nil {
			break
		}

		if e.results.Contains(task.SHA) {
			continue
		}

		if e.batchSize > 0 && report.Attempted >= e.batchSize {
			break
		}

		report.Attempted++
		attempted[task.SHA] = true

		persistErr := e.processCommit(ctx, task, report)
		if persistErr != nil {
			return report, persistErr
		}

		if waitErr := e.pause(ctx); waitErr != nil {
			break
		}
	}

	report.Remaining = e.countRemaining(stream, attempted)
	report.Duration = time.Since(started)

	return report, nil
}

// processCommit measures one commit end to end. Its only returned error
// is a failed persistence; everything else is classified and skipped.
func (e *Engine) processCommit(ctx context.Context, task tasks.CommitTask, report *RunReport) error {
	path, err := e.mirrors.Ensure(ctx, task.RepoURL)
	if err != nil {
		e.skip(report, task, SkipClone, err)

		return nil
	}

	repo, openErr := gitlib.OpenRepository(path)
	if openErr != nil {
		e.skip(report, task, SkipClone, openErr)

		return nil
	}
	defer repo.Free()

	resolver := snapshot.NewResolver(repo, e.skipVendored)

	parent, parentErr := resolver.Parent(task.SHA)
	if parentErr != nil {
		e.skip(report, task, SkipResolution, parentErr)

		return nil
	}

	files, filesErr := resolver.ChangedFiles(parent, task.SHA, e.suffix)
	if filesErr != nil {
		e.skip(report, task, SkipResolution, filesErr)

		return nil
	}

	if len(files) == 0 {
		e.skip(report, task, SkipEmptyDiff, nil)

		return nil
	}

	deltas := e.measureFiles(ctx, snapshot.NewFetcher(repo), task, parent, files)

	summary, ok := aggregate.Accumulate(task.RepoURL, task.SHA, deltas)
	if !ok {
		e.skip(report, task, SkipEmptyResult, nil)

		return nil
	}

	e.results.Merge(summary)

	flushErr := e.results.Flush()
	if flushErr != nil {
		return fmt.Errorf("persist summary for %s: %w", task.SHA, flushErr)
	}

	report.Processed++
	e.metrics.CommitsProcessed.Inc()
	e.logger.Info("commit measured", "sha", task.SHA, "files", len(files))

	return nil
}

// measureFiles fetches and analyzes both sides of every changed file.
// Missing or unparseable snapshots leave that side nil; the aggregator
// drops such pairs.
func (e *Engine) measureFiles(
	ctx context.Context, fetcher *snapshot.Fetcher, task tasks.CommitTask, parent string, files []string,
) []aggregate.FileDelta {
	deltas := make([]aggregate.FileDelta, 0, len(files))

	for _, file := range files {
		beforeText, beforeOK := e.fetchText(fetcher, parent, file)
		afterText, afterOK := e.fetchText(fetcher, task.SHA, file)

		delta := aggregate.FileDelta{Path: file}

		if beforeOK {
			delta.Before = e.analyzeText(ctx, file, beforeText)
		}

		if afterOK {
			delta.After = e.analyzeText(ctx, file, afterText)
		}

		if delta.Before == nil || delta.After == nil {
			e.metrics.FilesSkipped.Inc()
		} else {
			e.metrics.FilesAnalyzed.Inc()
			e.recordDetail(task.SHA, file, beforeText, afterText, &delta)
		}

		deltas = append(deltas, delta)
	}

	return deltas
}

func (e *Engine) fetchText(fetcher *snapshot.Fetcher, revision, file string) (string, bool) {
	text, err := fetcher.Fetch(revision, file)
	if err != nil {
		if !errors.Is(err, snapshot.ErrMissing) {
			e.logger.Warn("fetch failed", "revision", revision, "file", file, "err", err)
		}

		return "", false
	}

	if textutil.IsBinary([]byte(text)) {
		e.logger.Debug("binary snapshot ignored", "revision", revision, "file", file)

		return "", false
	}

	return text, true
}

func (e *Engine) analyzeText(ctx context.Context, file, text string) *pymetrics.MetricSet {
	ms, err := e.analyzer.Analyze(ctx, text)
	if err != nil {
		e.logger.Debug("snapshot not analyzable", "file", file, "err", err)

		return nil
	}

	return ms
}

func (e *Engine) recordDetail(sha, file, beforeText, afterText string, delta *aggregate.FileDelta) {
	if e.details == nil {
		return
	}

	added, removed := lineChurn(beforeText, afterText)

	appendErr := e.details.Append(sha, file, delta.Before.Values(), delta.After.Values(), added, removed)
	if appendErr != nil {
		e.logger.Warn("detail row dropped", "sha", sha, "file", file, "err", appendErr)
	}
}

func (e *Engine) skip(report *RunReport, task tasks.CommitTask, reason SkipReason, err error) {
	report.Skipped[reason]++
	e.metrics.CommitsSkipped.WithLabelValues(string(reason)).Inc()

	if err != nil {
		e.logger.Warn("commit skipped", "sha", task.SHA, "reason", string(reason), "err", err)

		return
	}

	e.logger.Info("commit skipped", "sha", task.SHA, "reason", string(reason))
}

// pause sleeps the configured inter-commit delay, waking early on
// cancellation.
func (e *Engine) pause(ctx context.Context) error {
	if e.delay <= 0 {
		return nil
	}

	timer := time.NewTimer(e.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// countRemaining counts the unique commits this run never reached:
// neither persisted already nor attempted before the walk stopped.
func (e *Engine) countRemaining(stream []tasks.CommitTask, attempted map[string]bool) int {
	seen := make(map[string]bool)
	remaining := 0

	for _, task := range stream {
		if seen[task.SHA] || attempted[task.SHA] || e.results.Contains(task.SHA) {
			continue
		}

		seen[task.SHA] = true
		remaining++
	}

	return remaining
}
