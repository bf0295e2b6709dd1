package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/kaizenlab/codedrift/internal/engine"
)

const timerResolution = 10 * time.Millisecond

// printSummary renders the end-of-run report. Counts per skip reason are
// listed individually so operators can tell clone failures from root
// commits at a glance.
func printSummary(out io.Writer, report *engine.RunReport, dropped int) {
	if report == nil {
		return
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(out)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateHeader = false

	tbl.AppendHeader(table.Row{"Stage", "Count"})
	tbl.AppendRow(table.Row{"attempted", humanize.Comma(int64(report.Attempted))})
	tbl.AppendRow(table.Row{"processed", humanize.Comma(int64(report.Processed))})

	for _, reason := range skipReasons(report) {
		label := fmt.Sprintf("skipped (%s)", reason)
		tbl.AppendRow(table.Row{label, humanize.Comma(int64(report.Skipped[reason]))})
	}

	if dropped > 0 {
		tbl.AppendRow(table.Row{"dropped (no pull request)", humanize.Comma(int64(dropped))})
	}

	tbl.AppendFooter(table.Row{"duration", report.Duration.Round(timerResolution).String()})
	tbl.Render()

	if report.Remaining > 0 {
		color.New(color.FgYellow).Fprintf(out, "%s commits still pending\n", humanize.Comma(int64(report.Remaining)))
		return
	}

	color.New(color.FgGreen).Fprintf(out, "all commits processed\n")
}

// skipReasons returns the observed skip reasons in stable order.
func skipReasons(report *engine.RunReport) []engine.SkipReason {
	reasons := make([]engine.SkipReason, 0, len(report.Skipped))
	for reason := range report.Skipped {
		reasons = append(reasons, reason)
	}

	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })

	return reasons
}
