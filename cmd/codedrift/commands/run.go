// Package commands implements CLI command handlers for codedrift.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kaizenlab/codedrift/internal/config"
	"github.com/kaizenlab/codedrift/internal/engine"
	"github.com/kaizenlab/codedrift/internal/mirror"
	"github.com/kaizenlab/codedrift/internal/observability"
	"github.com/kaizenlab/codedrift/internal/store"
	"github.com/kaizenlab/codedrift/internal/tasks"
)

// ErrPendingCommits is returned when the run ends with commits still
// unprocessed, so batch schedulers rerun until the queue drains.
var ErrPendingCommits = errors.New("commits remain pending")

const metricsReadTimeout = 5 * time.Second

// RunCommand holds configuration and dependencies for the run command.
type RunCommand struct {
	configPath string
	verbose    bool

	cacheDir     string
	ephemeral    bool
	commitsPath  string
	pullsPath    string
	summaryPath  string
	detailPath   string
	suffix       string
	batchSize    int
	delay        time.Duration
	skipVendored bool
	metricsAddr  string
}

// NewRunCommand creates the run command with its flag set.
func NewRunCommand() *cobra.Command {
	cmd, _ := newRunCommand()

	return cmd
}

func newRunCommand() (*cobra.Command, *RunCommand) {
	rc := &RunCommand{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Measure metric deltas for the pending commit batch",
		Long: `Run walks the candidate-commit stream, skips commits that already
have a persisted summary, and measures the rest: parent resolution,
changed-file extraction, per-snapshot metrics, per-commit means.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return rc.Execute(cmd)
		},
	}

	cmd.Flags().StringVar(&rc.configPath, "config", "", "config file path (default: .codedrift.yaml in CWD or $HOME)")
	cmd.Flags().BoolVarP(&rc.verbose, "verbose", "v", false, "verbose logging")

	cmd.Flags().StringVar(&rc.cacheDir, "cache-dir", "", "repository cache root")
	cmd.Flags().BoolVar(&rc.ephemeral, "ephemeral", false, "use a run-scoped cache removed at teardown")
	cmd.Flags().StringVar(&rc.commitsPath, "commits", "", "candidate commit table (parquet)")
	cmd.Flags().StringVar(&rc.pullsPath, "pulls", "", "pull-request table (parquet)")
	cmd.Flags().StringVar(&rc.summaryPath, "output", "", "summary table (csv)")
	cmd.Flags().StringVar(&rc.detailPath, "detail", "", "per-file detail table (parquet), empty disables")
	cmd.Flags().StringVar(&rc.suffix, "suffix", "", "changed-file extension filter")
	cmd.Flags().IntVar(&rc.batchSize, "batch-size", 0, "max commits attempted this run, 0 means unlimited")
	cmd.Flags().DurationVar(&rc.delay, "delay", 0, "politeness pause between commits")
	cmd.Flags().BoolVar(&rc.skipVendored, "skip-vendored", false, "drop vendored paths from changed-file sets")
	cmd.Flags().StringVar(&rc.metricsAddr, "metrics-addr", "", "prometheus listen address, empty disables")

	return cmd, rc
}

// Execute runs one batch and prints the completion summary.
func (rc *RunCommand) Execute(cmd *cobra.Command) error {
	cfg, err := rc.loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := rc.newLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewRunMetrics()
	rc.serveMetrics(cfg, metrics, logger)

	stream, dropped, err := tasks.Load(cfg.Input.Commits, cfg.Input.Pulls)
	if err != nil {
		return fmt.Errorf("load task stream: %w", err)
	}

	results, err := store.OpenCSV(cfg.Output.Summary)
	if err != nil {
		return fmt.Errorf("open summary table: %w", err)
	}

	details, err := rc.openDetails(cfg)
	if err != nil {
		return err
	}

	if details != nil {
		defer func() {
			closeErr := details.Close()
			if closeErr != nil {
				logger.Warn("detail table close failed", "err", closeErr)
			}
		}()
	}

	mirrors, err := mirror.NewManager(cfg.Cache.Dir, cacheLifetime(cfg), cfg.Token, logger)
	if err != nil {
		return fmt.Errorf("prepare repository cache: %w", err)
	}

	defer func() {
		cleanupErr := mirrors.Cleanup()
		if cleanupErr != nil {
			logger.Warn("cache cleanup failed", "err", cleanupErr)
		}
	}()

	eng := engine.New(engine.Params{
		Mirrors:      mirrors,
		Store:        results,
		Details:      details,
		Metrics:      metrics,
		Logger:       logger,
		Suffix:       cfg.Run.Suffix,
		BatchSize:    cfg.Run.BatchSize,
		Delay:        cfg.Run.Delay,
		SkipVendored: cfg.Run.SkipVendored,
	})

	report, runErr := eng.Run(ctx, stream)

	printSummary(cmd.OutOrStdout(), report, dropped)

	if runErr != nil {
		return runErr
	}

	if report.Remaining > 0 {
		return fmt.Errorf("%w: %d", ErrPendingCommits, report.Remaining)
	}

	return nil
}

// loadConfig layers CLI flags over the file/env configuration. Only
// flags the user actually set override.
func (rc *RunCommand) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(rc.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("cache-dir") {
		cfg.Cache.Dir = rc.cacheDir
	}

	if flags.Changed("ephemeral") {
		cfg.Cache.Ephemeral = rc.ephemeral
	}

	if flags.Changed("commits") {
		cfg.Input.Commits = rc.commitsPath
	}

	if flags.Changed("pulls") {
		cfg.Input.Pulls = rc.pullsPath
	}

	if flags.Changed("output") {
		cfg.Output.Summary = rc.summaryPath
	}

	if flags.Changed("detail") {
		cfg.Output.Detail = rc.detailPath
	}

	if flags.Changed("suffix") {
		cfg.Run.Suffix = rc.suffix
	}

	if flags.Changed("batch-size") {
		cfg.Run.BatchSize = rc.batchSize
	}

	if flags.Changed("delay") {
		cfg.Run.Delay = rc.delay
	}

	if flags.Changed("skip-vendored") {
		cfg.Run.SkipVendored = rc.skipVendored
	}

	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = rc.metricsAddr
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return cfg, nil
}

func (rc *RunCommand) newLogger() *slog.Logger {
	level := slog.LevelInfo
	if rc.verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (rc *RunCommand) openDetails(cfg *config.Config) (*store.DetailWriter, error) {
	if cfg.Output.Detail == "" {
		return nil, nil
	}

	details, err := store.NewDetailWriter(cfg.Output.Detail)
	if err != nil {
		return nil, fmt.Errorf("open detail table: %w", err)
	}

	return details, nil
}

func (rc *RunCommand) serveMetrics(cfg *config.Config, metrics *observability.RunMetrics, logger *slog.Logger) {
	if cfg.Metrics.Addr == "" {
		return
	}

	server := &http.Server{
		Addr:        cfg.Metrics.Addr,
		Handler:     metrics.Handler(),
		ReadTimeout: metricsReadTimeout,
	}

	go func() {
		serveErr := server.ListenAndServe()
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Warn("metrics listener stopped", "addr", cfg.Metrics.Addr, "err", serveErr)
		}
	}()
}

func cacheLifetime(cfg *config.Config) mirror.Lifetime {
	if cfg.Cache.Ephemeral {
		return mirror.Ephemeral
	}

	return mirror.Persistent
}
