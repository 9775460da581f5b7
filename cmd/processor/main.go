package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"trawlscope/internal/aggregate"
	"trawlscope/internal/config"
	"trawlscope/internal/exporter"
	"trawlscope/internal/infrastructure"
	"trawlscope/internal/loader"
	"trawlscope/internal/operations"
	"trawlscope/internal/survey"
	"trawlscope/pkg/contracts"
	"trawlscope/pkg/contracts/domain"
)

func main() {
	rawPath := flag.String("raw", "", "raw survey snapshot to process (defaults to the configured path)")
	format := flag.String("format", "", "raw snapshot format, csv or xlsx (defaults to the configured format)")
	timeout := flag.Duration("timeout", 0, "abort the run after this duration (defaults to the configured run timeout)")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(contracts.GetFullVersionString())
		return
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("logger init failed, falling back to default", slog.String("error", err.Error()))
		logger = slog.Default()
	}

	paths := cfg.ResolvedPaths()
	if paths == nil {
		logger.Error("configuration paths were not resolved")
		os.Exit(1)
	}
	if *rawPath != "" {
		paths.RawSnapshot = *rawPath
	}

	rawFormat := cfg.Pipeline.RawFormat
	if *format != "" {
		rawFormat = *format
	}
	runTimeout := cfg.Pipeline.RunTimeout
	if *timeout > 0 {
		runTimeout = *timeout
	}

	logger.Info("starting survey pipeline run",
		slog.String("raw_snapshot", paths.RawSnapshot),
		slog.String("format", rawFormat),
		slog.Duration("timeout", runTimeout))

	// The one-shot processor stops at the export step. Publishing feeds the
	// in-memory dataset of the dashboard server and has no effect here.
	csvWriter := exporter.NewCSVWriter(logger, cfg.Pipeline.WriteBOM)
	steps := []operations.Step{
		operations.NewLoadStep(loader.New(logger), paths, rawFormat, logger),
		operations.NewCleanStep(survey.NewPipeline(logger), logger),
		operations.NewAggregateStep(aggregate.NewEngine(logger, cfg.Pipeline.Parallelism), logger),
		operations.NewExportStep(exporter.NewSnapshotExporter(csvWriter), paths, logger),
	}

	manager := operations.NewManager(logger, steps, &operations.ManagerOptions{
		Timeout: runTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = infrastructure.EnsureTraceID(ctx)

	run, err := manager.Run(ctx, domain.RunTriggerManual)
	if err != nil {
		logger.Error("pipeline run failed",
			slog.String("run_id", run.ID),
			slog.String("status", string(run.Status)),
			slog.String("error", err.Error()))
		os.Exit(1)
	}

	if audit := run.Audit; audit != nil {
		logger.Info("cleaning summary",
			slog.Int("raw_rows", audit.RawRows),
			slog.Int("clean_rows", audit.CleanRows),
			slog.Int("rows_dropped", audit.TotalDropped()),
			slog.Int("species_eligible", audit.SpeciesEligible),
			slog.Duration("elapsed", audit.Elapsed))
	}

	logger.Info("pipeline run completed",
		slog.String("run_id", run.ID),
		slog.String("clean_snapshot", paths.CleanSnapshot),
		slog.String("annual_summary", paths.AnnualSummary),
		slog.String("seasonal_summary", paths.SeasonalSummary))
}
