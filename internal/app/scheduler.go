package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"trawlscope/internal/config"
	apperrors "trawlscope/internal/errors"
	"trawlscope/internal/infrastructure"
	"trawlscope/internal/operations"
	"trawlscope/pkg/contracts/domain"
)

// Scheduler triggers periodic pipeline runs on a cron spec. A tick that
// lands while a run is already active is skipped, not queued.
type Scheduler struct {
	cron    *cron.Cron
	manager *operations.Manager
	spec    string
	logger  *slog.Logger
}

// NewScheduler creates a scheduler from config. The caller decides whether
// to Start it based on cfg.Enabled.
func NewScheduler(cfg config.SchedulerConfig, manager *operations.Manager, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(),
		manager: manager,
		spec:    cfg.Spec,
		logger:  logger.With(slog.String("component", "scheduler")),
	}
}

// Start registers the refresh job and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.refresh)
	if err != nil {
		return fmt.Errorf("invalid scheduler spec %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", slog.String("spec", s.spec))
	return nil
}

// Stop halts the cron loop and waits for an in-flight tick to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.logger.Warn("scheduler stop timed out waiting for running job")
	}
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) refresh() {
	ctx := infrastructure.ContextWithTraceID(context.Background())
	s.logger.Info("scheduled pipeline refresh starting",
		slog.String("trace_id", infrastructure.GetTraceID(ctx)))

	run, err := s.manager.Run(ctx, domain.RunTriggerScheduled)
	if err != nil {
		if errors.Is(err, apperrors.ErrRunAlreadyActive) {
			s.logger.Warn("scheduled refresh skipped, run already active")
			return
		}
		s.logger.Error("scheduled refresh failed",
			slog.String("run_id", run.ID),
			slog.String("error", err.Error()))
		return
	}

	s.logger.Info("scheduled refresh completed",
		slog.String("run_id", run.ID),
		slog.String("status", string(run.Status)))
}
