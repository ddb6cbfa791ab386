package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"siterent-backend/internal/jobs"
	"siterent-backend/internal/logger"
)

// Scheduler runs the ledger maintenance jobs on their cron schedules
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a scheduler and registers every configured job.
// Schedules use six fields (seconds first) and are evaluated in UTC.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config()

	if _, err := s.cron.AddFunc(cfg.ReconcileBalances, s.jobs.ReconcileBalances); err != nil {
		logger.Error("Failed to register ReconcileBalances job", "schedule", cfg.ReconcileBalances, "error", err)
		return err
	}

	if _, err := s.cron.AddFunc(cfg.RepairHistories, s.jobs.RepairHistories); err != nil {
		logger.Error("Failed to register RepairHistories job", "schedule", cfg.RepairHistories, "error", err)
		return err
	}

	logger.Info("All cron jobs registered successfully", "jobs", len(s.cron.Entries()))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
}

// Stop waits for running jobs to finish
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// NextRuns reports the next activation time of each registered job.
func (s *Scheduler) NextRuns() []time.Time {
	entries := s.cron.Entries()
	out := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Next)
	}
	return out
}

// IsRunning returns true if jobs are registered
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
