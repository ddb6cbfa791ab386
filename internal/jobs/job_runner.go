package jobs

import (
	"siterent-backend/internal/config"
	"siterent-backend/internal/logger"
	"siterent-backend/internal/service"
)

// JobRunner coordinates the scheduled ledger maintenance jobs
type JobRunner struct {
	services *Services
	config   config.SchedulerConfig
}

// Services holds the service dependencies needed by jobs
type Services struct {
	Sites   service.SiteLedgerService
	History service.HistoryService
}

func NewJobRunner(services *Services, cfg config.SchedulerConfig) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
	}
}

// Config returns the scheduler settings the runner was built with
func (jr *JobRunner) Config() config.SchedulerConfig {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAllNightlyJobs runs every maintenance job once (for manual execution)
func (jr *JobRunner) RunAllNightlyJobs() {
	jr.ReconcileBalances()
	jr.RepairHistories()
}
