package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"siterent-backend/internal/config"
	"siterent-backend/internal/jobs"
	"siterent-backend/internal/logger"
	"siterent-backend/internal/repository/postgres"
	"siterent-backend/internal/scheduler"
	"siterent-backend/internal/service"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'reconcile-balances', 'repair-histories', 'all')")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting SiteRent Cronjob Runner...", "log_level", cfg.Log.Level)

	logger.Info("Connecting to database...", "driver", cfg.Database.Driver, "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := postgres.Open(
		cfg.Database.Driver,
		cfg.GetDatabaseConnectionString(),
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		time.Duration(cfg.Database.ConnMaxLifetime)*time.Minute,
	)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	if err := postgres.Migrate(context.Background(), db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)
	opts := service.Options{
		InvoicePrefix:        cfg.Ledger.InvoicePrefix,
		MaxRetries:           cfg.Ledger.TxMaxRetries,
		AllowNegativeBalance: cfg.Ledger.AllowNegativeBalance,
	}

	jobRunner := jobs.NewJobRunner(&jobs.Services{
		Sites:   service.NewSiteLedgerService(store, opts),
		History: service.NewHistoryService(store, opts),
	}, cfg.Scheduler)

	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to register cron jobs: %v", err)
	}
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
}

func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "reconcile-balances":
		jobRunner.ReconcileBalances()
	case "repair-histories":
		jobRunner.RepairHistories()
	case "all":
		jobRunner.RunAllNightlyJobs()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - reconcile-balances\n")
		fmt.Printf("  - repair-histories\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
}
