package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"medequip-marketplace/internal/config"
	"medequip-marketplace/internal/jobs"
	"medequip-marketplace/internal/logger"
	"medequip-marketplace/internal/metrics"
	"medequip-marketplace/internal/repository"
	"medequip-marketplace/internal/repository/memory"
	"medequip-marketplace/internal/repository/postgres"
	"medequip-marketplace/internal/scheduler"
	"medequip-marketplace/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (expire-quotes, report-bottlenecks, all)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting medequip cronjob runner...", "log_level", cfg.Log.Level)

	store := openStore(cfg)
	metrics.Init()

	// Initialize Services
	var notifier service.Notifier = service.NewLogNotifier()
	if cfg.Notifications.Provider == config.NotifierSendGrid {
		notifier = service.NewSendGridNotifier(
			cfg.Notifications.SendGridAPIKey,
			cfg.Notifications.FromEmail,
			cfg.Notifications.FromName,
			store.Organizations(),
		)
	}
	jobServices := &jobs.Services{
		Quotes: service.NewQuoteService(store, service.NewAuditTrail(), notifier),
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(store, jobServices, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := runJobOnce(jobRunner, *runOnce); err != nil {
			logger.Error("Job execution failed", "job", *runOnce, "error", err)
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		logger.Error("Failed to register jobs", "error", err)
		log.Fatalf("Failed to register jobs: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.", "entries", cronScheduler.Entries())

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped")
}

func openStore(cfg *config.Config) repository.Store {
	if cfg.Database.Type == config.DatabaseTypeMemory {
		logger.Warn("Using in-memory store; jobs will only see data created by this process")
		return memory.NewStore()
	}
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := postgres.Connect(cfg.GetDatabaseConnectionString(), cfg.Database.MaxOpenConns, cfg.ConnectTimeout())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Info("Database connection established")
	return postgres.NewStore(db)
}

// runJobOnce runs a specific job once
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) error {
	switch jobName {
	case "expire-quotes":
		return jobRunner.ExpireQuotes()
	case "report-bottlenecks":
		return jobRunner.ReportBottlenecks()
	case "all":
		return jobRunner.RunAll()
	default:
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - expire-quotes\n")
		fmt.Printf("  - report-bottlenecks\n")
		fmt.Printf("  - all\n")
		return fmt.Errorf("unknown job %q", jobName)
	}
}
