package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thetyagiayush/warhol-ringmaster/internal/backend"
	"github.com/thetyagiayush/warhol-ringmaster/internal/config"
	"github.com/thetyagiayush/warhol-ringmaster/internal/database"
	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
	"github.com/thetyagiayush/warhol-ringmaster/internal/http/handler"
	"github.com/thetyagiayush/warhol-ringmaster/internal/http/middleware"
	"github.com/thetyagiayush/warhol-ringmaster/internal/http/router"
	"github.com/thetyagiayush/warhol-ringmaster/internal/jobs"
	"github.com/thetyagiayush/warhol-ringmaster/internal/logger"
	"github.com/thetyagiayush/warhol-ringmaster/internal/repository"
	"github.com/thetyagiayush/warhol-ringmaster/internal/service"
	"github.com/thetyagiayush/warhol-ringmaster/internal/storage"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting console",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Environment),
		zap.Int("port", cfg.App.Port),
	)

	// Custom filter store
	db, err := database.NewDatabase(&cfg.FilterStore, log)
	if err != nil {
		return fmt.Errorf("failed to open filter store: %w", err)
	}
	if cfg.FilterStore.AutoMigrate {
		if err := database.Migrate(db, cfg.FilterStore.Driver); err != nil {
			return fmt.Errorf("failed to migrate filter store: %w", err)
		}
		log.Info("Filter store migrated")
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	client, err := backend.NewClient(&cfg.Backend, log)
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}

	// Export archive is optional; a nil archive disables it
	var archive storage.Archive
	if cfg.Export.ArchiveEnabled {
		archive, err = storage.NewArchive(&cfg.Storage, log)
		if err != nil {
			return fmt.Errorf("failed to initialize export archive: %w", err)
		}
		log.Info("Export archive initialized", zap.String("mode", cfg.Storage.Mode))
	}

	// Managers
	feed := service.NewNotificationFeed(service.DefaultFeedCapacity)
	filterRepo := repository.NewCustomFilterRepository(db)

	numberRegistry := service.NewNumberRegistry(client, feed, log)
	callLogView := service.NewCallLogView(client, archive, &cfg.Export, feed, log)
	blastDispatcher := service.NewBlastDispatcher(client, filterRepo, &cfg.Blast, feed, log)
	if filters, err := blastDispatcher.LoadCustomFilters(context.Background()); err != nil {
		log.Warn("Custom filters unavailable at startup, will retry on first use", zap.Error(err))
	} else {
		log.Info("Custom filters loaded", zap.Int("count", len(filters)))
	}
	costDashboard := service.NewCostDashboard(client, feed, log)

	var scheduler *jobs.Scheduler
	if cfg.BudgetWatch.Enabled {
		scheduler = jobs.NewScheduler(log)
		job := jobs.NewBudgetWatchJob(costDashboard, cfg.BudgetWatch.LowBudgetThreshold, cfg.BudgetWatch.Timeout(), log)
		if err := scheduler.AddJob(jobs.BudgetWatchJobName, cfg.BudgetWatch.Cron, job.Run); err != nil {
			log.Error("Failed to register budget watch job", zap.Error(err))
			scheduler = nil
		} else {
			scheduler.Start()
			log.Info("Scheduler started with budget watch job",
				zap.String("cron_expr", cfg.BudgetWatch.Cron),
				zap.Float64("threshold", cfg.BudgetWatch.LowBudgetThreshold),
			)
		}
	} else {
		log.Info("Budget watch disabled")
	}

	var schedule router.JobSchedule
	if scheduler != nil {
		schedule = scheduler
	}

	// HTTP layer
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	rt := router.NewRouter(
		cfg,
		log,
		db,
		schedule,
		rateLimiter,
		handler.NewNumberHandler(numberRegistry, cfg.Storage.MaxUploadSizeMB, log),
		handler.NewCallLogHandler(callLogView, log),
		handler.NewBlastHandler(blastDispatcher, log),
		handler.NewCostHandler(costDashboard, log),
		handler.NewNotificationHandler(feed),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		// a blast in flight is allowed to finish its batches
		if blastDispatcher.Status().State == domain.BlastStateSending {
			log.Info("Waiting for text blast to finish")
			blastDispatcher.Wait()
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
