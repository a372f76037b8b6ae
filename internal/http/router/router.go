package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/thetyagiayush/warhol-ringmaster/internal/config"
	"github.com/thetyagiayush/warhol-ringmaster/internal/database"
	"github.com/thetyagiayush/warhol-ringmaster/internal/http/handler"
	"github.com/thetyagiayush/warhol-ringmaster/internal/http/middleware"
	"github.com/thetyagiayush/warhol-ringmaster/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// APIPrefix is the root of every console endpoint
const APIPrefix = "/api/v1/console"

// JobSchedule lists scheduled background jobs and when they fire next
type JobSchedule interface {
	JobNames() []string
	NextRun(name string) (time.Time, bool)
}

type Router struct {
	cfg                 *config.Config
	logger              *zap.Logger
	db                  *gorm.DB
	filters             *repository.CustomFilterRepository
	schedule            JobSchedule
	rateLimiter         *middleware.RateLimiter
	numberHandler       *handler.NumberHandler
	callLogHandler      *handler.CallLogHandler
	blastHandler        *handler.BlastHandler
	costHandler         *handler.CostHandler
	notificationHandler *handler.NotificationHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	schedule JobSchedule,
	rateLimiter *middleware.RateLimiter,
	numberHandler *handler.NumberHandler,
	callLogHandler *handler.CallLogHandler,
	blastHandler *handler.BlastHandler,
	costHandler *handler.CostHandler,
	notificationHandler *handler.NotificationHandler,
) *Router {
	return &Router{
		cfg:                 cfg,
		logger:              logger,
		db:                  db,
		filters:             repository.NewCustomFilterRepository(db),
		schedule:            schedule,
		rateLimiter:         rateLimiter,
		numberHandler:       numberHandler,
		callLogHandler:      callLogHandler,
		blastHandler:        blastHandler,
		costHandler:         costHandler,
		notificationHandler: notificationHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Recovery(rt.logger))
	if rt.cfg.Metrics.Enabled {
		r.Use(middleware.Metrics)
	}
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.Limit)

	// Liveness
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/health/db", rt.filterStoreHealth)
	r.Get("/health/ready", rt.readiness)
	r.Get("/health/jobs", rt.jobsHealth)

	if rt.cfg.Metrics.Enabled {
		r.Handle(rt.cfg.Metrics.Path, promhttp.Handler())
	}

	r.Route(APIPrefix, func(r chi.Router) {
		r.Route("/numbers", func(r chi.Router) {
			r.Get("/", rt.numberHandler.List)
			r.Post("/", rt.numberHandler.Create)
			r.Get("/drafts", rt.numberHandler.ListDrafts)
			r.Delete("/drafts/{key}", rt.numberHandler.DiscardDraft)
			r.Route("/{id}", func(r chi.Router) {
				r.Delete("/", rt.numberHandler.Delete)
				r.Post("/duplicate", rt.numberHandler.Duplicate)
				r.Put("/text", rt.numberHandler.UpdateText)
				r.Put("/audio", rt.numberHandler.UpdateAudio)
				r.Post("/webhook", rt.numberHandler.ConfigureWebhook)
			})
		})

		r.Route("/call-logs", func(r chi.Router) {
			r.Get("/", rt.callLogHandler.List)
			r.Get("/export", rt.callLogHandler.Export)
			r.Get("/exports/*", rt.callLogHandler.DownloadArchived)
			r.Delete("/exports/*", rt.callLogHandler.DeleteArchived)
		})

		r.Route("/blast", func(r chi.Router) {
			r.Post("/refresh", rt.blastHandler.Refresh)
			r.Get("/recipients", rt.blastHandler.Recipients)
			r.Post("/recipients/toggle", rt.blastHandler.Toggle)
			r.Post("/recipients/select-all", rt.blastHandler.ToggleSelectAll)
			r.Put("/filters", rt.blastHandler.SetFilters)
			r.Get("/custom-filters", rt.blastHandler.ListCustomFilters)
			r.Post("/custom-filters", rt.blastHandler.CreateCustomFilter)
			r.Put("/message", rt.blastHandler.SetMessage)
			r.Post("/send", rt.blastHandler.Send)
			r.Get("/status", rt.blastHandler.Status)
		})

		r.Route("/cost", func(r chi.Router) {
			r.Get("/", rt.costHandler.Get)
			r.Post("/breakdown", rt.costHandler.Breakdown)
			r.Post("/budget", rt.costHandler.UpdateBudget)
		})

		r.Get("/notifications", rt.notificationHandler.Drain)
	})

	return r
}

// filterStoreHealth reports the custom filter database with pool statistics
func (rt *Router) filterStoreHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	stats, err := database.HealthCheckWithStats(rt.db)
	if err != nil {
		rt.logger.Error("Filter store health check failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "filter_store",
		})
		return
	}

	count, err := rt.filters.Count(r.Context())
	if err != nil {
		rt.logger.Error("Failed to count custom filters", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "filter_store",
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":         "healthy",
		"service":        "filter_store",
		"driver":         rt.cfg.FilterStore.Driver,
		"custom_filters": count,
		"stats": map[string]interface{}{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		},
	})
}

// readiness checks local dependencies. The calling backend is not probed:
// its availability is reported per operation.
func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	allHealthy := true

	if err := database.HealthCheck(rt.db); err != nil {
		rt.logger.Error("Filter store health check failed", zap.Error(err))
		checks["filter_store"] = map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		}
		allHealthy = false
	} else {
		checks["filter_store"] = map[string]interface{}{"status": "healthy"}
	}

	status := http.StatusOK
	overall := "ready"
	if !allHealthy {
		status = http.StatusServiceUnavailable
		overall = "not_ready"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": overall,
		"checks": checks,
	})
}

// jobsHealth lists scheduled jobs with their next run. Without a scheduler
// the list is empty.
func (rt *Router) jobsHealth(w http.ResponseWriter, r *http.Request) {
	jobs := []map[string]interface{}{}
	if rt.schedule != nil {
		for _, name := range rt.schedule.JobNames() {
			job := map[string]interface{}{"name": name}
			if next, ok := rt.schedule.NextRun(name); ok && !next.IsZero() {
				job["next_run"] = next.UTC().Format(time.RFC3339)
			}
			jobs = append(jobs, job)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"jobs":   jobs,
	})
}
