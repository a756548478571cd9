package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/consultoria-api/api/swagger"
	"github.com/noah-isme/consultoria-api/internal/handler"
	"github.com/noah-isme/consultoria-api/internal/middleware"
	"github.com/noah-isme/consultoria-api/internal/repository"
	"github.com/noah-isme/consultoria-api/internal/service"
	"github.com/noah-isme/consultoria-api/pkg/cache"
	"github.com/noah-isme/consultoria-api/pkg/config"
	"github.com/noah-isme/consultoria-api/pkg/database"
	"github.com/noah-isme/consultoria-api/pkg/jobs"
	"github.com/noah-isme/consultoria-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/consultoria-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/consultoria-api/pkg/middleware/requestid"
	"github.com/noah-isme/consultoria-api/pkg/storage"
)

// @title Consultoria API
// @version 1.0.0
// @description Student management for a training consultancy: records, bulk import, export and statistics.
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		applied, err := database.NewMigrator(db, logr).Migrate(ctx)
		if err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
		logr.Info("database migrated", zap.Int("applied", applied))
	}

	metricsSvc := service.NewMetricsService()
	cacheSvc := newCacheService(cfg, metricsSvc, logr)
	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	planRepo := repository.NewPlanTypeRepository(db)
	phaseRepo := repository.NewTrainingPhaseRepository(db)

	planSvc := service.NewLookupService(planRepo, cacheSvc, validate, cfg.Cache.LookupTTL, logr)
	phaseSvc := service.NewLookupService(phaseRepo, cacheSvc, validate, cfg.Cache.LookupTTL, logr)
	studentSvc := service.NewStudentService(studentRepo, planRepo, phaseRepo, validate, metricsSvc, logr)
	importSvc := service.NewImportService(studentRepo, service.NewReferenceResolver(planRepo, phaseRepo), metricsSvc, logr, service.ImportOptions{
		StrictMode:           cfg.Import.StrictMode,
		EnforcePlanDateOrder: cfg.Import.EnforcePlanDateOrder,
	})
	statsSvc := service.NewStatsService(studentRepo, logr)
	reportSvc := service.NewReportService(studentRepo, logr)

	exportCfg := service.ExportConfig{
		APIPrefix:      cfg.APIPrefix,
		ExpiringWindow: cfg.Export.ExpiringWindow,
		ResultTTL:      cfg.ExportJobs.SignedURLTTL,
	}

	var (
		exportSvc  *service.ExportService
		jobHandler *handler.ExportHandler
	)
	if cfg.ExportJobs.Enabled {
		store, err := storage.NewLocalStorage(cfg.ExportJobs.StorageDir)
		if err != nil {
			logr.Fatal("failed to prepare export storage", zap.String("dir", cfg.ExportJobs.StorageDir), zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.ExportJobs.SignedURLSecret, cfg.ExportJobs.SignedURLTTL)
		exportSvc = service.NewExportService(studentRepo, store, signer, metricsSvc, exportCfg, logr)

		jobRepo := repository.NewExportJobRepository(db)
		worker := service.NewExportWorker(jobRepo, exportSvc, cfg.ExportJobs.WorkerRetries, logr)
		queue := jobs.NewQueue("student-exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.ExportJobs.WorkerConcurrency,
			MaxRetries: cfg.ExportJobs.WorkerRetries,
			RetryDelay: 2 * time.Second,
			Logger:     logr,
		})
		queue.Start(ctx)
		defer queue.Stop()

		jobSvc := service.NewExportJobService(jobRepo, queue, exportSvc, logr, service.ExportJobConfig{
			ResultTTL:       cfg.ExportJobs.SignedURLTTL,
			CleanupInterval: cfg.ExportJobs.CleanupInterval,
		})
		jobSvc.RecoverPendingJobs(ctx)
		jobSvc.StartCleanup(ctx)
		jobHandler = handler.NewExportHandler(exportSvc, jobSvc)
	} else {
		exportSvc = service.NewExportService(studentRepo, nil, nil, metricsSvc, exportCfg, logr)
		jobHandler = handler.NewExportHandler(exportSvc, nil)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc, "/metrics", "/health", "/ready"))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	r.GET("/metrics/summary", metricsHandler.Snapshot)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(apiPrefix(cfg.APIPrefix)), routes{
		students: handler.NewStudentHandler(studentSvc),
		imports:  handler.NewImportHandler(importSvc, cfg.Import.MaxFileSizeBytes),
		exports:  jobHandler,
		stats:    handler.NewStatsHandler(statsSvc, reportSvc),
		plans:    handler.NewLookupHandler(planSvc),
		phases:   handler.NewLookupHandler(phaseSvc),
	})

	serve(ctx, logr, cfg, r, db)
}

type routes struct {
	students *handler.StudentHandler
	imports  *handler.ImportHandler
	exports  *handler.ExportHandler
	stats    *handler.StatsHandler
	plans    *handler.LookupHandler
	phases   *handler.LookupHandler
}

func registerRoutes(api *gin.RouterGroup, h routes) {
	students := api.Group("/students")
	students.GET("", h.students.List)
	students.POST("", h.students.Create)
	students.POST("/import", h.imports.Import)
	students.GET("/import/template", h.imports.Template)
	students.GET("/export", h.exports.Export)
	students.GET("/:id", h.students.Get)
	students.PUT("/:id", h.students.Update)
	students.DELETE("/:id", h.students.Delete)

	api.GET("/stats", h.stats.Stats)
	api.GET("/reports", h.stats.Summary)
	api.GET("/reports/:type", h.stats.Report)

	api.POST("/exports", h.exports.CreateJob)
	api.GET("/exports/:id", h.exports.JobStatus)
	api.GET("/exports/download/:token", h.exports.Download)

	mountLookup(api.Group("/plan-types"), h.plans)
	mountLookup(api.Group("/training-phases"), h.phases)
	api.GET("/lookups/payment-methods", handler.PaymentMethods)
}

func mountLookup(group *gin.RouterGroup, h *handler.LookupHandler) {
	group.GET("", h.List)
	group.POST("", h.Create)
	group.PUT("/:id", h.Update)
	group.DELETE("/:id", h.Delete)
}

func newCacheService(cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) *service.CacheService {
	if !cfg.Cache.Enabled {
		return nil
	}
	client, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, lookup cache disabled", zap.Error(err))
		return nil
	}
	repo := repository.NewCacheRepository(client, logr)
	return service.NewCacheService(repo, metrics, cfg.Cache.LookupTTL, logr, true)
}

func apiPrefix(raw string) string {
	prefix := "/" + strings.Trim(raw, "/")
	if prefix == "/" {
		return "/api/v1"
	}
	return prefix
}

func serve(ctx context.Context, logr *zap.Logger, cfg *config.Config, h http.Handler, db *sqlx.DB) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "prefix", apiPrefix(cfg.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped", zap.Int("open_db_connections", db.Stats().OpenConnections))
}
