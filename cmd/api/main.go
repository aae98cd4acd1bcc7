package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/mindsetu-api/api/swagger"
	"github.com/noah-isme/mindsetu-api/internal/handler"
	"github.com/noah-isme/mindsetu-api/internal/models"
	"github.com/noah-isme/mindsetu-api/internal/repository"
	"github.com/noah-isme/mindsetu-api/internal/router"
	"github.com/noah-isme/mindsetu-api/internal/service"
	"github.com/noah-isme/mindsetu-api/pkg/cache"
	"github.com/noah-isme/mindsetu-api/pkg/config"
	"github.com/noah-isme/mindsetu-api/pkg/database"
	"github.com/noah-isme/mindsetu-api/pkg/identity"
	"github.com/noah-isme/mindsetu-api/pkg/jobs"
	"github.com/noah-isme/mindsetu-api/pkg/llm"
	"github.com/noah-isme/mindsetu-api/pkg/logger"
	"github.com/noah-isme/mindsetu-api/pkg/mailer"
	corsmiddleware "github.com/noah-isme/mindsetu-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/mindsetu-api/pkg/middleware/requestid"
	"github.com/noah-isme/mindsetu-api/pkg/observability"
	"github.com/noah-isme/mindsetu-api/pkg/storage"
)

// @title Mindsetu API
// @version 1.0.0
// @description Student wellbeing platform: mood journal, AI companion, assignments and institute analytics.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	flushSentry, err := observability.InitSentry(cfg.Sentry, cfg.Env)
	if err != nil {
		logr.Warn("sentry disabled", zap.Error(err))
	}
	defer flushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		observability.CaptureErr(err)
		logr.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck

	if cfg.Migrations.AutoApply {
		if err := database.Migrate(db.DB, logr); err != nil {
			return err
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close() //nolint:errcheck

	gemini, err := llm.NewGemini(ctx, cfg.Gemini)
	if err != nil {
		return err
	}
	if !gemini.Enabled() {
		logr.Warn("GEMINI_API_KEY not set, AI features will return fallbacks")
	}

	var verifier identity.Verifier
	if cfg.Firebase.Enabled {
		fv, err := identity.NewFirebaseVerifier(ctx, cfg.Firebase)
		if err != nil {
			return fmt.Errorf("init firebase: %w", err)
		}
		verifier = fv
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	instituteRepo := repository.NewInstituteRepository(db)
	journalRepo := repository.NewJournalRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	reportRepo := repository.NewReportRepository(db)
	chatRepo := repository.NewChatHistoryRepository(redisClient, cfg.Chat.MaxTurns, cfg.Chat.HistoryTTL)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Analytics.CacheTTL, logr, true)

	queue := jobs.NewQueue("background", jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	service.NewNotificationService(mailer.New(cfg.Mail, logr), cfg.Mail.SignupURL, logr).Register(queue)

	authSvc := service.NewAuthService(userRepo, instituteRepo, verifier, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "mindsetu-api",
	})
	userSvc := service.NewUserService(userRepo, queue, cacheSvc, validate, logr)
	journalSvc := service.NewJournalService(journalRepo, gemini, cacheSvc, metrics, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, userRepo, cacheSvc, metrics, logr)
	analyticsSvc := service.NewAnalyticsService(userRepo, journalRepo, assignmentRepo, cacheSvc, metrics, logr, cfg.Analytics.CacheTTL)
	insightSvc := service.NewInsightService(analyticsSvc, gemini, metrics, logr)
	chatSvc := service.NewChatService(chatRepo, gemini, metrics, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Journals:    journalRepo,
		Assignments: assignmentSvc,
		Analytics:   analyticsSvc,
		Insights:    insightSvc,
		Cache:       cacheSvc,
		Logger:      logr,
		Config:      service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	handlers := router.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Roster:      handler.NewUserHandler(userSvc),
		Journal:     handler.NewJournalHandler(journalSvc),
		Assignments: handler.NewAssignmentHandler(assignmentSvc),
		Insights:    handler.NewInsightHandler(insightSvc),
		Chat:        handler.NewChatHandler(chatSvc),
	}
	if cfg.Analytics.Enabled {
		handlers.Analytics = handler.NewAnalyticsHandler(analyticsSvc)
	}
	if cfg.Dashboard.Enabled {
		handlers.Dashboard = handler.NewDashboardHandler(dashboardSvc)
	}

	var reportSvc *service.ReportService
	if cfg.Reports.Enabled {
		files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			return fmt.Errorf("init report storage: %w", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exporter := service.NewExportService(analyticsSvc, files, signer, service.ExportConfig{
			APIPrefix: cfg.PublicURL + cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		}, logr)
		worker := service.NewReportWorker(reportRepo, exporter, metrics, cfg.Reports.WorkerRetries, logr)
		queue.Handle(string(models.ReportTypeWellbeing), worker.Handle)

		reportSvc = service.NewReportService(reportRepo, queue, exporter, metrics, logr, service.ReportServiceConfig{
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
			MaxRetries:      cfg.Reports.WorkerRetries,
		})
		handlers.Reports = handler.NewReportHandler(reportSvc, logr)
	}

	queue.Start(ctx)
	defer queue.Stop()
	if reportSvc != nil {
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(observability.GinMiddleware()...)
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	ops := handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
		"postgres": db,
		"redis":    handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
	}, logr)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.Register(r, handlers, router.Config{
		Prefix:          cfg.APIPrefix,
		Tokens:          authSvc,
		Audit:           userRepo,
		Metrics:         metrics,
		Logger:          logr,
		FirebaseEnabled: cfg.Firebase.Enabled,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
