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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/ceama-enrollment-api/internal/handler"
	"github.com/noah-isme/ceama-enrollment-api/internal/repository"
	"github.com/noah-isme/ceama-enrollment-api/internal/service"
	"github.com/noah-isme/ceama-enrollment-api/pkg/cache"
	"github.com/noah-isme/ceama-enrollment-api/pkg/config"
	"github.com/noah-isme/ceama-enrollment-api/pkg/database"
	"github.com/noah-isme/ceama-enrollment-api/pkg/export"
	"github.com/noah-isme/ceama-enrollment-api/pkg/jobs"
	"github.com/noah-isme/ceama-enrollment-api/pkg/logger"
	"github.com/noah-isme/ceama-enrollment-api/pkg/mail"
	"github.com/noah-isme/ceama-enrollment-api/pkg/storage"
	"github.com/noah-isme/ceama-enrollment-api/pkg/validation"
)

// @title CEAMA Enrollment API
// @version 1.0.0
// @description Public registration, tuition payments and staff payment review for CEAMA.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, staging in memory and catalog cache disabled", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close() //nolint:errcheck
	}

	app, err := build(cfg, db, rdb, logr)
	if err != nil {
		logr.Fatal("failed to assemble services", zap.Error(err))
	}
	app.queue.Start(ctx)
	defer app.queue.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, app, logr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		logr.Error("server failed", zap.Error(err))
	case <-ctx.Done():
		logr.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
		_ = srv.Close()
	}
}

// application holds the handlers and long-lived workers built at startup.
type application struct {
	metrics      *service.MetricsService
	queue        *jobs.Queue
	readiness    map[string]handler.Pinger
	auth         *handler.AuthHandler
	registration *handler.RegistrationHandler
	payments     *handler.PaymentHandler
	tracking     *handler.TrackingHandler
	catalog      *handler.CatalogHandler
	review       *handler.ReviewHandler
	dashboard    *handler.DashboardHandler
	exports      *handler.ExportHandler
	health       *handler.MetricsHandler
	tokens       *service.AuthService
	audit        *repository.AuditRepository
}

func build(cfg *config.Config, db *sqlx.DB, rdb *redis.Client, logr *zap.Logger) (*application, error) {
	validate := validation.New()
	metrics := service.NewMetricsService()

	users := repository.NewUserRepository(db)
	auditLog := repository.NewAuditRepository(db)
	guardians := repository.NewGuardianRepository(db)
	students := repository.NewStudentRepository(db)
	enrollments := repository.NewEnrollmentRepository(db)
	registrations := repository.NewRegistrationRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	plans := repository.NewPlanRepository(db)
	payments := repository.NewPaymentRepository(db)

	var (
		staged    service.StagingStore
		cacheRepo service.CacheRepository
	)
	readiness := map[string]handler.Pinger{"postgres": db}
	if rdb != nil {
		staged = repository.NewStagingRepository(rdb)
		cacheRepo = repository.NewCacheRepository(rdb)
		readiness["redis"] = handler.PingFunc(cache.Pinger(rdb))
	} else {
		staged = repository.NewMemoryStagingRepository()
	}

	cacheSvc := service.NewCacheService(cacheRepo, metrics, logr, service.CacheConfig{
		Enabled:    cfg.Catalog.CacheEnabled && cacheRepo != nil,
		Namespace:  "ceama",
		DefaultTTL: cfg.Catalog.CacheTTL,
	})
	catalog := service.NewCatalogService(assignments, plans, cacheSvc, cfg.Catalog.CacheTTL, logr)

	sender := mail.Sender{FromName: cfg.Mail.FromName, FromAddress: cfg.Mail.FromAddress, AppName: cfg.Mail.AppName}
	var mailer mail.Mailer
	switch cfg.Mail.Provider {
	case config.MailProviderSendgrid:
		if cfg.Mail.SendgridAPIKey == "" {
			return nil, errors.New("SENDGRID_API_KEY is required when MAIL_PROVIDER=sendgrid")
		}
		mailer = mail.NewSendgridMailer(cfg.Mail.SendgridAPIKey, sender)
	default:
		mailer = mail.NewLogMailer(sender, logr.Named("mail"))
	}
	notifications := service.NewNotificationService(mailer, service.NotificationConfig{SiteBaseURL: cfg.Mail.SiteBaseURL}, logr)

	files, err := storage.NewLocalStorage(cfg.Proofs.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("proof storage: %w", err)
	}
	signer := storage.NewSigner(cfg.Proofs.SignedURLSecret, cfg.Proofs.SignedURLTTL)
	proofs := service.NewProofService(payments, files, signer, auditLog, logr, service.ProofServiceConfig{
		MaxFileSize:  cfg.Proofs.MaxFileSizeBytes,
		MaxFiles:     cfg.Proofs.MaxFiles,
		AllowedMIMEs: cfg.Proofs.AllowedMIMEs,
		APIPrefix:    cfg.APIPrefix,
	})

	background := service.NewBackgroundJobs(notifications, proofs, metrics, logr)
	queue := jobs.NewQueue("background", background.Handle, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.MaxRetries,
		RetryDelay: cfg.Jobs.RetryDelay,
		OnDiscard: func(job jobs.Job, err error) {
			metrics.RecordNotificationFailure(job.Type)
		},
		Logger: logr.Named("jobs"),
	})
	background.UseQueue(queue)

	reconciler := service.NewReconciliationService(db, payments, enrollments, registrations, assignments, students, guardians, background, metrics, logr)

	staging := service.NewStagingService(staged, plans, assignments, guardians, catalog, validate, logr, cfg.Staging.TTL)

	reservations := service.NewReservationService(service.ReservationDeps{
		Tx:            db,
		Guardians:     guardians,
		Students:      students,
		Enrollments:   enrollments,
		Registrations: registrations,
		Seats:         assignments,
		Plans:         plans,
		Payments:      payments,
		Staging:       staging,
		Proofs:        proofs,
		Reconciler:    reconciler,
		Metrics:       metrics,
	}, service.ReservationConfig{MaxAmount: cfg.Payments.MaxAmount}, logr)

	reviews := service.NewPaymentReviewService(payments, enrollments, reconciler, notifications, auditLog, metrics, validate, logr)

	tracking := service.NewTrackingService(db, enrollments, payments, proofs, reconciler, background, export.NewPDFExporter(), validate, logr, service.TrackingConfig{
		MinAmount: cfg.Payments.MinRegularAmount,
		MaxAmount: cfg.Payments.MaxAmount,
		AppName:   cfg.Mail.AppName,
	})

	auth := service.NewAuthService(users, auditLog, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	analytics := repository.NewAnalyticsRepository(db)
	dashboard := service.NewDashboardService(service.DashboardServiceParams{
		Repository: analytics,
		Cache:      cacheSvc,
		Metrics:    metrics,
		Logger:     logr,
	})
	exports := service.NewExportService(analytics, export.NewCSVExporter(), export.NewPDFExporter(), cfg.Mail.AppName, logr)

	return &application{
		metrics:      metrics,
		queue:        queue,
		readiness:    readiness,
		tokens:       auth,
		auth:         handler.NewAuthHandler(auth),
		registration: handler.NewRegistrationHandler(staging),
		payments:     handler.NewPaymentHandler(reservations, validate),
		tracking:     handler.NewTrackingHandler(tracking),
		catalog:      handler.NewCatalogHandler(catalog),
		review:       handler.NewReviewHandler(reviews, proofs),
		dashboard:    handler.NewDashboardHandler(dashboard),
		exports:      handler.NewExportHandler(exports),
		audit:        auditLog,
		health:       handler.NewMetricsHandler(metrics.Handler(), readiness),
	}, nil
}
