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
	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "github.com/noah-isme/study-hall-api/api/swagger"
	"github.com/noah-isme/study-hall-api/internal/handler"
	"github.com/noah-isme/study-hall-api/internal/repository"
	"github.com/noah-isme/study-hall-api/internal/service"
	"github.com/noah-isme/study-hall-api/pkg/cache"
	"github.com/noah-isme/study-hall-api/pkg/config"
	"github.com/noah-isme/study-hall-api/pkg/database"
	"github.com/noah-isme/study-hall-api/pkg/jobs"
	"github.com/noah-isme/study-hall-api/pkg/logger"
)

// @title Study Hall API
// @version 1.0.0
// @description Fee ledger and billing engine for study hall cabins
// @BasePath /api/v1
// @schemes http
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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db); err != nil {
		return err
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	studentRepo := repository.NewStudentRepository(db)
	hallRepo := repository.NewStudyHallRepository(db)
	runRepo := repository.NewAccrualRunRepository(redisClient, logr)
	defer runRepo.Close() //nolint:errcheck

	validate := service.NewValidator()
	metricsSvc := service.NewMetricsService()
	studentSvc := service.NewStudentService(studentRepo, hallRepo, validate, logr)
	hallSvc := service.NewStudyHallService(hallRepo, studentRepo, validate, logr)
	accrualSvc := service.NewAccrualService(studentRepo, runRepo, metricsSvc, logr)
	reportSvc := service.NewReportService(studentRepo, hallRepo, logr)
	exportSvc := service.NewExportService(reportSvc, nil, nil, logr)
	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		Username:          cfg.Auth.AdminUsername,
		PasswordHash:      cfg.Auth.AdminPasswordHash,
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
	})

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = cache.Pinger{Client: redisClient}
	}

	router := newRouter(cfg, logr, handlers{
		auth:      handler.NewAuthHandler(authSvc),
		students:  handler.NewStudentHandler(studentSvc),
		halls:     handler.NewStudyHallHandler(hallSvc),
		fees:      handler.NewFeeHandler(accrualSvc, reportSvc),
		reports:   handler.NewReportHandler(reportSvc, exportSvc),
		dashboard: handler.NewDashboardHandler(reportSvc),
		metrics:   handler.NewMetricsHandler(metricsSvc.Handler(), checks),
	}, authSvc, metricsSvc)

	if cfg.Accrual.SchedulerEnabled {
		owner := uuid.NewString()
		ticker := jobs.NewPeriodic("monthly-accrual", func(ctx context.Context) error {
			_, err := accrualSvc.RunScheduled(ctx, owner, cfg.Accrual.LockTTL)
			if errors.Is(err, service.ErrAccrualLocked) {
				logr.Info("accrual skipped; another instance holds the lock")
				return nil
			}
			return err
		}, jobs.PeriodicConfig{
			Interval:   cfg.Accrual.Interval,
			RunOnStart: true,
			Timeout:    cfg.Accrual.LockTTL,
			Logger:     logr,
		})
		ticker.Start(ctx)
		defer ticker.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "db_driver", cfg.Database.Driver, "auth", cfg.Auth.Enabled)
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

	logr.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logr.Info("server stopped")
	return nil
}
