package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"classroomhub/internal/config"
	"classroomhub/internal/database"
	"classroomhub/internal/handlers"
	"classroomhub/internal/logger"
	"classroomhub/internal/metrics"
	"classroomhub/internal/notify"
	"classroomhub/internal/security"
	"classroomhub/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "classroomhub")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startup := handlers.NewStartupStatus(
		handlers.StepDatabase,
		handlers.StepMigrations,
		handlers.StepServices,
		handlers.StepServer,
	)

	// Initialize database (supports sqlite, postgres, mysql)
	startup.SetCurrentStep(handlers.StepDatabase)
	db, err := database.Open(database.Options{
		Type: cfg.DatabaseType,
		Path: cfg.DatabasePath,
		URL:  cfg.DatabaseURL,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	startup.CompleteStep(handlers.StepDatabase)
	log.Info("database connection established", zap.String("type", cfg.DatabaseType))

	// Run migrations
	startup.SetCurrentStep(handlers.StepMigrations)
	applied, err := db.RunMigrations(ctx)
	if err != nil {
		return err
	}
	startup.CompleteStep(handlers.StepMigrations)
	log.Info("migrations completed", zap.Strings("applied", applied))

	// Initialize services
	startup.SetCurrentStep(handlers.StepServices)
	m := metrics.New()
	notifier, err := notify.New(ctx, notify.Options{
		AWSRegion:  cfg.AWSRegion,
		FromEmail:  cfg.SESFromEmail,
		FromName:   cfg.SESFromName,
		AppBaseURL: cfg.AppBaseURL,
	}, log)
	if err != nil {
		return err
	}

	tokens := security.NewTokenIssuer(cfg.SecretKey, cfg.AccessTokenTTL)
	authService := service.NewAuthService(db, tokens, cfg.SessionDuration)
	calendarService := service.NewCalendarService(db)
	messageService := service.NewMessageService(db, notifier, m, log)
	registryService := service.NewRegistryService(db)
	guardianService := service.NewGuardianService(db)

	loginLimiter := security.NewRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
	go loginLimiter.Run(ctx, 5*time.Minute)
	go cleanupExpiredSessions(ctx, authService, log)
	startup.CompleteStep(handlers.StepServices)

	router := handlers.NewRouter(handlers.Deps{
		Auth:         authService,
		Registry:     registryService,
		Guardians:    guardianService,
		Calendar:     calendarService,
		Messages:     messageService,
		Dashboard:    service.NewDashboardService(authService, calendarService, messageService),
		CSRF:         security.NewCSRFGenerator(cfg.SecretKey),
		LoginLimiter: loginLimiter,
		Metrics:      m,
		Startup:      startup,
		DB:           db,
		CORSOrigins:  cfg.CORSOrigins,
		TrustProxy:   cfg.TrustProxy,
		Logger:       log,
	})

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()
	startup.MarkReady()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}

	// Let in-flight broadcast notifications finish
	messageService.Wait()
	log.Info("server stopped")
	return nil
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(ctx context.Context, authService *service.AuthService, log *zap.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := authService.CleanupExpiredSessions(ctx)
			if err != nil {
				log.Error("failed to clean up expired sessions", zap.Error(err))
				continue
			}
			log.Info("expired sessions cleaned up", zap.Int64("removed", removed))
		}
	}
}
