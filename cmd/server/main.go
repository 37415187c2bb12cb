package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/config"
	"github.com/stemsi/perizinan-backend/internal/database"
	"github.com/stemsi/perizinan-backend/internal/handler"
	"github.com/stemsi/perizinan-backend/internal/logger"
	"github.com/stemsi/perizinan-backend/internal/middleware"
	"github.com/stemsi/perizinan-backend/internal/policy"
	"github.com/stemsi/perizinan-backend/internal/repository"
	"github.com/stemsi/perizinan-backend/internal/router"
	"github.com/stemsi/perizinan-backend/internal/service"
	"github.com/stemsi/perizinan-backend/internal/session"
	"github.com/stemsi/perizinan-backend/internal/store"
	"github.com/stemsi/perizinan-backend/internal/validator"
	"github.com/stemsi/perizinan-backend/internal/worker"
)

// sessionMaxIdle is how long an untouched session store is kept in memory.
const sessionMaxIdle = 30 * time.Minute

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", cfg.StoreBackend).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Perizinan Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL (identity provider) ─────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Record Store ──────────────────────────────────────────────────
	var records store.Store
	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		log.Warn().Msg("Using in-memory record store, data is lost on restart")
		records = store.NewMemoryStore()
	default:
		records = store.NewRedisStore(rdb, log)
	}

	authz, err := policy.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load access policy")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	identityRepo := repository.NewIdentityRepository(pool)
	sessionTokenRepo := repository.NewSessionTokenRepository(rdb)
	compensationRepo := repository.NewCompensationRepository(rdb)
	userRepo := repository.NewUserRepository(records)
	teacherRepo := repository.NewTeacherRepository(records)
	studentRepo := repository.NewStudentRepository(records)
	scheduleRepo := repository.NewScheduleRepository(records)
	perizinanRepo := repository.NewPerizinanRepository(records)

	// ─── Initialize Services ──────────────────────────────────────────
	gateway := service.NewIdentityGateway(cfg, identityRepo, sessionTokenRepo, log)
	resolver := service.NewRoleResolver(userRepo, cfg.RoleRetryDelay, log)
	sessions := session.NewManager(gateway, resolver, cfg.SessionWaitTimeout, log)
	defer sessions.Close()

	perizinanService := service.NewPerizinanService(perizinanRepo, studentRepo, authz, log)
	provisioningService := service.NewProvisioningService(gateway, userRepo, teacherRepo, compensationRepo, authz, log)
	rosterService := service.NewRosterService(studentRepo, authz, log)
	scheduleService := service.NewScheduleService(scheduleRepo, teacherRepo, authz, log)
	reportService := service.NewReportService(cfg, perizinanService, teacherRepo, scheduleRepo, authz, log)
	backupService := service.NewBackupService(records, authz, log)
	mediaService := service.NewMediaService(cfg, authz, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(sessions),
		Dashboard: handler.NewDashboardHandler(),
		Perizinan: handler.NewPerizinanHandler(perizinanService),
		Student:   handler.NewStudentHandler(rosterService),
		Teacher:   handler.NewTeacherHandler(provisioningService, identityRepo),
		Schedule:  handler.NewScheduleHandler(scheduleService),
		Report:    handler.NewReportHandler(reportService, backupService),
		Media:     handler.NewMediaHandler(mediaService),
		Feed:      handler.NewFeedHandler(perizinanService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	stopLimiter := make(chan struct{})

	loginLimiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute)
	compensationWorker := worker.NewCompensationWorker(compensationRepo, gateway, userRepo, log)

	go compensationWorker.Start(workerCtx)
	go sessions.Start(workerCtx, sessionMaxIdle)
	go loginLimiter.Start(stopLimiter)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(router.Deps{
		Tokens:       gateway,
		Sessions:     sessions,
		Authz:        authz,
		LoginLimiter: loginLimiter,
	}, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}
	srv.RegisterOnShutdown(handlers.Feed.Close)

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests. Feed streams are closed by the
	// registered shutdown hook.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers. Failed orphans are requeued with a
	// detached context, so nothing queued is lost.
	workerCancel()
	close(stopLimiter)

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
