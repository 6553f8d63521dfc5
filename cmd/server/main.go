package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"hostelhub.backend/internal/config"
	"hostelhub.backend/internal/domain/entities"
	"hostelhub.backend/internal/infrastructure/datasources/postgres"
	"hostelhub.backend/internal/infrastructure/metrics"
	"hostelhub.backend/internal/infrastructure/notification"
	"hostelhub.backend/internal/infrastructure/repositories"
	"hostelhub.backend/internal/infrastructure/storage"
	"hostelhub.backend/internal/interfaces/http/handlers"
	"hostelhub.backend/internal/interfaces/http/middleware"
	"hostelhub.backend/internal/usecases"
	"hostelhub.backend/pkg/crypto"
	"hostelhub.backend/pkg/jwt"
	"hostelhub.backend/pkg/logger"
	"hostelhub.backend/pkg/redis"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	initLog    = logger.Init
	initRedis  = redis.Init
	openSQL    = postgres.NewConnection
	openDB     = func(sqlDB *sql.DB) (*gorm.DB, error) {
		return gorm.Open(gormpostgres.New(gormpostgres.Config{
			Conn:                 sqlDB,
			PreferSimpleProtocol: true,
		}), &gorm.Config{})
	}
	migrate   = repositories.AutoMigrate
	runServer = func(srv *http.Server) error { return srv.ListenAndServe() }
	stopOn    = func() (<-chan os.Signal, func()) {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		return quit, func() { signal.Stop(quit) }
	}
)

func main() {
	if err := runMainProcess(); err != nil {
		log.Fatal(err)
	}
}

// app is the wired service: the HTTP router plus what must be drained on
// shutdown.
type app struct {
	router     *gin.Engine
	dispatcher *notification.Dispatcher
	auth       *usecases.AuthUsecase
}

func runMainProcess() error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := loadCfg()

	initLog(cfg.Server.Env)
	if level, err := zapcore.ParseLevel(cfg.Server.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	ctx := context.Background()
	logger.Info(ctx, "Logger initialized", zap.String("env", cfg.Server.Env))

	crypto.SetCost(cfg.Security.BcryptCost)

	if err := initRedis(cfg.Redis.URL, cfg.Redis.PASSWORD); err != nil {
		logger.Error(ctx, "Failed to initialize Redis", zap.Error(err))
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer redis.Close()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	sqlDB, err := openSQL(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer sqlDB.Close()

	db, err := openDB(sqlDB)
	if err != nil {
		return fmt.Errorf("failed to initialize gorm: %w", err)
	}
	if err := migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info(ctx, "Connected to PostgreSQL")

	checks := map[string]handlers.DependencyCheck{
		"database": sqlDB.PingContext,
		"redis": func(ctx context.Context) error {
			return redis.GetClient().Ping(ctx).Err()
		},
	}
	a, err := newApp(cfg, db, checks)
	if err != nil {
		return err
	}

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		admin, created, err := a.auth.BootstrapAdmin(ctx, &entities.CreateUserInput{
			Email:    cfg.Admin.Email,
			Name:     cfg.Admin.Name,
			Password: cfg.Admin.Password,
		})
		if err != nil {
			return fmt.Errorf("failed to bootstrap admin: %w", err)
		}
		logger.Info(ctx, "Admin bootstrap done", zap.String("user_id", admin.ID.String()), zap.Bool("created", created))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, srv, a, cfg.Server.ShutdownTimeout)
}

// serve runs srv until it fails or a stop signal arrives, then drains
// in-flight requests and pending notifications within timeout.
func serve(ctx context.Context, srv *http.Server, a *app, timeout time.Duration) error {
	quit, stop := stopOn()
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "HostelHub backend starting", zap.String("addr", srv.Addr))
		errCh <- runServer(srv)
	}()

	var runErr error
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("failed to start server: %w", err)
		}
	case sig := <-quit:
		logger.Info(ctx, "Shutting down server", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn(ctx, "Server shutdown incomplete", zap.Error(err))
	}
	if err := a.dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn(ctx, "Notifications not drained", zap.Error(err))
	}
	return runErr
}

// newApp wires repositories, usecases and handlers over db
func newApp(cfg *config.Config, db *gorm.DB, checks map[string]handlers.DependencyCheck) (*app, error) {
	m := metrics.New()

	vault, err := storage.NewLocalVault(cfg.Vault.Dir, cfg.Vault.PublicBaseURL, cfg.Vault.MaxUploadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document vault: %w", err)
	}

	dispatcher := notification.NewDispatcher(cfg.Notification.Buffer, m)
	dispatcher.Subscribe("log", notification.LogHandler)
	if cfg.Notification.Enabled {
		dispatcher.Subscribe("redis", notification.RedisPublisher(cfg.Notification.Channel))
	}

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)

	userRepo := repositories.NewUserRepository(db)
	roleChangeRepo := repositories.NewRoleChangeRepository(db)
	uow := repositories.NewUnitOfWork(db)
	authorizer := usecases.NewRoleAuthorizer(userRepo)

	authUsecase := usecases.NewAuthUsecase(userRepo, jwtService)
	verificationUsecase := usecases.NewVerificationUsecase(userRepo, roleChangeRepo, uow, vault, authorizer, dispatcher, m)
	accountUsecase := usecases.NewAccountUsecase(userRepo, roleChangeRepo, uow, authorizer, dispatcher, m)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggerMiddleware("/health", "/metrics"))
	applyCORSMiddleware(r, cfg.Security.AllowedOrigins)

	registerHealthRoute(r, handlers.NewHealthHandler(checks))
	registerMetricsRoute(r, m.Handler())
	registerAPIV1Routes(r, routeDeps{
		authHandler:         handlers.NewAuthHandler(authUsecase, cfg.Server.Env == "production"),
		verificationHandler: handlers.NewVerificationHandler(verificationUsecase, cfg.Vault.MaxUploadBytes),
		adminHandler:        handlers.NewAdminHandler(verificationUsecase, accountUsecase),
		authMiddleware:      middleware.AuthMiddleware(jwtService),
		activeMiddleware:    middleware.RequireActiveAccount(accountUsecase),
		idempotency:         middleware.IdempotencyMiddleware(cfg.Security.IdempotencyTTL),
	})

	return &app{router: r, dispatcher: dispatcher, auth: authUsecase}, nil
}
