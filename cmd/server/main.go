package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/aldidev/snipurl/internal/api"
	"github.com/aldidev/snipurl/internal/app"
	"github.com/aldidev/snipurl/internal/app/maintenance"
	iauth "github.com/aldidev/snipurl/internal/auth"
	"github.com/aldidev/snipurl/internal/cache"
	"github.com/aldidev/snipurl/internal/database"
	"github.com/aldidev/snipurl/internal/middleware"
	"github.com/aldidev/snipurl/internal/services"
	"github.com/aldidev/snipurl/pkg/logger"
	"github.com/aldidev/snipurl/pkg/mail"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("snipurl-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := ensureSecretsPresent(cfg); err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	dbStore := cache.NewDatabaseStore(db)

	var store cache.Store = dbStore
	var redisStore *cache.RedisStore
	if cfg.Cache.Redis.Enabled {
		redisStore, err = cache.NewRedisStore(ctx, cfg.RedisSettings())
		if err != nil {
			log.Warn("redis unavailable; falling back to database-backed cache", zap.Error(err))
		} else {
			store = redisStore
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}
	defer func() {
		if redisStore != nil {
			_ = redisStore.Close()
		}
	}()

	tokenSvc, err := iauth.NewTokenService(cfg.TokenSettings())
	if err != nil {
		return fmt.Errorf("initialise token service: %w", err)
	}

	userSvc, err := services.NewUserService(db, cfg.Auth.HashCost)
	if err != nil {
		return fmt.Errorf("initialise user service: %w", err)
	}

	authSvc, err := services.NewAuthService(userSvc, tokenSvc, cfg.Auth.HashCost)
	if err != nil {
		return fmt.Errorf("initialise auth service: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.SMTPSettings())
	if err != nil {
		return fmt.Errorf("initialise mailer: %w", err)
	}

	verificationSvc, err := services.NewVerificationService(db, userSvc, mailer, cfg.Email.SMTP.From, cfg.VerificationOptions()...)
	if err != nil {
		return fmt.Errorf("initialise verification service: %w", err)
	}

	urlSvc, err := services.NewURLService(db, store)
	if err != nil {
		return fmt.Errorf("initialise url service: %w", err)
	}

	cleaner := maintenance.NewCleaner(db, maintenance.WithSchedule(cfg.Maintenance.Schedule))
	if err := cleaner.Start(); err != nil {
		return fmt.Errorf("start maintenance jobs: %w", err)
	}
	defer func() {
		stopCtx := cleaner.Stop()
		if err := cleaner.RunOnce(stopCtx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}()

	router, err := api.NewRouter(api.Deps{
		DB:           db,
		Tokens:       tokenSvc,
		Auth:         authSvc,
		Users:        userSvc,
		Verification: verificationSvc,
		URLs:         urlSvc,
		RateStore:    middleware.NewSharedRateStore(store),
	}, api.Options{
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   cfg.Server.RateLimitWindow,
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func ensureSecretsPresent(cfg *app.Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Auth.JWT.AccessSecret = strings.TrimSpace(cfg.Auth.JWT.AccessSecret)
	if cfg.Auth.JWT.AccessSecret == "" {
		return errors.New("auth.jwt.access_secret must be configured")
	}

	cfg.Auth.JWT.RefreshSecret = strings.TrimSpace(cfg.Auth.JWT.RefreshSecret)
	if cfg.Auth.JWT.RefreshSecret == "" {
		return errors.New("auth.jwt.refresh_secret must be configured")
	}

	return nil
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.DatabaseSettings())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("fetch raw database handle", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("close database", zap.Error(err))
	}
}
