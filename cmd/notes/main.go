// Package main реализует точку входа службы заметок.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"notedesk/internal/notes/adapters/cache"
	httpserver "notedesk/internal/notes/adapters/http"
	"notedesk/internal/notes/adapters/notify"
	"notedesk/internal/notes/adapters/postgres"
	"notedesk/internal/notes/adapters/services"
	"notedesk/internal/notes/app"
	"notedesk/internal/notes/config"
	"notedesk/internal/notes/db"
	"notedesk/internal/notes/metrics"
	"notedesk/internal/notes/ports/repositories"
	"notedesk/internal/notes/resilience"
	"notedesk/pkg/db/redis"
	"notedesk/pkg/logger"
	"notedesk/pkg/shutdown"
)

// Константы для переменных окружения.
const (
	EnvLoggerMode  = "NOTES_LOGGER_MODE"
	EnvLoggerLevel = "NOTES_LOGGER_LEVEL"
)

// Константы для сообщений об ошибках.
const (
	ErrInitLogger           = "failed to initialize logger"
	ErrSyncLogger           = "failed to sync logger"
	ErrLoadConfig           = "failed to load configuration"
	ErrInitLoggerWithConfig = "failed to initialize logger with configuration settings"
	ErrInitDB               = "failed to initialize database"
	ErrCreateRedisClient    = "failed to create Redis client"
	ErrStartJanitor         = "failed to start workspace janitor"
	ErrStartHTTPServer      = "failed to start HTTP server"
	ErrStopHTTPServer       = "failed to stop HTTP server"
	ErrCloseRegistry        = "failed to close workspaces"
	ErrCloseRedis           = "failed to close Redis client"
)

// Константы для игнорируемых ошибок.
const (
	ErrSyncStderr = "sync /dev/stderr: invalid argument"
	ErrSyncStdout = "sync /dev/stdout: invalid argument"
)

// Константы для сообщений сервиса.
const (
	LogServiceStarted      = "note service started"
	LogServiceShutdownDone = "note service shutdown complete"
	LogClosingDB           = "closing database connections"
	LogClosingRedis        = "closing Redis connection"
	LogClosingWorkspaces   = "closing workspaces"
	LogStoppingHTTP        = "stopping HTTP server"
	LogInitRepo            = "initializing repositories"
	LogInitCache           = "initializing cache"
	LogCacheDisabled       = "list cache disabled"
	LogInitServices        = "initializing services"
	LogInitWorkspaces      = "initializing workspaces"
	LogInitHTTPServer      = "initializing HTTP server"
	LogStartingHTTP        = "starting HTTP server"
)

func main() {
	env := logger.Development
	if strings.ToLower(os.Getenv(EnvLoggerMode)) == "production" {
		env = logger.Production
	}

	log, err := logger.NewLogger(env, os.Getenv(EnvLoggerLevel))
	if err != nil {
		panic(ErrInitLogger + ": " + err.Error())
	}

	logger.SetGlobalLogger(log)

	ctx := logger.NewRequestIDContext(context.Background(), "")

	var exitCode int

	func() {
		defer func() {
			if err := log.Sync(); err != nil {
				errMsg := err.Error()
				if strings.Contains(errMsg, ErrSyncStderr) || strings.Contains(errMsg, ErrSyncStdout) {
					return
				}
				if _, writeErr := fmt.Fprintf(os.Stderr, "%s: %v\n", ErrSyncLogger, err); writeErr != nil {
					panic(writeErr)
				}
			}
		}()

		cfg, err := config.Load(ctx)
		if err != nil {
			log.Error(ctx, ErrLoadConfig, zap.Error(err))
			exitCode = 1
			return
		}

		finalLogger, err := logger.NewLogger(cfg.Logging.GetEnvironment(), cfg.Logging.Level)
		if err != nil {
			log.Error(ctx, ErrInitLoggerWithConfig, zap.Error(err))
			exitCode = 1
			return
		}
		logger.SetGlobalLogger(finalLogger)
		log = finalLogger

		database, err := db.New(ctx, &cfg.Postgres, cfg.Postgres.MigrationsDir)
		if err != nil {
			log.Error(ctx, ErrInitDB, zap.Error(err))
			exitCode = 1
			return
		}

		log.Info(ctx, LogServiceStarted,
			zap.String("environment", string(cfg.Logging.GetEnvironment())),
			zap.String("log_level", cfg.Logging.Level),
			zap.String("startup_time", time.Now().Format(time.RFC3339)))

		log.Info(ctx, LogInitRepo)
		var store repositories.NoteStore = postgres.NewRepositoryFactory(database.Pool()).NoteStore()

		var redisClient *redis.Client
		if cfg.Redis.Enabled {
			log.Info(ctx, LogInitCache)
			redisClient, err = redis.NewClient(ctx, cfg.Redis.ClientConfig())
			if err != nil {
				log.Error(ctx, ErrCreateRedisClient, zap.Error(err))
				database.Close(ctx)
				exitCode = 1
				return
			}
			store = cache.NewCachedNoteStore(store, cache.NewRedisCache(redisClient.Raw(), cfg.Redis.DefaultTTL), cfg.Redis.DefaultTTL)
		} else {
			log.Info(ctx, LogCacheDisabled)
		}

		store = resilience.NewNoteStore(store, cfg.Resilience.CircuitBreaker(), cfg.Resilience.Retry())

		log.Info(ctx, LogInitServices)
		metricsManager := metrics.NewManager("notedesk", config.ServiceName, prometheus.DefaultRegisterer)
		tokenService := services.NewJWT(cfg.JWT.SecretKey)
		inbox := notify.NewInbox(notify.DefaultCapacity)

		log.Info(ctx, LogInitWorkspaces)
		registry := app.NewRegistry(app.Deps{
			Store:     store,
			Identity:  services.NewContextIdentity(),
			Notifier:  inbox,
			Scheduler: app.SystemScheduler{},
			Metrics:   metricsManager,
			Session:   cfg.Session.Session(),
		}, cfg.Session.Registry())

		if err := registry.Start(ctx); err != nil {
			log.Error(ctx, ErrStartJanitor, zap.Error(err))
			if err := closeRedis(ctx, redisClient); err != nil {
				log.Error(ctx, ErrCloseRedis, zap.Error(err))
			}
			database.Close(ctx)
			exitCode = 1
			return
		}

		log.Info(ctx, LogInitHTTPServer)
		server := httpserver.New(&cfg.HTTP, httpserver.Deps{
			Registry: registry,
			Inbox:    inbox,
			Tokens:   tokenService,
			Metrics:  metricsManager,
			Gatherer: prometheus.DefaultGatherer,
			Health:   database,
		})

		log.Info(ctx, LogStartingHTTP, zap.String("address", cfg.HTTP.GetAddress()))
		go func() {
			if err := server.Listen(cfg.HTTP.GetAddress(), fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
				log.Error(ctx, ErrStartHTTPServer, zap.Error(err))
			}
		}()

		// Порядок остановки: входящие запросы, сессии, хранилища.
		shutdown.Wait(ctx, cfg.Shutdown.GetTimeout(),
			func(ctx context.Context) error {
				var errs []error

				log.Info(ctx, LogStoppingHTTP)
				if err := server.ShutdownWithContext(ctx); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", ErrStopHTTPServer, err))
				}

				log.Info(ctx, LogClosingWorkspaces)
				if err := registry.Close(ctx); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", ErrCloseRegistry, err))
				}

				if err := closeRedis(ctx, redisClient); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", ErrCloseRedis, err))
				}

				log.Info(ctx, LogClosingDB)
				database.Close(ctx)

				return errors.Join(errs...)
			},
		)

		log.Info(ctx, LogServiceShutdownDone)
	}()

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// closeRedis закрывает клиент кэша; nil означает, что кэш выключен.
func closeRedis(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return nil
	}
	logger.Log(ctx).Info(ctx, LogClosingRedis)
	return client.Close(ctx)
}
