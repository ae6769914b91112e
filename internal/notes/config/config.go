// Package config содержит конфигурацию сервиса заметок.
package config

import (
	"context"
	"os"

	"go.uber.org/zap"

	pkgconfig "notedesk/pkg/config"
	"notedesk/pkg/logger"
)

// ServiceName - имя сервиса в логах и метриках.
const ServiceName = "notes"

// PathEnv - переменная окружения с необязательным путем к YAML-файлу конфигурации.
const PathEnv = "NOTES_CONFIG_PATH"

// Config представляет полную конфигурацию сервиса заметок.
type Config struct {
	Postgres   PostgresConfig   `yaml:"postgres"`
	Redis      RedisConfig      `yaml:"redis"`
	HTTP       HTTPConfig       `yaml:"http"`
	JWT        JWTConfig        `yaml:"jwt"`
	Logging    LoggingConfig    `yaml:"logging"`
	Shutdown   ShutdownConfig   `yaml:"shutdown"`
	Session    SessionConfig    `yaml:"session"`
	Resilience ResilienceConfig `yaml:"resilience"`
}

// Load загружает конфигурацию из переменных окружения и, если задан NOTES_CONFIG_PATH, из файла.
func Load(ctx context.Context) (*Config, error) {
	cfg, err := pkgconfig.Load[Config](ctx, ServiceName, os.Getenv(PathEnv))
	if err != nil {
		return nil, err
	}

	logger.Log(ctx).Info(ctx, "notes configuration",
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("http_address", cfg.HTTP.GetAddress()),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.String("log_level", cfg.Logging.Level),
		zap.String("log_mode", cfg.Logging.Mode),
		zap.Int("shutdown_timeout_seconds", cfg.Shutdown.Timeout),
		zap.Duration("autosave_delay", cfg.Session.AutosaveDelay))

	return cfg, nil
}
