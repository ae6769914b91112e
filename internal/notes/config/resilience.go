package config

import (
	"time"

	"notedesk/internal/notes/resilience"
)

// ResilienceConfig - настройки circuit breaker и повторов обращений к хранилищу.
type ResilienceConfig struct {
	ErrorThreshold   int           `yaml:"error_threshold" env:"NOTES_CB_ERROR_THRESHOLD" env-default:"5"`
	OpenTimeout      time.Duration `yaml:"open_timeout" env:"NOTES_CB_OPEN_TIMEOUT" env-default:"10s"`
	SuccessThreshold int           `yaml:"success_threshold" env:"NOTES_CB_SUCCESS_THRESHOLD" env-default:"2"`
	RetryAttempts    int           `yaml:"retry_attempts" env:"NOTES_RETRY_ATTEMPTS" env-default:"3"`
	RetryBackoff     time.Duration `yaml:"retry_backoff" env:"NOTES_RETRY_BACKOFF" env-default:"100ms"`
	RetryMaxBackoff  time.Duration `yaml:"retry_max_backoff" env:"NOTES_RETRY_MAX_BACKOFF" env-default:"1s"`
}

// CircuitBreaker возвращает настройки circuit breaker.
func (c *ResilienceConfig) CircuitBreaker() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		ErrorThreshold:   c.ErrorThreshold,
		Timeout:          c.OpenTimeout,
		SuccessThreshold: c.SuccessThreshold,
	}
}

// Retry возвращает настройки повторов; остальные поля берутся по умолчанию.
func (c *ResilienceConfig) Retry() resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = c.RetryAttempts
	cfg.InitialBackoff = c.RetryBackoff
	cfg.MaxBackoff = c.RetryMaxBackoff
	return cfg
}
