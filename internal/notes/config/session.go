package config

import (
	"time"

	"notedesk/internal/notes/app"
)

// SessionConfig - настройки сессий редактирования и рабочих пространств.
type SessionConfig struct {
	AutosaveDelay   time.Duration `yaml:"autosave_delay" env:"NOTES_SESSION_AUTOSAVE_DELAY" env-default:"2s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"NOTES_SESSION_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"NOTES_SESSION_IDLE_TIMEOUT" env-default:"30m"`
	JanitorSchedule string        `yaml:"janitor_schedule" env:"NOTES_SESSION_JANITOR_SCHEDULE" env-default:"@every 1m"`
}

// Session возвращает настройки сессии для app.
func (c *SessionConfig) Session() app.SessionConfig {
	return app.SessionConfig{
		AutosaveDelay: c.AutosaveDelay,
		WriteTimeout:  c.WriteTimeout,
	}
}

// Registry возвращает настройки реестра рабочих пространств.
func (c *SessionConfig) Registry() app.RegistryConfig {
	return app.RegistryConfig{
		IdleTimeout:     c.IdleTimeout,
		JanitorSchedule: c.JanitorSchedule,
	}
}
