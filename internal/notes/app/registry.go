package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"notedesk/pkg/logger"
)

// Значения по умолчанию для RegistryConfig.
const (
	DefaultIdleTimeout     = 30 * time.Minute
	DefaultJanitorSchedule = "@every 1m"
)

// Константы для сообщений logger.
const (
	LogWorkspaceOpened  = "workspace opened"
	LogWorkspaceEvicted = "idle workspace evicted"
	LogJanitorStarted   = "workspace janitor started"
	LogJanitorStopped   = "workspace janitor stopped"
)

// RegistryConfig - настройки реестра рабочих пространств.
type RegistryConfig struct {
	IdleTimeout     time.Duration
	JanitorSchedule string
}

// Registry хранит рабочие пространства пользователей. Первое обращение
// пользователя загружает его заметки; одновременные обращения ждут одну загрузку.
type Registry struct {
	deps Deps
	cfg  RegistryConfig

	mu         sync.Mutex
	workspaces map[string]*Workspace
	group      singleflight.Group
	cron       *cron.Cron
}

// NewRegistry создает пустой реестр.
func NewRegistry(deps Deps, cfg RegistryConfig) *Registry {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.JanitorSchedule == "" {
		cfg.JanitorSchedule = DefaultJanitorSchedule
	}
	return &Registry{
		deps:       deps.withDefaults(),
		cfg:        cfg,
		workspaces: make(map[string]*Workspace),
	}
}

// Workspace возвращает рабочее пространство текущего пользователя, загружая его при первом обращении.
func (r *Registry) Workspace(ctx context.Context) (*Workspace, error) {
	identity, err := r.deps.Identity.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthRequired, err)
	}
	if identity == nil || identity.UserID == "" {
		return nil, ErrAuthRequired
	}

	if ws := r.lookup(identity.UserID); ws != nil {
		return ws, nil
	}

	v, err, _ := r.group.Do(identity.UserID, func() (any, error) {
		if ws := r.lookup(identity.UserID); ws != nil {
			return ws, nil
		}

		ws := NewWorkspace(*identity, r.deps)
		if err := ws.Load(ctx); err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.workspaces[identity.UserID] = ws
		count := len(r.workspaces)
		r.mu.Unlock()

		if r.deps.Metrics != nil {
			r.deps.Metrics.GaugeWorkspaces.Set(float64(count))
		}
		logger.Log(ctx).Debug(ctx, LogWorkspaceOpened, zap.String("userID", identity.UserID))
		return ws, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Workspace), nil
}

func (r *Registry) lookup(userID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.workspaces[userID]
}

// Len возвращает число загруженных пространств.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

// EvictIdle закрывает и удаляет пространства, простаивающие дольше IdleTimeout.
// Пространства с активной сессией редактирования не трогаются.
func (r *Registry) EvictIdle(ctx context.Context) int {
	now := r.deps.Now()

	var evicted []*Workspace
	r.mu.Lock()
	for userID, ws := range r.workspaces {
		if ws.Idle(now, r.cfg.IdleTimeout) {
			delete(r.workspaces, userID)
			evicted = append(evicted, ws)
		}
	}
	count := len(r.workspaces)
	r.mu.Unlock()

	for _, ws := range evicted {
		ws.Close()
		logger.Log(ctx).Debug(ctx, LogWorkspaceEvicted, zap.String("userID", ws.Owner().UserID))
	}
	if r.deps.Metrics != nil {
		r.deps.Metrics.GaugeWorkspaces.Set(float64(count))
	}
	return len(evicted)
}

// Start запускает периодическую очистку по расписанию JanitorSchedule.
func (r *Registry) Start(ctx context.Context) error {
	c := cron.New()
	bgCtx := logger.Detach(ctx)
	if _, err := c.AddFunc(r.cfg.JanitorSchedule, func() {
		r.EvictIdle(bgCtx)
	}); err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", r.cfg.JanitorSchedule, err)
	}

	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()

	c.Start()
	logger.Log(ctx).Info(ctx, LogJanitorStarted, zap.String("schedule", r.cfg.JanitorSchedule))
	return nil
}

// Close останавливает очистку и закрывает все пространства.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	workspaces := r.workspaces
	r.workspaces = make(map[string]*Workspace)
	r.mu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
			return ctx.Err()
		}
		logger.Log(ctx).Info(ctx, LogJanitorStopped)
	}

	for _, ws := range workspaces {
		ws.Close()
	}
	if r.deps.Metrics != nil {
		r.deps.Metrics.GaugeWorkspaces.Set(0)
	}
	return nil
}
