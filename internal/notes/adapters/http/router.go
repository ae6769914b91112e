// Package http содержит HTTP сервер сервиса заметок на fiber.
package http

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"notedesk/internal/notes/adapters/http/middleware"
	"notedesk/internal/notes/adapters/http/notes"
	"notedesk/internal/notes/app"
	"notedesk/internal/notes/config"
	"notedesk/internal/notes/metrics"
	"notedesk/internal/notes/ports/services"
	"notedesk/pkg/logger"
)

// Константы ответов служебных маршрутов.
const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"

	ErrMsgRouteNotFound = "Route not found"

	healthCheckTimeout = 2 * time.Second
)

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps - зависимости HTTP сервера.
type Deps struct {
	Registry *app.Registry
	Inbox    notes.Inbox
	Tokens   services.TokenService
	Metrics  *metrics.Manager
	// Gatherer отдается на /metrics; nil означает prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
	// Health опционален: без него /health не проверяет базу.
	Health Pinger
}

// New создает fiber-приложение с настроенными маршрутами.
func New(cfg *config.HTTPConfig, deps Deps) *fiber.App {
	server := fiber.New(fiber.Config{
		AppName:         "notedesk",
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		BodyLimit:       cfg.BodyLimit,
		JSONEncoder:     sonic.Marshal,
		JSONDecoder:     sonic.Unmarshal,
		StructValidator: newStructValidator(),
		ErrorHandler:    notes.ErrorHandler,
	})

	SetupRouter(server, deps)
	return server
}

// SetupRouter настраивает маршрутизацию для HTTP сервера.
func SetupRouter(server *fiber.App, deps Deps) {
	notesHandler := notes.NewHandler(deps.Registry, deps.Inbox)

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// Middleware для всех запросов.
	server.Use(requestid.New(requestid.Config{
		Header:    logger.RequestIDHeader,
		Generator: logger.GenerateRequestID,
	}))
	server.Use(middleware.NewLoggerMiddleware())
	server.Use(middleware.NewRecoveryMiddleware(deps.Metrics))
	if deps.Metrics != nil {
		server.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	// Служебные маршруты.
	server.Get("/health", healthHandler(deps.Health))
	server.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// API версии 1, все маршруты требуют авторизации.
	apiV1 := server.Group("/api/v1", middleware.NewAuthMiddleware(deps.Tokens))

	apiV1.Get("/tags", notesHandler.ListTags)
	apiV1.Get("/notifications", notesHandler.Notifications)

	notesRoutes := apiV1.Group("/notes")
	notesRoutes.Get("/", notesHandler.ListNotes)
	notesRoutes.Post("/", notesHandler.CreateNote)
	notesRoutes.Post("/refresh", notesHandler.RefreshNotes)
	notesRoutes.Get("/:note_id", notesHandler.SelectNote)
	notesRoutes.Delete("/:note_id", notesHandler.DeleteNote)
	notesRoutes.Post("/:note_id/edit", notesHandler.EditNote)

	sessionRoutes := apiV1.Group("/session")
	sessionRoutes.Get("/", notesHandler.GetSession)
	sessionRoutes.Patch("/draft", notesHandler.UpdateDraft)
	sessionRoutes.Post("/tags", notesHandler.AddTag)
	sessionRoutes.Delete("/tags/:tag", notesHandler.RemoveTag)
	sessionRoutes.Post("/save", notesHandler.Save)
	sessionRoutes.Post("/cancel", notesHandler.Cancel)

	// Обработчик для несуществующих маршрутов.
	server.Use(func(c fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(notes.ErrorResponse{Error: ErrMsgRouteNotFound})
	})
}

func healthHandler(pinger Pinger) fiber.Handler {
	return func(c fiber.Ctx) error {
		if pinger == nil {
			return c.JSON(fiber.Map{"status": StatusOK})
		}

		ctx, cancel := context.WithTimeout(c.Context(), healthCheckTimeout)
		defer cancel()

		if err := pinger.Ping(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": StatusUnavailable,
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": StatusOK})
	}
}
