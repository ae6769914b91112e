// Package notes содержит HTTP-обработчики рабочего пространства и сессии редактирования заметок.
package notes

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"notedesk/internal/notes/app"
	"notedesk/internal/notes/domain/entities"
	"notedesk/pkg/logger"
)

// Константы сообщений для логирования.
const (
	LogHandlerListTags      = "handling list tags request"
	LogHandlerListNotes     = "handling list notes request"
	LogHandlerRefresh       = "handling refresh notes request"
	LogHandlerCreateNote    = "handling create note request"
	LogHandlerSelectNote    = "handling select note request"
	LogHandlerDeleteNote    = "handling delete note request"
	LogHandlerEditNote      = "handling edit note request"
	LogHandlerGetSession    = "handling get session request"
	LogHandlerUpdateDraft   = "handling update draft request"
	LogHandlerAddTag        = "handling add tag request"
	LogHandlerRemoveTag     = "handling remove tag request"
	LogHandlerSave          = "handling save request"
	LogHandlerCancel        = "handling cancel request"
	LogHandlerNotifications = "handling notifications request"
	LogHandlerFailed        = "request handling failed"

	ErrMsgInvalidNoteID = "invalid note id"
	ErrMsgInvalidTag    = "invalid tag"
	ErrMsgInvalidBody   = "invalid request body"
	ErrMsgSendResponse  = "error sending response"
)

// Inbox отдает накопленные уведомления пользователя.
type Inbox interface {
	Drain(userID string) []entities.Notification
}

// Handler обработчик HTTP-запросов для работы с заметками.
type Handler struct {
	registry *app.Registry
	inbox    Inbox
}

// NewHandler создает новый экземпляр обработчика заметок.
func NewHandler(registry *app.Registry, inbox Inbox) *Handler {
	return &Handler{
		registry: registry,
		inbox:    inbox,
	}
}

func respond(ctx fiber.Ctx, status int, body any) error {
	if err := ctx.Status(status).JSON(body); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgSendResponse, err)
	}
	return nil
}

func badRequest(ctx fiber.Ctx, log *logger.Logger, message string, err error) error {
	log.Debug(ctx.Context(), message, zap.Error(err))
	return respond(ctx, fiber.StatusBadRequest, ErrorResponse{Error: message})
}

func (h *Handler) fail(ctx fiber.Ctx, log *logger.Logger, err error) error {
	log.Warn(ctx.Context(), LogHandlerFailed, zap.Error(err))
	return handleError(ctx, err)
}

// workspace возвращает пространство текущего пользователя и логгер обработчика.
func (h *Handler) workspace(ctx fiber.Ctx, handler, message string) (context.Context, *app.Workspace, *logger.Logger, error) {
	requestCtx := ctx.Context()
	log := logger.Log(requestCtx).With(zap.String("handler", handler))
	log.Debug(requestCtx, message)

	ws, err := h.registry.Workspace(requestCtx)
	return requestCtx, ws, log, err
}

func (h *Handler) sessionResponse(ctx fiber.Ctx, status int, session *app.Session) error {
	return respond(ctx, status, SessionResponse{Session: session.Snapshot()})
}

func noteID(ctx fiber.Ctx) (string, bool) {
	id := ctx.Params("note_id")
	return id, id != ""
}

// ListTags возвращает теги для фильтра.
func (h *Handler) ListTags(ctx fiber.Ctx) error {
	_, ws, log, err := h.workspace(ctx, "Handler.ListTags", LogHandlerListTags)
	if err != nil {
		return h.fail(ctx, log, err)
	}
	return respond(ctx, fiber.StatusOK, TagsResponse{Tags: ws.Tags()})
}

// ListNotes устанавливает фильтр из query и tag и возвращает отфильтрованный список.
func (h *Handler) ListNotes(ctx fiber.Ctx) error {
	_, ws, log, err := h.workspace(ctx, "Handler.ListNotes", LogHandlerListNotes)
	if err != nil {
		return h.fail(ctx, log, err)
	}

	ws.SetFilter(ctx.Query("query"), ctx.Query("tag"))
	return respond(ctx, fiber.StatusOK, ws.View())
}

// RefreshNotes перечитывает список из хранилища.
func (h *Handler) RefreshNotes(ctx fiber.Ctx) error {
	requestCtx, ws, log, err := h.workspace(ctx, "Handler.RefreshNotes", LogHandlerRefresh)
	if err != nil {
		return h.fail(ctx, log, err)
	}

	if err := ws.Load(requestCtx); err != nil {
		return h.fail(ctx, log, err)
	}
	return respond(ctx, fiber.StatusOK, ws.View())
}

// CreateNote создает заметку и сразу открывает ее на редактирование.
func (h *Handler) CreateNote(ctx fiber.Ctx) error {
	requestCtx, ws, log, err := h.workspace(ctx, "Handler.CreateNote", LogHandlerCreateNote)
	if err != nil {
		return h.fail(ctx, log, err)
	}

	session, err := ws.Create(requestCtx)
	if err != nil {
		return h.fail(ctx, log, err)
	}
	return h.sessionResponse(ctx, fiber.StatusCreated, session)
}

// SelectNote выбирает заметку для просмотра. Несохраненный черновик предыдущей заметки отбрасывается.
func (h *Handler) SelectNote(ctx fiber.Ctx) error {
	requestCtx, ws, log, err := h.workspace(ctx, "Handler.SelectNote", LogHandlerSelectNote)
	if err != nil {
		return h.fail(ctx, log, err)
	}

	id, ok := noteID(ctx)
	if !ok {
		return badRequest(ctx, log, ErrMsgInvalidNoteID, nil)
	}

	if _, err := ws.Select(requestCtx, id); err != nil {
		return h.fail(ctx, log, err)
	}

	session, err := ws.Session()
	if err != nil {
		return h.fail(ctx, log, err)
	}
	return h.sessionResponse(ctx, fiber.StatusOK, session)
}

// DeleteNote удаляет заметку.
func (h *Handler) DeleteNote(ctx fiber.Ctx) error {
	requestCtx, ws, log, err := h.workspace(ctx, "Handler.DeleteNote", LogHandlerDeleteNote)
	if err != nil {
		return h.fail(ctx, log, err)
	}

	id, ok := noteID(ctx)
	if !ok {
		return badRequest(ctx, log, ErrMsgInvalidNoteID, nil)
	}

	if err := ws.Delete(requestCtx, id); err != nil {
		return h.fail(ctx, log, err)
	}

	if err := ctx.SendStatus(fiber.StatusNoContent); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgSendResponse, err)
	}
	return nil
}

// EditNote переводит заметку в режим редактирования.
func (h *Handler) EditNote(ctx fiber.Ctx) error {
	requestCtx, ws, log, err := h.workspace(ctx, "Handler.EditNote", LogHandlerEditNote)
	if err != nil {
		return h.fail(ctx, log, err)
	}

	id, ok := noteID(ctx)
	if !ok {
		return badRequest(ctx, log, ErrMsgInvalidNoteID, nil)
	}

	session, err := ws.Edit(requestCtx, id)
	if err != nil {
		return h.fail(ctx, log, err)
	}
	return h.sessionResponse(ctx, fiber.StatusOK, session)
}

// GetSession возвращает состояние текущей сессии.
func (h *Handler) GetSession(ctx fiber.Ctx) error {
	_, ws, log, err := h.workspace(ctx, "Handler.GetSession", LogHandlerGetSession)
	if err != nil {
		return h.fail(ctx, log, err)
	}

	session, err := ws.Session()
	if err != nil {
		return h.fail(ctx, log, err)
	}
	return h.sessionResponse(ctx, fiber.StatusOK, session)
}

// UpdateDraft меняет заголовок и/или содержимое черновика.
func (h *Handler) UpdateDraft(ctx fiber.Ctx) error {
	requestCtx, ws, log, err := h.workspace(ctx, "Handler.UpdateDraft", LogHandlerUpdateDraft)
	if err != nil {
		return h.fail(ctx, log, err)
	}

	var req UpdateDraftRequest
	if err := ctx.Bind().WithoutAutoHandling().Body(&req); err != nil {
		return badRequest(ctx, log, ErrMsgInvalidBody, err)
	}

	session, err := ws.Session()
	if err != nil {
		return h.fail(ctx, log, err)
	}

	if req.Title != nil {
		if err := session.SetTitle(requestCtx, *req.Title); err != nil {
			return h.fail(ctx, log, err)
		}
	}
	if req.Content != nil {
		if err := session.SetContent(requestCtx, *req.Content); err != nil {
			return h.fail(ctx, log, err)
		}
	}
	return h.sessionResponse(ctx, fiber.StatusOK, session)
}

// AddTag добавляет тег к черновику.
func (h *Handler) AddTag(ctx fiber.Ctx) error {
	requestCtx, ws, log, err := h.workspace(ctx, "Handler.AddTag", LogHandlerAddTag)
	if err != nil {
		return h.fail(ctx, log, err)
	}

	var req AddTagRequest
	if err := ctx.Bind().WithoutAutoHandling().Body(&req); err != nil {
		return badRequest(ctx, log, ErrMsgInvalidBody, err)
	}

	session, err := ws.Session()
	if err != nil {
		return h.fail(ctx, log, err)
	}

	if err := session.AddTag(requestCtx, req.Tag); err != nil {
		return h.fail(ctx, log, err)
	}
	return h.sessionResponse(ctx, fiber.StatusOK, session)
}

// RemoveTag убирает тег из черновика.
func (h *Handler) RemoveTag(ctx fiber.Ctx) error {
	requestCtx, ws, log, err := h.workspace(ctx, "Handler.RemoveTag", LogHandlerRemoveTag)
	if err != nil {
		return h.fail(ctx, log, err)
	}

	tag, err := url.PathUnescape(ctx.Params("tag"))
	if err != nil {
		return badRequest(ctx, log, ErrMsgInvalidTag, err)
	}

	session, err := ws.Session()
	if err != nil {
		return h.fail(ctx, log, err)
	}

	if err := session.RemoveTag(requestCtx, tag); err != nil {
		return h.fail(ctx, log, err)
	}
	return h.sessionResponse(ctx, fiber.StatusOK, session)
}

// Save явно сохраняет черновик и выходит из редактирования.
func (h *Handler) Save(ctx fiber.Ctx) error {
	requestCtx, ws, log, err := h.workspace(ctx, "Handler.Save", LogHandlerSave)
	if err != nil {
		return h.fail(ctx, log, err)
	}

	session, err := ws.Session()
	if err != nil {
		return h.fail(ctx, log, err)
	}

	if _, err := session.Save(requestCtx); err != nil {
		return h.fail(ctx, log, err)
	}
	return h.sessionResponse(ctx, fiber.StatusOK, session)
}

// Cancel отбрасывает черновик без записи в хранилище.
func (h *Handler) Cancel(ctx fiber.Ctx) error {
	requestCtx, ws, log, err := h.workspace(ctx, "Handler.Cancel", LogHandlerCancel)
	if err != nil {
		return h.fail(ctx, log, err)
	}

	session, err := ws.Session()
	if err != nil {
		return h.fail(ctx, log, err)
	}

	if err := session.Cancel(requestCtx); err != nil {
		return h.fail(ctx, log, err)
	}
	return h.sessionResponse(ctx, fiber.StatusOK, session)
}

// Notifications отдает и очищает накопленные уведомления пользователя.
func (h *Handler) Notifications(ctx fiber.Ctx) error {
	_, ws, log, err := h.workspace(ctx, "Handler.Notifications", LogHandlerNotifications)
	if err != nil {
		return h.fail(ctx, log, err)
	}

	return respond(ctx, fiber.StatusOK, NotificationsResponse{
		Notifications: h.inbox.Drain(ws.Owner().UserID),
	})
}
