package notes

import (
	"notedesk/internal/notes/app"
	"notedesk/internal/notes/domain/entities"
)

// UpdateDraftRequest меняет заголовок и/или содержимое черновика; отсутствующее поле не трогается.
type UpdateDraftRequest struct {
	Title   *string `json:"title" validate:"omitempty,max=512"`
	Content *string `json:"content" validate:"omitempty,max=1048576"`
}

// AddTagRequest добавляет тег к черновику. Пустой тег игнорируется.
type AddTagRequest struct {
	Tag string `json:"tag" validate:"max=64"`
}

// SessionResponse - состояние сессии редактирования выбранной заметки.
type SessionResponse struct {
	Session app.SessionSnapshot `json:"session"`
}

// TagsResponse содержит теги для фильтра и редактора.
type TagsResponse struct {
	Tags []string `json:"tags"`
}

// NotificationsResponse содержит уведомления, накопленные с прошлого запроса.
type NotificationsResponse struct {
	Notifications []entities.Notification `json:"notifications"`
}

// ErrorResponse - тело ответа с ошибкой.
type ErrorResponse struct {
	Error string `json:"error"`
}
