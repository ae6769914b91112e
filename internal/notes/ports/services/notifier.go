package services

import (
	"context"

	"notedesk/internal/notes/domain/entities"
)

// Notifier доставляет пользователю короткие уведомления об исходе операций.
type Notifier interface {
	Notify(ctx context.Context, n entities.Notification)
}
