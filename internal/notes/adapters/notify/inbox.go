// Package notify доставляет уведомления пользователям через почтовые ящики в памяти.
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"notedesk/internal/notes/domain/entities"
	"notedesk/internal/notes/ports/services"
	"notedesk/pkg/logger"
)

// DefaultCapacity - сколько уведомлений хранится на пользователя до вытеснения старых.
const DefaultCapacity = 50

// Константы для логирования.
const (
	LogNotification        = "user notification"
	LogNotificationDropped = "notification without user dropped"
)

// Inbox хранит недоставленные уведомления по пользователям и дублирует их в лог.
type Inbox struct {
	capacity int

	mu      sync.Mutex
	pending map[string][]entities.Notification
}

var _ services.Notifier = (*Inbox)(nil)

// NewInbox создает почтовый ящик. capacity <= 0 означает DefaultCapacity.
func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Inbox{
		capacity: capacity,
		pending:  make(map[string][]entities.Notification),
	}
}

// Notify ставит уведомление в очередь пользователя.
func (i *Inbox) Notify(ctx context.Context, n entities.Notification) {
	log := logger.Log(ctx).With(
		zap.String("user_id", n.UserID),
		zap.String("level", string(n.Level)),
		zap.String("title", n.Title),
	)

	if n.UserID == "" {
		log.Warn(ctx, LogNotificationDropped)
		return
	}

	if n.Level == entities.NotificationError {
		log.Warn(ctx, LogNotification, zap.String("description", n.Description))
	} else {
		log.Info(ctx, LogNotification)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	queue := append(i.pending[n.UserID], n)
	if len(queue) > i.capacity {
		queue = append([]entities.Notification(nil), queue[len(queue)-i.capacity:]...)
	}
	i.pending[n.UserID] = queue
}

// Drain возвращает накопленные уведомления пользователя в порядке поступления и очищает очередь.
func (i *Inbox) Drain(userID string) []entities.Notification {
	i.mu.Lock()
	defer i.mu.Unlock()

	queue := i.pending[userID]
	delete(i.pending, userID)
	if queue == nil {
		return []entities.Notification{}
	}
	return queue
}

// Forget удаляет очередь пользователя без доставки.
func (i *Inbox) Forget(userID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.pending, userID)
}
