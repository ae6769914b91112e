package entities

import "time"

// NotificationLevel задает вид уведомления.
type NotificationLevel string

// Уровни уведомлений.
const (
	NotificationInfo  NotificationLevel = "info"
	NotificationError NotificationLevel = "error"
)

// Notification - короткое сообщение пользователю об исходе операции.
type Notification struct {
	UserID      string            `json:"-"`
	Level       NotificationLevel `json:"level"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	CreatedAt   time.Time         `json:"created_at"`
}
