// Package cache определяет интерфейсы для кэширования.
package cache

import (
	"context"
	"time"
)

// Cache определяет интерфейс для работы с кэшем строковых значений.
// Get возвращает пустую строку и found=false для отсутствующего ключа.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Incr атомарно увеличивает целочисленный счетчик и возвращает новое значение.
	Incr(ctx context.Context, key string) (int64, error)
}
