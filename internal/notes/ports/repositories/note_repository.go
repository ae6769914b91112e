// Package repositories defines repository interfaces for the notes service.
package repositories

import (
	"context"
	"errors"

	"notedesk/internal/notes/domain/entities"
)

// ErrNoteNotFound возвращается, если заметки нет или она принадлежит другому пользователю.
var ErrNoteNotFound = errors.New("note not found or not owned by user")

// NoteStore - внешнее хранилище заметок. Все операции ограничены владельцем ownerID.
type NoteStore interface {
	// List возвращает заметки владельца, отсортированные по updated_at по убыванию.
	List(ctx context.Context, ownerID string) ([]*entities.Note, error)
	Get(ctx context.Context, ownerID, noteID string) (*entities.Note, error)
	Create(ctx context.Context, ownerID string, fields entities.NoteFields) (*entities.Note, error)
	// Update применяет частичное обновление и возвращает сохраненную запись.
	Update(ctx context.Context, ownerID, noteID string, update entities.NoteUpdate) (*entities.Note, error)
	Delete(ctx context.Context, ownerID, noteID string) error
}
