// Package entities defines the domain entities for the notes service.
package entities

import (
	"slices"
	"strings"
	"time"
)

// DefaultTitle подставляется вместо пустого заголовка при сохранении.
const DefaultTitle = "Untitled Note"

// Note представляет собой заметку пользователя.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone возвращает глубокую копию заметки.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	c := *n
	c.Tags = slices.Clone(n.Tags)
	if c.Tags == nil {
		c.Tags = []string{}
	}
	return &c
}

// HasTag сообщает, помечена ли заметка тегом tag.
func (n *Note) HasTag(tag string) bool {
	return slices.Contains(n.Tags, tag)
}

// NoteFields - начальные поля новой заметки.
type NoteFields struct {
	Title   string
	Content string
	Tags    []string
}

// NewNoteFields возвращает поля, с которыми создается каждая новая заметка.
func NewNoteFields() NoteFields {
	return NoteFields{Title: DefaultTitle, Content: "", Tags: []string{}}
}

// NoteUpdate описывает частичное обновление; nil означает "оставить как есть".
type NoteUpdate struct {
	Title   *string
	Content *string
	Tags    *[]string
}

// IsEmpty сообщает, что обновление ничего не меняет.
func (u NoteUpdate) IsEmpty() bool {
	return u.Title == nil && u.Content == nil && u.Tags == nil
}

// NormalizeTitle обрезает пробелы и подставляет DefaultTitle вместо пустой строки.
func NormalizeTitle(title string) string {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return DefaultTitle
	}
	return trimmed
}
