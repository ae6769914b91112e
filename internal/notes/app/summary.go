package app

import (
	"slices"
	"time"

	"notedesk/internal/notes/domain/entities"
	"notedesk/pkg/htmltext"
)

// Длины превью в списке заметок, в символах.
const (
	TitlePreviewLength   = 30
	ContentPreviewLength = 50
)

// NoteSummary - карточка заметки в списке.
type NoteSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	ShortTitle string    `json:"short_title"`
	Preview    string    `json:"preview"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Summarize строит карточку: заголовок усекается, содержимое очищается от разметки.
func Summarize(note *entities.Note) NoteSummary {
	tags := slices.Clone(note.Tags)
	if tags == nil {
		tags = []string{}
	}
	return NoteSummary{
		ID:         note.ID,
		Title:      note.Title,
		ShortTitle: htmltext.Truncate(note.Title, TitlePreviewLength),
		Preview:    htmltext.Truncate(htmltext.ExtractText(note.Content), ContentPreviewLength),
		Tags:       tags,
		CreatedAt:  note.CreatedAt,
		UpdatedAt:  note.UpdatedAt,
	}
}

// SummarizeAll строит карточки для списка заметок.
func SummarizeAll(notes []*entities.Note) []NoteSummary {
	out := make([]NoteSummary, 0, len(notes))
	for _, note := range notes {
		out = append(out, Summarize(note))
	}
	return out
}
