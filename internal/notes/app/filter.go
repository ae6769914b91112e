package app

import (
	"strings"

	"notedesk/internal/notes/domain/entities"
)

// FilterNotes возвращает заметки, у которых заголовок или содержимое содержат query
// (без учета регистра) и которые помечены тегом tag. Пустой query и тег "All"
// (или пустой) не фильтруют. Порядок входа сохраняется, вход не изменяется.
func FilterNotes(notes []*entities.Note, query, tag string) []*entities.Note {
	needle := strings.ToLower(query)
	out := make([]*entities.Note, 0, len(notes))
	for _, note := range notes {
		if note == nil {
			continue
		}
		if matchesQuery(note, needle) && matchesTag(note, tag) {
			out = append(out, note)
		}
	}
	return out
}

func matchesQuery(note *entities.Note, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(note.Title), needle) ||
		strings.Contains(strings.ToLower(note.Content), needle)
}

func matchesTag(note *entities.Note, tag string) bool {
	if tag == "" || tag == entities.AllTags {
		return true
	}
	return note.HasTag(tag)
}
