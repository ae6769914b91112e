package entities

import (
	"slices"
	"strings"
)

// AllTags - значение фильтра, означающее "без фильтра по тегу".
const AllTags = "All"

// AvailableTags - теги, которые предлагает интерфейс. Значения вне списка допускаются.
var AvailableTags = []string{"Work", "Personal", "Learning", "Ideas", "Other"}

// AddTag добавляет тег, сохраняя порядок вставки. Повторное добавление и пустой тег ничего не меняют.
// Второе значение сообщает, изменился ли набор.
func AddTag(tags []string, tag string) ([]string, bool) {
	tag = strings.TrimSpace(tag)
	if tag == "" || slices.Contains(tags, tag) {
		return tags, false
	}
	out := make([]string, 0, len(tags)+1)
	out = append(out, tags...)
	return append(out, tag), true
}

// RemoveTag удаляет тег. Отсутствующий тег ничего не меняет.
func RemoveTag(tags []string, tag string) ([]string, bool) {
	tag = strings.TrimSpace(tag)
	idx := slices.Index(tags, tag)
	if idx < 0 {
		return tags, false
	}
	out := make([]string, 0, len(tags)-1)
	out = append(out, tags[:idx]...)
	return append(out, tags[idx+1:]...), true
}

// NormalizeTags убирает пустые значения и дубликаты, сохраняя порядок первого появления.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out, _ = AddTag(out, tag)
	}
	return out
}

// SameTags сравнивает наборы тегов без учета порядка.
func SameTags(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, tag := range a {
		if !slices.Contains(b, tag) {
			return false
		}
	}
	return true
}
