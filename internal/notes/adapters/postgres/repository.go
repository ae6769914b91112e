package postgres

import (
	"notedesk/internal/notes/ports/repositories"
)

// RepositoryFactory создает репозитории для работы с базой данных.
type RepositoryFactory struct {
	pool Pool
}

// NewRepositoryFactory создает новую фабрику репозиториев.
func NewRepositoryFactory(pool Pool) *RepositoryFactory {
	return &RepositoryFactory{pool: pool}
}

// NoteStore возвращает хранилище заметок.
func (f *RepositoryFactory) NoteStore() repositories.NoteStore {
	return NewNoteRepository(f.pool)
}
