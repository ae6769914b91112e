package resilience

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"notedesk/internal/notes/domain/entities"
	"notedesk/internal/notes/ports/repositories"
	"notedesk/pkg/logger"
)

// Имена операций для логирования.
const (
	OperationList   = "list"
	OperationGet    = "get"
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"

	LogOperationFailed = "note store operation failed"
)

// NoteStore оборачивает хранилище circuit breaker'ом. Чтения повторяются,
// записи выполняются один раз: повтор Create может создать дубликат.
type NoteStore struct {
	next    repositories.NoteStore
	breaker *CircuitBreaker
	retry   *Retry
}

var _ repositories.NoteStore = (*NoteStore)(nil)

// NewNoteStore создает обертку отказоустойчивости вокруг next.
func NewNoteStore(next repositories.NoteStore, cbConfig CircuitBreakerConfig, retryConfig RetryConfig) *NoteStore {
	cbConfig.IsFailure = isStoreFailure

	shouldRetry := retryConfig.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = defaultShouldRetry
	}
	retryConfig.ShouldRetry = func(err error) bool {
		return isStoreFailure(err) && shouldRetry(err)
	}

	return &NoteStore{
		next:    next,
		breaker: NewCircuitBreaker("note_store", cbConfig),
		retry:   NewRetry("note_store", retryConfig),
	}
}

// Breaker возвращает circuit breaker хранилища.
func (s *NoteStore) Breaker() *CircuitBreaker {
	return s.breaker
}

// isStoreFailure: отсутствие заметки и отмена запроса клиентом не говорят о неисправности хранилища.
func isStoreFailure(err error) bool {
	return !errors.Is(err, repositories.ErrNoteNotFound) && !errors.Is(err, context.Canceled)
}

func (s *NoteStore) read(ctx context.Context, operation string, fn func() error) error {
	err := s.breaker.Execute(ctx, func() error {
		return s.retry.Execute(ctx, fn)
	})
	s.logFailure(ctx, operation, err)
	return err
}

func (s *NoteStore) write(ctx context.Context, operation string, fn func() error) error {
	err := s.breaker.Execute(ctx, fn)
	s.logFailure(ctx, operation, err)
	return err
}

func (s *NoteStore) logFailure(ctx context.Context, operation string, err error) {
	if err == nil || !isStoreFailure(err) {
		return
	}
	logger.Log(ctx).Warn(ctx, LogOperationFailed,
		zap.String("operation", operation),
		zap.Stringer("circuit_state", s.breaker.State()),
		zap.Error(err))
}

// List возвращает заметки владельца с повторами.
func (s *NoteStore) List(ctx context.Context, ownerID string) ([]*entities.Note, error) {
	var notes []*entities.Note
	err := s.read(ctx, OperationList, func() error {
		var err error
		notes, err = s.next.List(ctx, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// Get возвращает заметку с повторами.
func (s *NoteStore) Get(ctx context.Context, ownerID, noteID string) (*entities.Note, error) {
	var note *entities.Note
	err := s.read(ctx, OperationGet, func() error {
		var err error
		note, err = s.next.Get(ctx, ownerID, noteID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// Create создает заметку без повторов.
func (s *NoteStore) Create(ctx context.Context, ownerID string, fields entities.NoteFields) (*entities.Note, error) {
	var note *entities.Note
	err := s.write(ctx, OperationCreate, func() error {
		var err error
		note, err = s.next.Create(ctx, ownerID, fields)
		return err
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// Update применяет обновление без повторов.
func (s *NoteStore) Update(ctx context.Context, ownerID, noteID string, update entities.NoteUpdate) (*entities.Note, error) {
	var note *entities.Note
	err := s.write(ctx, OperationUpdate, func() error {
		var err error
		note, err = s.next.Update(ctx, ownerID, noteID, update)
		return err
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// Delete удаляет заметку без повторов.
func (s *NoteStore) Delete(ctx context.Context, ownerID, noteID string) error {
	return s.write(ctx, OperationDelete, func() error {
		return s.next.Delete(ctx, ownerID, noteID)
	})
}
