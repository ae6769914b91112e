package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"notedesk/internal/notes/domain/entities"
	"notedesk/internal/notes/ports/cache"
	"notedesk/internal/notes/ports/repositories"
	"notedesk/pkg/logger"
)

const (
	listKeyPrefix       = "notes:list:"
	generationKeyPrefix = "notes:gen:"
)

// Константы для логирования.
const (
	LogListCacheHit      = "note list served from cache"
	LogListCacheCorrupt  = "cached note list is unreadable, refetching"
	LogCacheUnavailable  = "note list cache unavailable"
	LogGenerationCorrupt = "note list generation is unreadable, bypassing cache"
)

// CachedNoteStore кэширует списки заметок владельца. Список хранится под ключом
// текущего поколения владельца; любая успешная запись увеличивает поколение,
// поэтому список, прочитанный до записи, попадает под устаревший ключ и больше
// не читается. Ошибки кэша не влияют на результат операций.
type CachedNoteStore struct {
	next  repositories.NoteStore
	cache cache.Cache
	ttl   time.Duration
}

var _ repositories.NoteStore = (*CachedNoteStore)(nil)

// NewCachedNoteStore оборачивает next кэшем списков.
func NewCachedNoteStore(next repositories.NoteStore, c cache.Cache, ttl time.Duration) *CachedNoteStore {
	return &CachedNoteStore{next: next, cache: c, ttl: ttl}
}

// ListKey возвращает ключ кэша списка заметок владельца для поколения generation.
func ListKey(ownerID string, generation int64) string {
	return listKeyPrefix + ownerID + ":" + strconv.FormatInt(generation, 10)
}

// GenerationKey возвращает ключ счетчика поколений списка владельца.
func GenerationKey(ownerID string) string {
	return generationKeyPrefix + ownerID
}

// List implements repositories.NoteStore.
func (s *CachedNoteStore) List(ctx context.Context, ownerID string) ([]*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "CachedNoteStore.List"), zap.String("userID", ownerID))

	generation, ok := s.generation(ctx, ownerID)
	if !ok {
		return s.next.List(ctx, ownerID)
	}
	key := ListKey(ownerID, generation)

	cached, found, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		log.Warn(ctx, LogCacheUnavailable, zap.Error(err))
	case found:
		var notes []*entities.Note
		if err := sonic.UnmarshalString(cached, &notes); err == nil {
			log.Debug(ctx, LogListCacheHit, zap.Int("count", len(notes)))
			return notes, nil
		}
		log.Warn(ctx, LogListCacheCorrupt)
	}

	notes, err := s.next.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	if encoded, err := sonic.MarshalString(notes); err == nil {
		if err := s.cache.Set(ctx, key, encoded, s.ttl); err != nil {
			log.Warn(ctx, LogCacheUnavailable, zap.Error(err))
		}
	}
	return notes, nil
}

// generation читает текущее поколение списка владельца; отсутствующий счетчик
// означает поколение 0. ok=false, если кэш недоступен или счетчик испорчен.
func (s *CachedNoteStore) generation(ctx context.Context, ownerID string) (int64, bool) {
	log := logger.Log(ctx)

	raw, found, err := s.cache.Get(ctx, GenerationKey(ownerID))
	if err != nil {
		log.Warn(ctx, LogCacheUnavailable, zap.String("userID", ownerID), zap.Error(err))
		return 0, false
	}
	if !found {
		return 0, true
	}
	generation, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.Warn(ctx, LogGenerationCorrupt, zap.String("userID", ownerID), zap.Error(err))
		return 0, false
	}
	return generation, true
}

// Get implements repositories.NoteStore.
func (s *CachedNoteStore) Get(ctx context.Context, ownerID, noteID string) (*entities.Note, error) {
	return s.next.Get(ctx, ownerID, noteID)
}

// Create implements repositories.NoteStore.
func (s *CachedNoteStore) Create(ctx context.Context, ownerID string, fields entities.NoteFields) (*entities.Note, error) {
	note, err := s.next.Create(ctx, ownerID, fields)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, ownerID)
	return note, nil
}

// Update implements repositories.NoteStore.
func (s *CachedNoteStore) Update(ctx context.Context, ownerID, noteID string, update entities.NoteUpdate) (*entities.Note, error) {
	note, err := s.next.Update(ctx, ownerID, noteID, update)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, ownerID)
	return note, nil
}

// Delete implements repositories.NoteStore.
func (s *CachedNoteStore) Delete(ctx context.Context, ownerID, noteID string) error {
	if err := s.next.Delete(ctx, ownerID, noteID); err != nil {
		return err
	}
	s.invalidate(ctx, ownerID)
	return nil
}

func (s *CachedNoteStore) invalidate(ctx context.Context, ownerID string) {
	if _, err := s.cache.Incr(ctx, GenerationKey(ownerID)); err != nil {
		logger.Log(ctx).Warn(ctx, LogCacheUnavailable,
			zap.String("userID", ownerID), zap.Error(err))
	}
}
