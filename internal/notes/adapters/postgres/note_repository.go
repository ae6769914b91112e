// Package postgres provides PostgreSQL implementations of repositories.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"notedesk/internal/notes/domain/entities"
	"notedesk/internal/notes/ports/repositories"
	"notedesk/pkg/logger"
)

// Константы для сообщений об ошибках.
const (
	ErrListingNotes  = "failed to list notes"
	ErrScanningNote  = "failed to scan note"
	ErrGettingNote   = "failed to get note"
	ErrCreatingNote  = "failed to create note"
	ErrUpdatingNote  = "failed to update note"
	ErrDeletingNote  = "failed to delete note"
	ErrIteratingRows = "error iterating rows"
)

// invalidTextRepresentation - код ошибки Postgres для id, не являющегося UUID.
const invalidTextRepresentation = "22P02"

const noteColumns = `id, user_id, title, content, tags, created_at, updated_at`

const (
	listNotesSQL = `SELECT ` + noteColumns + ` FROM notes WHERE user_id = $1 ORDER BY updated_at DESC`

	getNoteSQL = `SELECT ` + noteColumns + ` FROM notes WHERE id = $1 AND user_id = $2`

	createNoteSQL = `INSERT INTO notes (user_id, title, content, tags) VALUES ($1, $2, $3, $4) RETURNING ` + noteColumns

	// updated_at не убывает, даже если часы сервера БД сдвинулись назад.
	updateNoteSQL = `UPDATE notes SET
		title = COALESCE($3, title),
		content = COALESCE($4, content),
		tags = COALESCE($5, tags),
		updated_at = GREATEST(now(), updated_at)
	WHERE id = $1 AND user_id = $2
	RETURNING ` + noteColumns

	deleteNoteSQL = `DELETE FROM notes WHERE id = $1 AND user_id = $2`
)

// Pool - операции пула соединений, которые использует репозиторий.
// Ему удовлетворяют *pgxpool.Pool и pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NoteRepository реализует repositories.NoteStore поверх PostgreSQL.
type NoteRepository struct {
	pool Pool
}

// NewNoteRepository создает новый репозиторий заметок.
func NewNoteRepository(pool Pool) *NoteRepository {
	return &NoteRepository{pool: pool}
}

// List возвращает заметки владельца, новые сверху.
func (r *NoteRepository) List(ctx context.Context, ownerID string) ([]*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.List"))
	log.Debug(ctx, "listing notes", zap.String("userID", ownerID))

	rows, err := r.pool.Query(ctx, listNotesSQL, ownerID)
	if err != nil {
		log.Error(ctx, ErrListingNotes, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrListingNotes, err)
	}
	defer rows.Close()

	notes := make([]*entities.Note, 0)
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			log.Error(ctx, ErrScanningNote, zap.Error(err))
			return nil, fmt.Errorf("%s: %w", ErrScanningNote, err)
		}
		notes = append(notes, note)
	}

	if err := rows.Err(); err != nil {
		log.Error(ctx, ErrIteratingRows, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrIteratingRows, err)
	}

	return notes, nil
}

// Get получает заметку по ID в пределах владельца.
func (r *NoteRepository) Get(ctx context.Context, ownerID, noteID string) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.Get"))
	log.Debug(ctx, "getting note", zap.String("noteID", noteID), zap.String("userID", ownerID))

	note, err := scanNote(r.pool.QueryRow(ctx, getNoteSQL, noteID, ownerID))
	if err != nil {
		if isNotFound(err) {
			log.Debug(ctx, "note not found", zap.String("noteID", noteID))
			return nil, repositories.ErrNoteNotFound
		}
		log.Error(ctx, ErrGettingNote, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrGettingNote, err)
	}

	return note, nil
}

// Create сохраняет новую заметку и возвращает запись с присвоенными id и временем.
func (r *NoteRepository) Create(ctx context.Context, ownerID string, fields entities.NoteFields) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.Create"))
	log.Debug(ctx, "creating new note", zap.String("userID", ownerID))

	note, err := scanNote(r.pool.QueryRow(ctx, createNoteSQL,
		ownerID, fields.Title, fields.Content, entities.NormalizeTags(fields.Tags)))
	if err != nil {
		log.Error(ctx, ErrCreatingNote, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrCreatingNote, err)
	}

	log.Debug(ctx, "note created", zap.String("noteID", note.ID))
	return note, nil
}

// Update применяет частичное обновление; поля со значением nil не меняются.
func (r *NoteRepository) Update(ctx context.Context, ownerID, noteID string, update entities.NoteUpdate) (*entities.Note, error) {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.Update"))
	log.Debug(ctx, "updating note", zap.String("noteID", noteID))

	var tags []string
	if update.Tags != nil {
		tags = entities.NormalizeTags(*update.Tags)
	}

	note, err := scanNote(r.pool.QueryRow(ctx, updateNoteSQL,
		noteID, ownerID, update.Title, update.Content, tags))
	if err != nil {
		if isNotFound(err) {
			log.Debug(ctx, "note not found or not owned by user")
			return nil, repositories.ErrNoteNotFound
		}
		log.Error(ctx, ErrUpdatingNote, zap.Error(err))
		return nil, fmt.Errorf("%s: %w", ErrUpdatingNote, err)
	}

	return note, nil
}

// Delete удаляет заметку.
func (r *NoteRepository) Delete(ctx context.Context, ownerID, noteID string) error {
	log := logger.Log(ctx).With(zap.String("method", "NoteRepository.Delete"))
	log.Debug(ctx, "deleting note", zap.String("noteID", noteID))

	result, err := r.pool.Exec(ctx, deleteNoteSQL, noteID, ownerID)
	if err != nil {
		if isNotFound(err) {
			return repositories.ErrNoteNotFound
		}
		log.Error(ctx, ErrDeletingNote, zap.Error(err))
		return fmt.Errorf("%s: %w", ErrDeletingNote, err)
	}

	if result.RowsAffected() == 0 {
		log.Debug(ctx, "note not found or not owned by user")
		return repositories.ErrNoteNotFound
	}

	return nil
}

func scanNote(row pgx.Row) (*entities.Note, error) {
	var note entities.Note
	if err := row.Scan(&note.ID, &note.UserID, &note.Title, &note.Content,
		&note.Tags, &note.CreatedAt, &note.UpdatedAt); err != nil {
		return nil, err
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}
	return &note, nil
}

// isNotFound: нет строки либо id не является UUID.
func isNotFound(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}
