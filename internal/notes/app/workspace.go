package app

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"notedesk/internal/notes/domain/entities"
	"notedesk/pkg/logger"
)

// Константы для сообщений logger.
const (
	LogNotesLoaded  = "notes loaded"
	LogLoadFailed   = "failed to load notes"
	LogNoteCreated  = "note created"
	LogCreateFailed = "failed to create note"
	LogNoteDeleted  = "note deleted"
	LogDeleteFailed = "failed to delete note"
)

// Тексты уведомлений пользователю.
const (
	NotifyCreatedTitle       = "New note created"
	NotifyCreatedDescription = "Start writing your thoughts!"
	NotifyDeletedTitle       = "Note deleted"
	NotifyDeletedDescription = "The note has been removed."
	NotifyLoadFailed         = "Failed to load notes"
	NotifyCreateFailed       = "Failed to create note"
	NotifyDeleteFailed       = "Failed to delete note"
)

// WorkspaceView - отфильтрованный список заметок с текущим выбором.
type WorkspaceView struct {
	Notes      []NoteSummary `json:"notes"`
	Total      int           `json:"total"`
	Query      string        `json:"query"`
	Tag        string        `json:"tag"`
	SelectedID string        `json:"selected_id,omitempty"`
}

// Workspace - состояние одного пользователя: загруженные заметки, фильтр,
// выбранная заметка и ее сессия редактирования.
type Workspace struct {
	deps  Deps
	owner entities.Identity

	mu       sync.Mutex
	notes    []*entities.Note
	query    string
	tag      string
	selected string
	session  *Session
	lastUsed time.Time
}

// NewWorkspace создает пустое рабочее пространство владельца owner.
func NewWorkspace(owner entities.Identity, deps Deps) *Workspace {
	deps = deps.withDefaults()
	return &Workspace{
		deps:     deps,
		owner:    owner,
		notes:    []*entities.Note{},
		tag:      entities.AllTags,
		lastUsed: deps.Now(),
	}
}

// Owner возвращает владельца.
func (w *Workspace) Owner() entities.Identity {
	return w.owner
}

func (w *Workspace) authorize(ctx context.Context) error {
	identity, err := w.deps.Identity.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAuthRequired, err)
	}
	if identity == nil || identity.UserID != w.owner.UserID {
		return ErrAuthRequired
	}

	w.mu.Lock()
	w.lastUsed = w.deps.Now()
	w.mu.Unlock()
	return nil
}

// Load перечитывает заметки владельца из хранилища. Если выбранная заметка
// исчезла, выбор и сессия сбрасываются.
func (w *Workspace) Load(ctx context.Context) error {
	if err := w.authorize(ctx); err != nil {
		return err
	}

	log := logger.Log(ctx).With(zap.String("method", "Workspace.Load"), zap.String("userID", w.owner.UserID))

	notes, err := w.deps.Store.List(ctx, w.owner.UserID)
	if err != nil {
		log.Error(ctx, LogLoadFailed, zap.Error(err))
		w.deps.notify(ctx, w.owner.UserID, entities.NotificationError, NotifyErrorTitle, NotifyLoadFailed)
		return storeError(OpList, err)
	}

	loaded := make([]*entities.Note, 0, len(notes))
	for _, note := range notes {
		loaded = append(loaded, note.Clone())
	}

	var stale *Session
	w.mu.Lock()
	w.notes = loaded
	if w.selected != "" && w.indexLocked(w.selected) < 0 {
		stale = w.session
		w.session = nil
		w.selected = ""
	}
	w.mu.Unlock()

	if stale != nil {
		stale.Close()
	}

	log.Debug(ctx, LogNotesLoaded, zap.Int("count", len(loaded)))
	return nil
}

// Notes возвращает копию загруженного списка.
func (w *Workspace) Notes() []*entities.Note {
	w.mu.Lock()
	defer w.mu.Unlock()
	return cloneNotes(w.notes)
}

// SetFilter задает строку поиска и тег фильтра. Пустой тег означает "All".
func (w *Workspace) SetFilter(query, tag string) {
	if tag == "" {
		tag = entities.AllTags
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.query = query
	w.tag = tag
}

// View возвращает отфильтрованный список карточек.
func (w *Workspace) View() WorkspaceView {
	w.mu.Lock()
	defer w.mu.Unlock()

	filtered := FilterNotes(w.notes, w.query, w.tag)
	return WorkspaceView{
		Notes:      SummarizeAll(filtered),
		Total:      len(w.notes),
		Query:      w.query,
		Tag:        w.tag,
		SelectedID: w.selected,
	}
}

// Tags возвращает предлагаемые теги и все теги, встречающиеся в заметках.
func (w *Workspace) Tags() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	tags := slices.Clone(entities.AvailableTags)
	for _, note := range w.notes {
		for _, tag := range note.Tags {
			tags, _ = entities.AddTag(tags, tag)
		}
	}
	return tags
}

// Select делает заметку выбранной и открывает ее в режиме просмотра.
// Текущая сессия закрывается, ее черновик отбрасывается.
func (w *Workspace) Select(ctx context.Context, noteID string) (*entities.Note, error) {
	if err := w.authorize(ctx); err != nil {
		return nil, err
	}

	w.mu.Lock()
	idx := w.indexLocked(noteID)
	if idx < 0 {
		w.mu.Unlock()
		return nil, ErrNoteNotLoaded
	}
	note := w.notes[idx].Clone()
	prev := w.replaceSessionLocked(note)
	w.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	return note, nil
}

// Edit выбирает заметку и начинает ее редактирование. Если заметка уже
// редактируется, возвращается существующая сессия.
func (w *Workspace) Edit(ctx context.Context, noteID string) (*Session, error) {
	if err := w.authorize(ctx); err != nil {
		return nil, err
	}

	w.mu.Lock()
	if w.session != nil && w.selected == noteID && w.session.State() != StateViewing {
		session := w.session
		w.mu.Unlock()
		return session, nil
	}
	idx := w.indexLocked(noteID)
	if idx < 0 {
		w.mu.Unlock()
		return nil, ErrNoteNotLoaded
	}
	prev := w.replaceSessionLocked(w.notes[idx])
	session := w.session
	err := session.Begin(ctx)
	w.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Create создает заметку с полями по умолчанию, ставит ее первой в списке
// и сразу открывает на редактирование.
func (w *Workspace) Create(ctx context.Context) (*Session, error) {
	if err := w.authorize(ctx); err != nil {
		return nil, err
	}

	log := logger.Log(ctx).With(zap.String("method", "Workspace.Create"), zap.String("userID", w.owner.UserID))

	note, err := w.deps.Store.Create(ctx, w.owner.UserID, entities.NewNoteFields())
	if err != nil {
		log.Error(ctx, LogCreateFailed, zap.Error(err))
		w.deps.notify(ctx, w.owner.UserID, entities.NotificationError, NotifyErrorTitle, NotifyCreateFailed)
		return nil, storeError(OpCreate, err)
	}

	w.mu.Lock()
	w.notes = slices.Insert(w.notes, 0, note.Clone())
	prev := w.replaceSessionLocked(note)
	session := w.session
	err = session.Begin(ctx)
	w.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	if err != nil {
		return nil, err
	}

	log.Info(ctx, LogNoteCreated, zap.String("noteID", note.ID))
	w.deps.notify(ctx, w.owner.UserID, entities.NotificationInfo, NotifyCreatedTitle, NotifyCreatedDescription)
	return session, nil
}

// Delete удаляет заметку из хранилища, затем из списка. Если заметка была
// выбрана, выбор и сессия сбрасываются.
func (w *Workspace) Delete(ctx context.Context, noteID string) error {
	if err := w.authorize(ctx); err != nil {
		return err
	}

	log := logger.Log(ctx).With(zap.String("method", "Workspace.Delete"), zap.String("noteID", noteID))

	if err := w.deps.Store.Delete(ctx, w.owner.UserID, noteID); err != nil {
		log.Error(ctx, LogDeleteFailed, zap.Error(err))
		w.deps.notify(ctx, w.owner.UserID, entities.NotificationError, NotifyErrorTitle, NotifyDeleteFailed)
		return storeError(OpDelete, err)
	}

	var prev *Session
	w.mu.Lock()
	if idx := w.indexLocked(noteID); idx >= 0 {
		w.notes = slices.Delete(w.notes, idx, idx+1)
	}
	if w.selected == noteID {
		prev = w.session
		w.session = nil
		w.selected = ""
	}
	w.mu.Unlock()

	if prev != nil {
		prev.Close()
	}

	log.Info(ctx, LogNoteDeleted)
	w.deps.notify(ctx, w.owner.UserID, entities.NotificationInfo, NotifyDeletedTitle, NotifyDeletedDescription)
	return nil
}

// Session возвращает сессию выбранной заметки.
func (w *Workspace) Session() (*Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil {
		return nil, ErrNoActiveSession
	}
	return w.session, nil
}

// Selected возвращает выбранную заметку из списка.
func (w *Workspace) Selected() (*entities.Note, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.selected == "" {
		return nil, ErrNoActiveSession
	}
	idx := w.indexLocked(w.selected)
	if idx < 0 {
		return nil, ErrNoteNotLoaded
	}
	return w.notes[idx].Clone(), nil
}

// Idle сообщает, что пространство не использовалось дольше ttl и ничего не редактируется.
func (w *Workspace) Idle(now time.Time, ttl time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if now.Sub(w.lastUsed) < ttl {
		return false
	}
	return w.session == nil || w.session.State() == StateViewing
}

// Close закрывает сессию выбранной заметки.
func (w *Workspace) Close() {
	w.mu.Lock()
	session := w.session
	w.mu.Unlock()
	if session != nil {
		session.Close()
	}
}

// onPersist заменяет заметку в списке подтвержденной версией и поднимает ее наверх.
// Удаленные заметки обратно не добавляются.
func (w *Workspace) onPersist(saved *entities.Note) {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := w.indexLocked(saved.ID)
	if idx < 0 {
		return
	}
	w.notes = slices.Delete(w.notes, idx, idx+1)
	w.notes = slices.Insert(w.notes, 0, saved.Clone())
}

func (w *Workspace) replaceSessionLocked(note *entities.Note) *Session {
	prev := w.session
	w.selected = note.ID
	w.session = NewSession(note, w.deps, w.onPersist)
	return prev
}

func (w *Workspace) indexLocked(noteID string) int {
	return slices.IndexFunc(w.notes, func(n *entities.Note) bool {
		return n.ID == noteID
	})
}

func cloneNotes(notes []*entities.Note) []*entities.Note {
	out := make([]*entities.Note, 0, len(notes))
	for _, note := range notes {
		out = append(out, note.Clone())
	}
	return out
}
