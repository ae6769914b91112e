package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"notedesk/internal/notes/domain/entities"
	"notedesk/internal/notes/metrics"
	"notedesk/internal/notes/ports/repositories"
	"notedesk/internal/notes/ports/services"
	"notedesk/pkg/logger"
)

// Значения по умолчанию для SessionConfig.
const (
	DefaultAutosaveDelay = 2000 * time.Millisecond
	DefaultWriteTimeout  = 10 * time.Second
)

// Константы для сообщений logger.
const (
	LogEditStarted       = "edit session started"
	LogEditCancelled     = "edit session cancelled"
	LogAutosaveArmed     = "autosave armed"
	LogAutosaveWritten   = "autosave written"
	LogAutosaveFailed    = "autosave failed"
	LogAutosaveStale     = "autosave response ignored, session moved on"
	LogAutosaveCancelled = "autosave suppressed"
	LogSaveFailed        = "explicit save failed"
	LogSaved             = "note saved"
)

// Тексты уведомлений пользователю.
const (
	NotifySavedTitle       = "Note saved"
	NotifySavedDescription = "Your note has been successfully saved."
	NotifyErrorTitle       = "Error"
	NotifySaveFailed       = "Failed to save note"
)

// SessionState - состояние сессии редактирования.
type SessionState int

// Состояния сессии.
const (
	StateViewing SessionState = iota
	StateEditing
	StateSaving
)

func (s SessionState) String() string {
	switch s {
	case StateViewing:
		return "viewing"
	case StateEditing:
		return "editing"
	case StateSaving:
		return "saving"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// MarshalText кодирует состояние строкой в JSON.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Draft - несохраненные правки заметки.
type Draft struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

func draftOf(n *entities.Note) Draft {
	return Draft{
		Title:   n.Title,
		Content: n.Content,
		Tags:    slices.Clone(n.Tags),
	}
}

func (d Draft) clone() Draft {
	d.Tags = slices.Clone(d.Tags)
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return d
}

// changes возвращает поля черновика, расходящиеся с сохраненной заметкой.
// Заголовок сравнивается в нормализованном виде, теги - как множество.
func (d Draft) changes(n *entities.Note) entities.NoteUpdate {
	var update entities.NoteUpdate
	if title := entities.NormalizeTitle(d.Title); title != n.Title {
		update.Title = &title
	}
	if d.Content != n.Content {
		content := d.Content
		update.Content = &content
	}
	if !entities.SameTags(d.Tags, n.Tags) {
		tags := slices.Clone(d.Tags)
		if tags == nil {
			tags = []string{}
		}
		update.Tags = &tags
	}
	return update
}

// full возвращает обновление всех полей черновика для явного сохранения.
func (d Draft) full() entities.NoteUpdate {
	title := entities.NormalizeTitle(d.Title)
	content := d.Content
	tags := slices.Clone(d.Tags)
	if tags == nil {
		tags = []string{}
	}
	return entities.NoteUpdate{Title: &title, Content: &content, Tags: &tags}
}

// SessionConfig - настройки сессии редактирования.
type SessionConfig struct {
	AutosaveDelay time.Duration
	WriteTimeout  time.Duration
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.AutosaveDelay <= 0 {
		c.AutosaveDelay = DefaultAutosaveDelay
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	return c
}

// Deps - внешние зависимости сессий и рабочих пространств.
type Deps struct {
	Store     repositories.NoteStore
	Identity  services.IdentityProvider
	Notifier  services.Notifier
	Scheduler Scheduler
	Metrics   *metrics.Manager
	Session   SessionConfig
	// Now возвращает текущее время; nil означает time.Now.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Scheduler == nil {
		d.Scheduler = SystemScheduler{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	d.Session = d.Session.withDefaults()
	return d
}

func (d Deps) notify(ctx context.Context, userID string, level entities.NotificationLevel, title, description string) {
	if d.Notifier == nil {
		return
	}
	d.Notifier.Notify(ctx, entities.Notification{
		UserID:      userID,
		Level:       level,
		Title:       title,
		Description: description,
		CreatedAt:   d.Now(),
	})
}

// SessionSnapshot - согласованный срез состояния сессии.
type SessionSnapshot struct {
	State           SessionState   `json:"state"`
	Note            *entities.Note `json:"note"`
	Draft           *Draft         `json:"draft,omitempty"`
	Dirty           bool           `json:"dirty"`
	AutosavePending bool           `json:"autosave_pending"`
}

// Session управляет редактированием одной заметки: Viewing -> Editing -> Saving.
//
// Правки копятся в черновике. Каждая правка, расходящаяся с сохраненной заметкой,
// перезапускает таймер автосохранения; по его срабатыванию в хранилище уходят
// только измененные поля. Явное сохранение отменяет таймер, и после него ни одна
// запись автосохранения не выполняется.
type Session struct {
	deps      Deps
	onPersist func(*entities.Note)

	// writeMu упорядочивает записи в хранилище в рамках одной сессии.
	writeMu sync.Mutex

	mu       sync.Mutex
	state    SessionState
	note     *entities.Note
	draft    Draft
	owner    string
	bgCtx    context.Context
	timer    Timer
	timerSeq uint64
	epoch    uint64
}

// NewSession создает сессию в состоянии Viewing для заметки note.
// onPersist вызывается с каждой подтвержденной хранилищем версией заметки.
func NewSession(note *entities.Note, deps Deps, onPersist func(*entities.Note)) *Session {
	snapshot := note.Clone()
	return &Session{
		deps:      deps.withDefaults(),
		onPersist: onPersist,
		state:     StateViewing,
		note:      snapshot,
		draft:     draftOf(snapshot),
	}
}

// NoteID возвращает идентификатор редактируемой заметки.
func (s *Session) NoteID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.note.ID
}

// State возвращает текущее состояние.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot возвращает копию состояния сессии.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{
		State:           s.state,
		Note:            s.note.Clone(),
		AutosavePending: s.timer != nil,
	}
	if s.state != StateViewing {
		draft := s.draft.clone()
		snap.Draft = &draft
		snap.Dirty = !s.draft.changes(s.note).IsEmpty()
	}
	return snap
}

// authorize проверяет, что операцию выполняет владелец заметки.
func (s *Session) authorize(ctx context.Context) (string, error) {
	identity, err := s.deps.Identity.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAuthRequired, err)
	}
	if identity == nil || identity.UserID == "" {
		return "", ErrAuthRequired
	}

	s.mu.Lock()
	ownerID := s.note.UserID
	s.mu.Unlock()

	if identity.UserID != ownerID {
		return "", fmt.Errorf("%w: note belongs to another user", ErrAuthRequired)
	}
	return identity.UserID, nil
}

// Begin переводит сессию в Editing, заполняя черновик из сохраненной заметки.
// Повторный вызов в состоянии Editing ничего не меняет.
func (s *Session) Begin(ctx context.Context) error {
	ownerID, err := s.authorize(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateEditing:
		return nil
	case StateSaving:
		return fmt.Errorf("%w: save in progress", ErrInvalidTransition)
	}

	s.state = StateEditing
	s.owner = ownerID
	s.bgCtx = logger.Detach(ctx)
	s.draft = draftOf(s.note)
	s.epoch++
	if s.deps.Metrics != nil {
		s.deps.Metrics.GaugeActiveSessions.Inc()
	}

	logger.Log(ctx).Debug(ctx, LogEditStarted, zap.String("noteID", s.note.ID))
	return nil
}

// SetTitle заменяет заголовок черновика.
func (s *Session) SetTitle(ctx context.Context, title string) error {
	return s.mutate(ctx, func(d *Draft) bool {
		if d.Title == title {
			return false
		}
		d.Title = title
		return true
	})
}

// SetContent заменяет содержимое черновика.
func (s *Session) SetContent(ctx context.Context, content string) error {
	return s.mutate(ctx, func(d *Draft) bool {
		if d.Content == content {
			return false
		}
		d.Content = content
		return true
	})
}

// AddTag добавляет тег в черновик; дубликат ничего не меняет.
func (s *Session) AddTag(ctx context.Context, tag string) error {
	return s.mutate(ctx, func(d *Draft) bool {
		tags, changed := entities.AddTag(d.Tags, tag)
		d.Tags = tags
		return changed
	})
}

// RemoveTag удаляет тег из черновика; отсутствующий тег ничего не меняет.
func (s *Session) RemoveTag(ctx context.Context, tag string) error {
	return s.mutate(ctx, func(d *Draft) bool {
		tags, changed := entities.RemoveTag(d.Tags, tag)
		d.Tags = tags
		return changed
	})
}

func (s *Session) mutate(ctx context.Context, apply func(d *Draft) bool) error {
	if _, err := s.authorize(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateEditing {
		return ErrNotEditing
	}
	if !apply(&s.draft) {
		return nil
	}
	s.rearmLocked(ctx)
	return nil
}

// rearmLocked перезапускает окно автосохранения. Если черновик совпал
// с сохраненной заметкой, таймер только снимается.
func (s *Session) rearmLocked(ctx context.Context) {
	s.stopTimerLocked()
	if s.draft.changes(s.note).IsEmpty() {
		return
	}

	seq := s.timerSeq
	s.timer = s.deps.Scheduler.AfterFunc(s.deps.Session.AutosaveDelay, func() {
		s.autosave(seq)
	})
	logger.Log(ctx).Debug(ctx, LogAutosaveArmed,
		zap.String("noteID", s.note.ID),
		zap.Duration("delay", s.deps.Session.AutosaveDelay))
}

// stopTimerLocked снимает таймер. Уже сработавший обратный вызов увидит
// новый timerSeq и ничего не запишет.
func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerSeq++
}

func (s *Session) autosave(seq uint64) {
	saved := s.writeAutosave(seq)
	if saved != nil {
		s.persisted(saved)
	}
}

func (s *Session) writeAutosave(seq uint64) *entities.Note {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.state != StateEditing || seq != s.timerSeq {
		s.mu.Unlock()
		if s.deps.Metrics != nil {
			s.deps.Metrics.CounterAutosaveSuppressed.Inc()
		}
		return nil
	}
	s.timer = nil
	update := s.draft.changes(s.note)
	if update.IsEmpty() {
		s.mu.Unlock()
		return nil
	}
	epoch := s.epoch
	ownerID := s.owner
	noteID := s.note.ID
	bgCtx := s.bgCtx
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(bgCtx, s.deps.Session.WriteTimeout)
	defer cancel()

	log := logger.Log(ctx).With(zap.String("method", "Session.autosave"), zap.String("noteID", noteID))

	start := time.Now()
	saved, err := s.deps.Store.Update(ctx, ownerID, noteID, update)
	s.observeWrite("autosave", start, err)
	if err != nil {
		log.Warn(ctx, LogAutosaveFailed, zap.Error(err))
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateEditing || s.epoch != epoch {
		log.Debug(ctx, LogAutosaveStale)
		return nil
	}
	s.note = saved.Clone()
	log.Debug(ctx, LogAutosaveWritten)
	// Правка во время записи могла вернуть черновик к прежнему снимку
	// и снять таймер; относительно нового снимка он снова расходится.
	if s.timer == nil && !s.draft.changes(s.note).IsEmpty() {
		s.rearmLocked(bgCtx)
	}
	return saved.Clone()
}

// Save сохраняет весь черновик. Отложенное автосохранение отменяется до записи,
// поэтому после вызова Save хранилище не получает записей автосохранения.
// При ошибке сессия возвращается в Editing с нетронутым черновиком.
func (s *Session) Save(ctx context.Context) (*entities.Note, error) {
	ownerID, err := s.authorize(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	switch s.state {
	case StateViewing:
		s.mu.Unlock()
		return nil, ErrNotEditing
	case StateSaving:
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: save in progress", ErrInvalidTransition)
	}
	s.state = StateSaving
	s.stopTimerLocked()
	s.epoch++
	epoch := s.epoch
	update := s.draft.full()
	noteID := s.note.ID
	s.mu.Unlock()

	log := logger.Log(ctx).With(zap.String("method", "Session.Save"), zap.String("noteID", noteID))

	s.writeMu.Lock()
	start := time.Now()
	saved, err := s.deps.Store.Update(ctx, ownerID, noteID, update)
	s.observeWrite("save", start, err)
	s.writeMu.Unlock()

	s.mu.Lock()
	current := s.epoch == epoch && s.state == StateSaving
	switch {
	case err != nil && current:
		s.state = StateEditing
	case err == nil && current:
		s.note = saved.Clone()
		s.draft = draftOf(s.note)
		s.state = StateViewing
		s.bgCtx = nil
		if s.deps.Metrics != nil {
			s.deps.Metrics.GaugeActiveSessions.Dec()
		}
	}
	s.mu.Unlock()

	if err != nil {
		log.Error(ctx, LogSaveFailed, zap.Error(err))
		if s.deps.Metrics != nil {
			s.deps.Metrics.CounterSaves.WithLabelValues(metrics.ResultFailure).Inc()
		}
		s.deps.notify(ctx, ownerID, entities.NotificationError, NotifyErrorTitle, NotifySaveFailed)
		return nil, storeError(OpUpdate, err)
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.CounterSaves.WithLabelValues(metrics.ResultSuccess).Inc()
	}
	log.Info(ctx, LogSaved)
	s.deps.notify(ctx, ownerID, entities.NotificationInfo, NotifySavedTitle, NotifySavedDescription)
	s.persisted(saved)
	return saved.Clone(), nil
}

// Cancel отбрасывает черновик и отменяет отложенное автосохранение.
func (s *Session) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateViewing:
		return ErrNotEditing
	case StateSaving:
		return fmt.Errorf("%w: save in progress", ErrInvalidTransition)
	}

	s.leaveLocked()
	logger.Log(ctx).Debug(ctx, LogEditCancelled, zap.String("noteID", s.note.ID))
	return nil
}

// Close завершает сессию: таймер снимается, ответы незавершенных записей игнорируются.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateViewing {
		s.stopTimerLocked()
		return
	}
	s.leaveLocked()
}

func (s *Session) leaveLocked() {
	s.stopTimerLocked()
	s.epoch++
	s.draft = draftOf(s.note)
	s.state = StateViewing
	s.bgCtx = nil
	if s.deps.Metrics != nil {
		s.deps.Metrics.GaugeActiveSessions.Dec()
	}
}

func (s *Session) persisted(saved *entities.Note) {
	if s.onPersist != nil {
		s.onPersist(saved.Clone())
	}
}

func (s *Session) observeWrite(kind string, start time.Time, err error) {
	if s.deps.Metrics == nil {
		return
	}
	s.deps.Metrics.HistogramStoreWrite.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if kind != "autosave" {
		return
	}
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultFailure
	}
	s.deps.Metrics.CounterAutosaves.WithLabelValues(result).Inc()
}

// IsNotFound сообщает, что хранилище не нашло заметку владельца.
func IsNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNoteNotFound)
}
