package app_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"notedesk/internal/notes/app"
	"notedesk/internal/notes/domain/entities"
	"notedesk/internal/notes/metrics"
	"notedesk/internal/notes/ports/repositories"
	"notedesk/internal/notes/ports/services"
)

var errStoreUnavailable = errors.New("store unavailable")

const (
	testUserID  = "user-1"
	otherUserID = "user-2"
)

// manualScheduler запускает отложенные вызовы только по команде теста.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) app.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer := &manualTimer{delay: d, fn: f}
	s.timers = append(s.timers, timer)
	return timer
}

// pending возвращает таймеры, которые еще не сработали и не остановлены.
func (s *manualScheduler) pending() []*manualTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*manualTimer
	for _, timer := range s.timers {
		timer.mu.Lock()
		if !timer.stopped && !timer.fired {
			out = append(out, timer)
		}
		timer.mu.Unlock()
	}
	return out
}

// fire синхронно выполняет все ожидающие вызовы и возвращает их число.
func (s *manualScheduler) fire() int {
	timers := s.pending()
	for _, timer := range timers {
		timer.mu.Lock()
		timer.fired = true
		timer.mu.Unlock()
		timer.fn()
	}
	return len(timers)
}

// fireStopped выполняет вызовы уже остановленных таймеров, как если бы Stop опоздал.
func (s *manualScheduler) fireStopped() int {
	s.mu.Lock()
	var timers []*manualTimer
	for _, timer := range s.timers {
		timer.mu.Lock()
		if timer.stopped {
			timers = append(timers, timer)
		}
		timer.mu.Unlock()
	}
	s.mu.Unlock()

	for _, timer := range timers {
		timer.fn()
	}
	return len(timers)
}

func (s *manualScheduler) armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// memStore - хранилище заметок в памяти, записывающее все обновления.
type memStore struct {
	mu        sync.Mutex
	notes     map[string]*entities.Note
	updates   []entities.NoteUpdate
	seq       int
	clock     time.Time
	listErr   error
	createErr error
	updateErr error
	deleteErr error
	// blockUpdate, если задан, задерживает Update до чтения из канала.
	blockUpdate chan struct{}
	updateStart chan struct{}
}

func newMemStore(notes ...*entities.Note) *memStore {
	s := &memStore{
		notes: make(map[string]*entities.Note),
		clock: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	for _, note := range notes {
		s.notes[note.ID] = note.Clone()
	}
	return s
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) List(_ context.Context, ownerID string) ([]*entities.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []*entities.Note
	for _, note := range s.notes {
		if note.UserID == ownerID {
			out = append(out, note.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *entities.Note) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out, nil
}

func (s *memStore) Get(_ context.Context, ownerID, noteID string) (*entities.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.notes[noteID]
	if !ok || note.UserID != ownerID {
		return nil, repositories.ErrNoteNotFound
	}
	return note.Clone(), nil
}

func (s *memStore) Create(_ context.Context, ownerID string, fields entities.NoteFields) (*entities.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.seq++
	now := s.tick()
	note := &entities.Note{
		ID:        fmt.Sprintf("created-%d", s.seq),
		UserID:    ownerID,
		Title:     fields.Title,
		Content:   fields.Content,
		Tags:      slices.Clone(fields.Tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.notes[note.ID] = note
	return note.Clone(), nil
}

func (s *memStore) Update(_ context.Context, ownerID, noteID string, update entities.NoteUpdate) (*entities.Note, error) {
	if s.updateStart != nil {
		s.updateStart <- struct{}{}
	}
	if s.blockUpdate != nil {
		<-s.blockUpdate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, update)
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	note, ok := s.notes[noteID]
	if !ok || note.UserID != ownerID {
		return nil, repositories.ErrNoteNotFound
	}
	if update.Title != nil {
		note.Title = *update.Title
	}
	if update.Content != nil {
		note.Content = *update.Content
	}
	if update.Tags != nil {
		note.Tags = slices.Clone(*update.Tags)
	}
	note.UpdatedAt = s.tick()
	return note.Clone(), nil
}

func (s *memStore) Delete(_ context.Context, ownerID, noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	note, ok := s.notes[noteID]
	if !ok || note.UserID != ownerID {
		return repositories.ErrNoteNotFound
	}
	delete(s.notes, noteID)
	return nil
}

func (s *memStore) recordedUpdates() []entities.NoteUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.updates)
}

func (s *memStore) stored(noteID string) *entities.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notes[noteID].Clone()
}

// staticIdentity возвращает фиксированного пользователя; nil означает "не аутентифицирован".
type staticIdentity struct {
	mu       sync.Mutex
	identity *entities.Identity
}

func identityOf(userID string) *staticIdentity {
	return &staticIdentity{identity: &entities.Identity{UserID: userID, Email: userID + "@example.com"}}
}

func (p *staticIdentity) CurrentUser(context.Context) (*entities.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.identity == nil {
		return nil, services.ErrNoIdentity
	}
	identity := *p.identity
	return &identity, nil
}

func (p *staticIdentity) signOut() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identity = nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []entities.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, notification entities.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
}

func (n *recordingNotifier) last() entities.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.sent) == 0 {
		return entities.Notification{}
	}
	return n.sent[len(n.sent)-1]
}

type fixture struct {
	store     *memStore
	identity  *staticIdentity
	notifier  *recordingNotifier
	scheduler *manualScheduler
	metrics   *metrics.Manager
	deps      app.Deps
}

func newFixture(notes ...*entities.Note) *fixture {
	f := &fixture{
		store:     newMemStore(notes...),
		identity:  identityOf(testUserID),
		notifier:  &recordingNotifier{},
		scheduler: &manualScheduler{},
		metrics:   metrics.NewTestManager(),
	}
	f.deps = app.Deps{
		Store:     f.store,
		Identity:  f.identity,
		Notifier:  f.notifier,
		Scheduler: f.scheduler,
		Metrics:   f.metrics,
	}
	return f
}

func draftNote() *entities.Note {
	return &entities.Note{
		ID:        "n1",
		UserID:    testUserID,
		Title:     "Draft",
		Content:   "",
		Tags:      []string{},
		CreatedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
	}
}

func ptr[T any](v T) *T {
	return &v
}
