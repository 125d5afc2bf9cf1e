package api

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"vocab-ai/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionBusy is returned when a generation is already running for the session.
	ErrSessionBusy        = errors.New("a generation is already running for this session")
	ErrQuestionOutOfRange = errors.New("question number out of range")
)

// Session is the UI state of one operator: the last generated entries and
// which quiz answers are currently revealed, keyed by entry index.
type Session struct {
	ID        string              `json:"id"`
	Source    string              `json:"source,omitempty"`
	Model     string              `json:"model,omitempty"`
	Entries   []models.VocabEntry `json:"entries"`
	Revealed  map[int]bool        `json:"revealed"`
	Busy      bool                `json:"busy"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
	}
}

func (m *SessionManager) Create() *Session {
	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		Entries:   []models.VocabEntry{},
		Revealed:  map[int]bool{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	return session.clone()
}

func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return session.clone(), true
}

// Begin marks the session busy. Only one generation may run per session.
func (m *SessionManager) Begin(id string) error {
	return m.withSession(id, func(s *Session) error {
		if s.Busy {
			return ErrSessionBusy
		}
		s.Busy = true
		return nil
	})
}

// Finish clears the busy flag without touching the stored entries.
func (m *SessionManager) Finish(id string) {
	_ = m.withSession(id, func(s *Session) error {
		s.Busy = false
		return nil
	})
}

// Complete replaces the session entries wholesale and resets reveal state.
func (m *SessionManager) Complete(id, source, model string, entries []models.VocabEntry) (*Session, error) {
	var out *Session
	err := m.withSession(id, func(s *Session) error {
		s.Source = source
		s.Model = model
		s.Entries = models.CloneEntries(entries)
		if s.Entries == nil {
			s.Entries = []models.VocabEntry{}
		}
		s.Revealed = map[int]bool{}
		s.Busy = false
		s.UpdatedAt = time.Now().UTC()
		out = s.clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ToggleReveal flips the reveal state of the question at index and returns the
// entry it belongs to, read under the same lock as the toggle.
func (m *SessionManager) ToggleReveal(id string, index int) (models.VocabEntry, bool, error) {
	var (
		entry    models.VocabEntry
		revealed bool
	)
	err := m.withSession(id, func(s *Session) error {
		if index < 0 || index >= len(s.Entries) {
			return ErrQuestionOutOfRange
		}
		revealed = !s.Revealed[index]
		s.Revealed[index] = revealed
		entry = s.Entries[index].Clone()
		return nil
	})
	return entry, revealed, err
}

func (m *SessionManager) withSession(id string, fn func(s *Session) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if err := fn(session); err != nil {
		return err
	}
	session.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Entries = models.CloneEntries(s.Entries)
	out.Revealed = make(map[int]bool, len(s.Revealed))
	for k, v := range s.Revealed {
		out.Revealed[k] = v
	}
	return &out
}
