package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/okulov/planettalk/backend/internal/model/astro"
	"github.com/okulov/planettalk/backend/internal/model/chat"
)

var ErrSessionNotFound = errors.New("session not found")

// Store persists per-session conversation state: the session itself,
// the append-only history, and the birth input plus computed chart.
// AppendMessage must be atomic with respect to concurrent appenders.
type Store interface {
	CreateSession(ctx context.Context, session chat.Session) error
	GetSession(ctx context.Context, sessionID string) (chat.Session, error)
	AppendMessage(ctx context.Context, message chat.Message) error
	Messages(ctx context.Context, sessionID string) ([]chat.Message, error)
	SetBirthInput(ctx context.Context, sessionID string, input astro.BirthInput) error
	BirthInput(ctx context.Context, sessionID string) (astro.BirthInput, bool, error)
	SetChart(ctx context.Context, sessionID string, chart astro.Chart) error
	Chart(ctx context.Context, sessionID string) (astro.Chart, bool, error)
}

// memoryStore implements Store with mutex-guarded maps, suitable for a
// single-instance deployment.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]chat.Session
	messages map[string][]chat.Message
	births   map[string]astro.BirthInput
	charts   map[string]astro.Chart
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[string]chat.Session),
		messages: make(map[string][]chat.Message),
		births:   make(map[string]astro.BirthInput),
		charts:   make(map[string]astro.Chart),
	}
}

func (s *memoryStore) CreateSession(_ context.Context, session chat.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = session
	s.messages[session.ID] = make([]chat.Message, 0, 16)
	return nil
}

func (s *memoryStore) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (s *memoryStore) AppendMessage(_ context.Context, message chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[message.SessionID]; !ok {
		return ErrSessionNotFound
	}

	s.messages[message.SessionID] = append(s.messages[message.SessionID], message)
	return nil
}

func (s *memoryStore) Messages(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

func (s *memoryStore) SetBirthInput(_ context.Context, sessionID string, input astro.BirthInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}

	s.births[sessionID] = input
	return nil
}

func (s *memoryStore) BirthInput(_ context.Context, sessionID string) (astro.BirthInput, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	input, ok := s.births[sessionID]
	return input, ok, nil
}

func (s *memoryStore) SetChart(_ context.Context, sessionID string, chart astro.Chart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}

	s.charts[sessionID] = chart
	return nil
}

func (s *memoryStore) Chart(_ context.Context, sessionID string) (astro.Chart, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chart, ok := s.charts[sessionID]
	return chart, ok, nil
}
