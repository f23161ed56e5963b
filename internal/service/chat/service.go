package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/okulov/planettalk/backend/internal/model/astro"
	"github.com/okulov/planettalk/backend/internal/model/chat"
)

// OpeningMessage seeds every new conversation.
const OpeningMessage = "You're entering a conversation with the celestial bodies of our solar system. Please ask them any question or advice you seek."

// Service encapsulates conversation state management on top of a Store.
type Service struct {
	store Store
}

// NewService wraps the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// CreateSession provisions an anonymous session seeded with the opening
// system message.
func (s *Service) CreateSession(ctx context.Context) (chat.Session, error) {
	session := chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateSession(ctx, session); err != nil {
		return chat.Session{}, err
	}

	opening := chat.Message{
		SessionID: session.ID,
		Role:      chat.RoleSystem,
		Content:   OpeningMessage,
	}
	if err := s.AppendMessage(ctx, opening); err != nil {
		return chat.Session{}, err
	}

	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	return s.store.GetSession(ctx, sessionID)
}

// AppendMessage assigns identity and timestamp, then appends the
// message to the session history in a single store operation.
func (s *Service) AppendMessage(ctx context.Context, message chat.Message) error {
	if message.SessionID == "" {
		return ErrSessionNotFound
	}

	message.ID = uuid.NewString()
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	return s.store.AppendMessage(ctx, message)
}

// LoadTranscript returns the stored history for the session.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	return s.store.Messages(ctx, sessionID)
}

// SaveBirthInput records the raw birth data strings.
func (s *Service) SaveBirthInput(ctx context.Context, sessionID string, input astro.BirthInput) error {
	return s.store.SetBirthInput(ctx, sessionID, input)
}

// BirthInput returns the stored birth data, if any.
func (s *Service) BirthInput(ctx context.Context, sessionID string) (astro.BirthInput, bool, error) {
	return s.store.BirthInput(ctx, sessionID)
}

// SaveChart records the computed chart for the session lifetime.
func (s *Service) SaveChart(ctx context.Context, sessionID string, chart astro.Chart) error {
	return s.store.SetChart(ctx, sessionID, chart)
}

// Chart returns the stored chart, if one has been computed.
func (s *Service) Chart(ctx context.Context, sessionID string) (astro.Chart, bool, error) {
	return s.store.Chart(ctx, sessionID)
}
