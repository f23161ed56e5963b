package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okulov/planettalk/backend/internal/model/astro"
	"github.com/okulov/planettalk/backend/internal/model/chat"
)

const (
	sessionKeyPrefix = "session:"
	historyKeyPrefix = "history:"
	birthKeyPrefix   = "birth:"
	chartKeyPrefix   = "chart:"
)

// redisStore implements Store on Redis. History lives in a list so
// appends are single RPUSH commands and therefore atomic across
// concurrent responders and instances.
type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore returns a Store backed by the given Redis client. Keys
// expire after ttl; a non-positive ttl defaults to 24 hours.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisStore{client: client, ttl: ttl}
}

func (s *redisStore) CreateSession(ctx context.Context, session chat.Session) error {
	val, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKeyPrefix+session.ID, val, s.ttl).Err()
}

func (s *redisStore) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	val, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return chat.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return chat.Session{}, err
	}

	var session chat.Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return chat.Session{}, err
	}
	return session, nil
}

func (s *redisStore) AppendMessage(ctx context.Context, message chat.Message) error {
	if err := s.ensureSession(ctx, message.SessionID); err != nil {
		return err
	}

	val, err := json.Marshal(message)
	if err != nil {
		return err
	}

	key := historyKeyPrefix + message.SessionID
	if err := s.client.RPush(ctx, key, val).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, key, s.ttl).Err()
}

func (s *redisStore) Messages(ctx context.Context, sessionID string) ([]chat.Message, error) {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return nil, err
	}

	vals, err := s.client.LRange(ctx, historyKeyPrefix+sessionID, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	messages := make([]chat.Message, 0, len(vals))
	for _, val := range vals {
		var message chat.Message
		if err := json.Unmarshal([]byte(val), &message); err != nil {
			return nil, fmt.Errorf("decode stored message: %w", err)
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func (s *redisStore) SetBirthInput(ctx context.Context, sessionID string, input astro.BirthInput) error {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return err
	}

	val, err := json.Marshal(input)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, birthKeyPrefix+sessionID, val, s.ttl).Err()
}

func (s *redisStore) BirthInput(ctx context.Context, sessionID string) (astro.BirthInput, bool, error) {
	val, err := s.client.Get(ctx, birthKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return astro.BirthInput{}, false, nil
	}
	if err != nil {
		return astro.BirthInput{}, false, err
	}

	var input astro.BirthInput
	if err := json.Unmarshal([]byte(val), &input); err != nil {
		return astro.BirthInput{}, false, err
	}
	return input, true, nil
}

func (s *redisStore) SetChart(ctx context.Context, sessionID string, chart astro.Chart) error {
	if err := s.ensureSession(ctx, sessionID); err != nil {
		return err
	}

	val, err := json.Marshal(chart)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, chartKeyPrefix+sessionID, val, s.ttl).Err()
}

func (s *redisStore) Chart(ctx context.Context, sessionID string) (astro.Chart, bool, error) {
	val, err := s.client.Get(ctx, chartKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var chart astro.Chart
	if err := json.Unmarshal([]byte(val), &chart); err != nil {
		return nil, false, err
	}
	return chart, true, nil
}

func (s *redisStore) ensureSession(ctx context.Context, sessionID string) error {
	exists, err := s.client.Exists(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrSessionNotFound
	}
	return nil
}
