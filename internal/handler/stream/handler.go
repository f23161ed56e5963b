package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/okulov/planettalk/backend/internal/logging"
	chatservice "github.com/okulov/planettalk/backend/internal/service/chat"
	"github.com/okulov/planettalk/backend/internal/service/turn"
	"github.com/okulov/planettalk/backend/pkg/utils"
)

// Handler streams turn events over Server-Sent Events.
type Handler struct {
	orchestrator *turn.Orchestrator
	chatSvc      *chatservice.Service
}

// New creates the stream handler.
func New(orchestrator *turn.Orchestrator, chatSvc *chatservice.Service) *Handler {
	return &Handler{orchestrator: orchestrator, chatSvc: chatSvc}
}

// StreamEvent is one SSE frame of a turn.
type StreamEvent struct {
	Event     string `json:"event"`
	SessionID string `json:"sessionId,omitempty"`
	Speaker   string `json:"speaker,omitempty"`
	Content   string `json:"content,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

// sseSink delivers turn events as SSE frames. Responders call it
// concurrently, so every write goes through the mutex.
type sseSink struct {
	mu        sync.Mutex
	w         http.ResponseWriter
	flusher   http.Flusher
	sessionID string
}

func (s *sseSink) send(event StreamEvent) {
	event.SessionID = s.sessionID
	s.mu.Lock()
	defer s.mu.Unlock()
	utils.SendSSEChunk(s.w, s.flusher, event)
}

func (s *sseSink) StartMessage(speaker string) {
	s.send(StreamEvent{Event: "start", Speaker: speaker})
}

func (s *sseSink) Fragment(speaker, fragment string) {
	s.send(StreamEvent{Event: "delta", Speaker: speaker, Content: fragment})
}

func (s *sseSink) FinalizeMessage(speaker, content string) {
	s.send(StreamEvent{Event: "message", Speaker: speaker, Content: content})
}

func (s *sseSink) SpeakerError(speaker string, err error) {
	s.send(StreamEvent{Event: "error", Speaker: speaker, Error: err.Error()})
}

// HandleStreamRequest runs one turn for the session and streams its
// events until every launched responder has finished.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, sessionID, userMessage string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	sink := &sseSink{w: w, flusher: flusher, sessionID: sessionID}

	if _, err := h.chatSvc.GetSession(ctx, sessionID); err != nil {
		sink.send(StreamEvent{Event: "error", Error: "session not found"})
		return err
	}

	if _, hasChart, err := h.chatSvc.Chart(ctx, sessionID); err != nil {
		sink.send(StreamEvent{Event: "error", Error: err.Error()})
		return err
	} else if !hasChart {
		sink.send(StreamEvent{Event: "error", Error: "no birth chart yet: create one first"})
		return nil
	}

	err := h.orchestrator.RunTurn(ctx, sessionID, turn.NormalizeUserMessage(userMessage), sink)
	if err != nil {
		if !errors.Is(err, turn.ErrGeneration) {
			// Orchestrator-level failure: nothing was launched.
			sink.send(StreamEvent{Event: "error", Error: err.Error()})
			return err
		}
		// Per-speaker failures were already surfaced through the sink;
		// the rest of the turn completed.
		logging.AppLogger.Warn("turn finished with speaker failures",
			zap.String("session", sessionID),
			zap.Error(err),
		)
	}

	sink.send(StreamEvent{Event: "end", Finished: true})

	logging.AppLogger.Info("turn completed", zap.String("session", sessionID))
	return nil
}
