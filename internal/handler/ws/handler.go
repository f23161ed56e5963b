package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/okulov/planettalk/backend/internal/logging"
	astroModel "github.com/okulov/planettalk/backend/internal/model/astro"
	"github.com/okulov/planettalk/backend/internal/model/speaker"
	astroservice "github.com/okulov/planettalk/backend/internal/service/astro"
	chatservice "github.com/okulov/planettalk/backend/internal/service/chat"
	"github.com/okulov/planettalk/backend/internal/service/turn"
)

// Handler runs the chat UI protocol over a websocket: avatar bootstrap,
// the birth-data interview and per-speaker turn events.
type Handler struct {
	chatSvc      *chatservice.Service
	orchestrator *turn.Orchestrator
	computer     astroservice.Computer
	speakers     speaker.Store
	upgrader     websocket.Upgrader
}

// New creates the websocket handler.
func New(chatSvc *chatservice.Service, orchestrator *turn.Orchestrator, computer astroservice.Computer, speakers speaker.Store) *Handler {
	return &Handler{
		chatSvc:      chatSvc,
		orchestrator: orchestrator,
		computer:     computer,
		speakers:     speakers,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage is the payload of an inbound "message" frame.
type TextMessage struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// wsConn serializes writes; turn responders send from their own
// goroutines.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(msgType, sessionID string, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.conn.WriteJSON(outgoingMessage{
		Type:      msgType,
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		logging.ErrorLogger.Error("websocket write failed",
			zap.String("type", msgType),
			zap.Error(err),
		)
	}
}

// interviewStep tracks which birth-data question is pending.
type interviewStep int

const (
	stepNone interviewStep = iota
	stepDate
	stepTime
	stepPlace
)

// connectionState holds the per-connection interview progress.
type connectionState struct {
	sessionID string
	step      interviewStep
	input     astroModel.BirthInput
	pending   string // the message that triggered the interview
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	rawConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.ErrorLogger.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer rawConn.Close()

	logging.AppLogger.Info("websocket connected", zap.String("session", sessionID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	rawConn.SetReadDeadline(time.Now().Add(60 * time.Second))
	rawConn.SetPongHandler(func(string) error {
		rawConn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	conn := &wsConn{conn: rawConn}
	go h.pingLoop(ctx, conn)

	conn.send("connected", sessionID, map[string]any{"speakers": len(h.speakers.List())})

	// One avatar per persona so the UI can render authors before any
	// speaker has talked.
	for _, sp := range h.speakers.List() {
		conn.send("avatar", sessionID, sp)
	}

	state := &connectionState{sessionID: sessionID}

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg inboundMessage
			if err := rawConn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logging.ErrorLogger.Error("websocket read failed", zap.Error(err))
				}
				return
			}

			rawConn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if msg.SessionID != "" && msg.SessionID != sessionID {
				conn.send("error", sessionID, map[string]string{"error": "session mismatch"})
				continue
			}

			h.handleMessage(ctx, conn, state, &msg)
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, conn *wsConn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "message":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			conn.send("error", state.sessionID, map[string]string{"error": "invalid message payload"})
			return
		}
		h.handleText(ctx, conn, state, text.Text)
	case "ping":
		conn.send("pong", state.sessionID, nil)
	default:
		conn.send("error", state.sessionID, map[string]string{"error": "unknown message type: " + msg.Type})
	}
}

// handleText advances the interview when one is active, starts one on
// the chart trigger, and otherwise runs a turn.
func (h *Handler) handleText(ctx context.Context, conn *wsConn, state *connectionState, text string) {
	if state.step != stepNone {
		h.advanceInterview(ctx, conn, state, text)
		return
	}

	if turn.IsChartTrigger(text) {
		state.pending = text
		state.step = stepDate
		conn.send("ask", state.sessionID, map[string]string{"question": "What's your birth date? (e.g. DD/MM/YYYY)"})
		return
	}

	h.runTurn(ctx, conn, state, text)
}

// advanceInterview validates the answer for the pending question and
// either re-asks or moves on. After the place is collected the chart is
// computed and the triggering message finally runs as a turn.
func (h *Handler) advanceInterview(ctx context.Context, conn *wsConn, state *connectionState, answer string) {
	retry := func(question string) {
		conn.send("ask", state.sessionID, map[string]string{"question": "Invalid input. Please try again. " + question})
	}

	switch state.step {
	case stepDate:
		if !astroservice.ValidateDate(answer) {
			retry("What's your birth date? (e.g. DD/MM/YYYY)")
			return
		}
		state.input.Date = answer
		state.step = stepTime
		conn.send("ask", state.sessionID, map[string]string{"question": "What's your birth time? (e.g. HH:MM)"})
	case stepTime:
		if !astroservice.ValidateTime(answer) {
			retry("What's your birth time? (e.g. HH:MM)")
			return
		}
		state.input.Time = answer
		state.step = stepPlace
		conn.send("ask", state.sessionID, map[string]string{"question": "Where were you born? (e.g. SanFrancisco)"})
	case stepPlace:
		if !astroservice.ValidatePlace(answer) {
			retry("Where were you born? (e.g. SanFrancisco)")
			return
		}
		state.input.Place = answer
		state.step = stepNone
		h.finishInterview(ctx, conn, state)
	}
}

func (h *Handler) finishInterview(ctx context.Context, conn *wsConn, state *connectionState) {
	moment, err := astroservice.ParseBirthInput(state.input)
	if err != nil {
		conn.send("error", state.sessionID, map[string]string{"error": err.Error()})
		return
	}

	chart, err := h.computer.Compute(ctx, moment)
	if err != nil {
		logging.ErrorLogger.Error("chart computation failed",
			zap.String("session", state.sessionID),
			zap.Error(err),
		)
		conn.send("error", state.sessionID, map[string]string{"error": "chart computation failed, please try again"})
		return
	}

	if err := h.chatSvc.SaveBirthInput(ctx, state.sessionID, state.input); err != nil {
		conn.send("error", state.sessionID, map[string]string{"error": err.Error()})
		return
	}
	if err := h.chatSvc.SaveChart(ctx, state.sessionID, chart); err != nil {
		conn.send("error", state.sessionID, map[string]string{"error": err.Error()})
		return
	}

	conn.send("chart", state.sessionID, map[string]any{
		"message": "Your astrological birth chart has been created! Here are the details:",
		"chart":   chart,
	})

	h.runTurn(ctx, conn, state, state.pending)
	state.pending = ""
}

func (h *Handler) runTurn(ctx context.Context, conn *wsConn, state *connectionState, text string) {
	if _, hasChart, err := h.chatSvc.Chart(ctx, state.sessionID); err != nil {
		conn.send("error", state.sessionID, map[string]string{"error": err.Error()})
		return
	} else if !hasChart {
		conn.send("error", state.sessionID, map[string]string{"error": "no birth chart yet: say \"create my chart\" to begin"})
		return
	}

	sink := &wsSink{conn: conn, sessionID: state.sessionID}
	err := h.orchestrator.RunTurn(ctx, state.sessionID, turn.NormalizeUserMessage(text), sink)
	if err != nil {
		if !errors.Is(err, turn.ErrGeneration) {
			conn.send("error", state.sessionID, map[string]string{"error": err.Error()})
			return
		}
		logging.AppLogger.Warn("turn finished with speaker failures",
			zap.String("session", state.sessionID),
			zap.Error(err),
		)
	}

	conn.send("end", state.sessionID, nil)
}

func (h *Handler) pingLoop(ctx context.Context, conn *wsConn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			conn.mu.Lock()
			err := conn.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			conn.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
