package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/okulov/planettalk/backend/internal/logging"
	astroModel "github.com/okulov/planettalk/backend/internal/model/astro"
	astroservice "github.com/okulov/planettalk/backend/internal/service/astro"
	chatservice "github.com/okulov/planettalk/backend/internal/service/chat"
	"github.com/okulov/planettalk/backend/pkg/utils"
)

// Handler serves session lifecycle, transcripts and chart creation.
type Handler struct {
	chatSvc  *chatservice.Service
	computer astroservice.Computer
}

// New creates the chat handler.
func New(chatSvc *chatservice.Service, computer astroservice.Computer) *Handler {
	return &Handler{chatSvc: chatSvc, computer: computer}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}/messages", h.handleTranscript)
	r.Post("/session/{sessionID}/chart", h.handleCreateChart)
	r.Get("/session/{sessionID}/chart", h.handleGetChart)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context())
	if err != nil {
		logging.ErrorLogger.Error("failed to create session", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, session)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	messages, err := h.chatSvc.LoadTranscript(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, chatservice.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, messages)
}

// handleCreateChart validates the birth input, calls the chart
// collaborator and stores the result for the session lifetime.
func (h *Handler) handleCreateChart(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var input astroModel.BirthInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	if !astroservice.ValidateDate(input.Date) {
		utils.RespondError(w, http.StatusBadRequest, "date must match DD/MM/YYYY")
		return
	}
	if !astroservice.ValidateTime(input.Time) {
		utils.RespondError(w, http.StatusBadRequest, "time must match HH:MM or H:MM AM/PM")
		return
	}
	if !astroservice.ValidatePlace(input.Place) {
		utils.RespondError(w, http.StatusBadRequest, "place must not be blank")
		return
	}

	moment, err := astroservice.ParseBirthInput(input)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	chart, err := h.computer.Compute(r.Context(), moment)
	if err != nil {
		logging.ErrorLogger.Error("chart computation failed",
			zap.String("session", sessionID),
			zap.Error(err),
		)
		utils.RespondError(w, http.StatusBadGateway, "chart computation failed")
		return
	}

	if err := h.chatSvc.SaveBirthInput(r.Context(), sessionID, input); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.chatSvc.SaveChart(r.Context(), sessionID, chart); err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, chart)
}

func (h *Handler) handleGetChart(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		utils.RespondError(w, http.StatusNotFound, "session not found")
		return
	}

	chart, ok, err := h.chatSvc.Chart(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "chart not created yet")
		return
	}

	utils.RespondJSON(w, http.StatusOK, chart)
}
