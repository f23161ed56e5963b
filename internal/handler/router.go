package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	chatHandler "github.com/okulov/planettalk/backend/internal/handler/chat"
	speakerHandler "github.com/okulov/planettalk/backend/internal/handler/speaker"
	streamHandler "github.com/okulov/planettalk/backend/internal/handler/stream"
	wsHandler "github.com/okulov/planettalk/backend/internal/handler/ws"
	"github.com/okulov/planettalk/backend/internal/logging"
	middlewarePkg "github.com/okulov/planettalk/backend/internal/middleware"
	speakerModel "github.com/okulov/planettalk/backend/internal/model/speaker"
	astroservice "github.com/okulov/planettalk/backend/internal/service/astro"
	chatservice "github.com/okulov/planettalk/backend/internal/service/chat"
	"github.com/okulov/planettalk/backend/internal/service/turn"
	"github.com/okulov/planettalk/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. The orchestrator may be
// nil when the AI credentials are absent; streaming endpoints then
// answer 503.
func NewRouter(speakers speakerModel.Store, chatSvc *chatservice.Service, computer astroservice.Computer, orchestrator *turn.Orchestrator) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	speakersH := speakerHandler.New(speakers)
	chatH := chatHandler.New(chatSvc, computer)

	var streamH *streamHandler.Handler
	if orchestrator != nil {
		streamH = streamHandler.New(orchestrator, chatSvc)
	}

	r.Route("/api", func(api chi.Router) {
		speakersH.RegisterRoutes(api)
		chatH.RegisterRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			userMessage := r.URL.Query().Get("message")

			if streamH == nil {
				utils.RespondError(w, http.StatusServiceUnavailable, "ai streaming unavailable")
				return
			}
			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := streamH.HandleStreamRequest(r.Context(), w, sessionID, userMessage); err != nil {
				logging.ErrorLogger.Error("stream request failed",
					zap.String("session", sessionID),
					zap.Error(err),
				)
			}
		})

		if orchestrator != nil {
			wsH := wsHandler.New(chatSvc, orchestrator, computer, speakers)
			wsH.RegisterRoutes(api)
		}
	})

	return r
}
