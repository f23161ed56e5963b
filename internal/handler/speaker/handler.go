package speaker

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okulov/planettalk/backend/internal/model/speaker"
	"github.com/okulov/planettalk/backend/pkg/utils"
)

// Handler serves the fixed speaker roster.
type Handler struct {
	speakers speaker.Store
}

// New creates the speaker handler.
func New(speakers speaker.Store) *Handler {
	return &Handler{speakers: speakers}
}

// RegisterRoutes mounts the speaker routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/speakers", h.handleListSpeakers)
}

func (h *Handler) handleListSpeakers(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.speakers.List())
}
