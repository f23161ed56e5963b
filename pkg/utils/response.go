package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/okulov/planettalk/backend/internal/logging"
)

// RespondJSON writes a JSON response with the given status.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.ErrorLogger.Error("failed to encode response", zap.Error(err))
	}
}

// RespondError writes a JSON error body.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}
