package handlers

import (
	"encoding/json"
	"net/http"
)

// HandleInfo answers the root route with a small status document. It doubles
// as the health check.
func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]any{
		"name":        "starfall",
		"realms":      h.world.Realms(),
		"connections": h.world.ConnectionCount(),
	})
	if err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
	}
}
