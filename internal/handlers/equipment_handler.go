package handlers

import (
	"net/http"

	"taller-backend/internal/services"

	"github.com/gorilla/mux"
)

// EquipmentHandler serves the retrieval screens from the in-memory snapshot.
type EquipmentHandler struct {
	Search *services.SearchService
}

func NewEquipmentHandler(search *services.SearchService) *EquipmentHandler {
	return &EquipmentHandler{Search: search}
}

// List returns the filtered view for ?q=; with no query, the full snapshot.
// GET /api/equipos
func (h *EquipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	equipos, err := h.Search.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(equipos),
		"equipos": equipos,
	})
}

// Refresh reloads the snapshot from the store. On failure the previous
// snapshot stays in place and keeps serving reads.
// POST /api/equipos/refresh
func (h *EquipmentHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Search.Refresh(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Get returns one record from the current snapshot.
// GET /api/equipos/{id}
func (h *EquipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	equipo, err := h.Search.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, equipo)
}
