package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"taller-backend/internal/services"

	"github.com/gorilla/mux"
)

// DraftHandler exposes the intake form operations to the presentation shell.
// The shell relays field edits, button presses and confirmation dialogs here
// and renders the draft state each call returns.
type DraftHandler struct {
	Intake *services.IntakeService
}

func NewDraftHandler(intake *services.IntakeService) *DraftHandler {
	return &DraftHandler{Intake: intake}
}

// Create starts a fresh draft.
// POST /api/drafts
func (h *DraftHandler) Create(w http.ResponseWriter, r *http.Request) {
	draft := h.Intake.CreateDraft()
	writeJSON(w, http.StatusCreated, draft)
}

// Get returns the draft's current state.
// GET /api/drafts/{id}
func (h *DraftHandler) Get(w http.ResponseWriter, r *http.Request) {
	draft, err := h.Intake.GetDraft(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// Discard drops the draft and its staged photos.
// DELETE /api/drafts/{id}
func (h *DraftHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if err := h.Intake.DiscardDraft(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// UpdateField replaces one field of the draft.
// PATCH /api/drafts/{id}  body: {"campo": "...", "valor": "..."}
func (h *DraftHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Campo string `json:"campo"`
		Valor string `json:"valor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	draft, err := h.Intake.UpdateField(mux.Vars(r)["id"], req.Campo, req.Valor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// Lookup resolves the draft's DNI to the owner's name.
// POST /api/drafts/{id}/lookup
func (h *DraftHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	draft, err := h.Intake.LookupDNI(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// AddPhoto ingests a gallery-picked image from a multipart form field "foto".
// POST /api/drafts/{id}/fotos
func (h *DraftHandler) AddPhoto(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("foto")
	if err != nil {
		http.Error(w, "Missing 'foto' file field: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	draft, err := h.Intake.AddPhotoFromUpload(r.Context(), mux.Vars(r)["id"], file, header.Filename)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// CapturePhoto claims the newest image from the camera spool. A cancelled
// capture is not an error; the response says so and the draft is unchanged.
// POST /api/drafts/{id}/fotos/captura
func (h *DraftHandler) CapturePhoto(w http.ResponseWriter, r *http.Request) {
	draft, captured, err := h.Intake.AddPhotoFromCamera(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"captured": captured,
		"draft":    draft,
	})
}

// RemovePhoto discards the photo at the given position. The shell's
// confirmation dialog outcome arrives as ?confirmar=true.
// DELETE /api/drafts/{id}/fotos/{index}
func (h *DraftHandler) RemovePhoto(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		http.Error(w, "Invalid photo index", http.StatusBadRequest)
		return
	}
	confirmed := r.URL.Query().Get("confirmar") == "true"

	draft, err := h.Intake.RemovePhoto(vars["id"], index, confirmed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// Submit runs the full pipeline: validate, upload the photo batch, write the
// record. On success the draft comes back empty and the created record is
// returned.
// POST /api/drafts/{id}/submit
func (h *DraftHandler) Submit(w http.ResponseWriter, r *http.Request) {
	equipo, err := h.Intake.Submit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"equipo":  equipo,
	})
}
