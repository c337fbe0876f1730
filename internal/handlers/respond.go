package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"taller-backend/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the pipeline's error kinds onto HTTP statuses. Every error
// is surfaced to the initiating caller; nothing is retried here.
func writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *models.ValidationError
		permErr       *models.PermissionError
		lookupErr     *models.LookupError
		uploadErr     *models.UploadError
		storeErr      *models.StoreError
	)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrDraftNotFound), errors.Is(err, models.ErrEquipoNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrDraftBusy):
		status = http.StatusConflict
	case errors.Is(err, models.ErrDNIInvalido),
		errors.Is(err, models.ErrFechaInvalida),
		errors.Is(err, models.ErrCampoDesconocido),
		errors.Is(err, models.ErrFotoIndexOutOfRange),
		errors.Is(err, models.ErrRemovalNotConfirmed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrTokenNoConfigurado):
		status = http.StatusServiceUnavailable
	case errors.As(err, &validationErr):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &permErr):
		status = http.StatusForbidden
	case errors.As(err, &lookupErr), errors.As(err, &uploadErr):
		status = http.StatusBadGateway
	case errors.As(err, &storeErr):
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}
