package http

import (
	"net/http"

	"taller-backend/internal/handlers"
	"taller-backend/internal/health"
	"taller-backend/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the API surface. localMediaDir, when non-empty, is served
// under /media/ so the local storage backend's public URLs resolve.
func NewRouter(
	draftHandler *handlers.DraftHandler,
	equipmentHandler *handlers.EquipmentHandler,
	healthHandler *health.Handler,
	localMediaDir string,
) http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.APIRateLimiter.Middleware)

	// Intake drafts
	api.HandleFunc("/drafts", draftHandler.Create).Methods("POST")
	api.HandleFunc("/drafts/{id}", draftHandler.Get).Methods("GET")
	api.HandleFunc("/drafts/{id}", draftHandler.UpdateField).Methods("PATCH")
	api.HandleFunc("/drafts/{id}", draftHandler.Discard).Methods("DELETE")
	api.HandleFunc("/drafts/{id}/lookup", draftHandler.Lookup).Methods("POST")
	api.HandleFunc("/drafts/{id}/fotos", draftHandler.AddPhoto).Methods("POST")
	api.HandleFunc("/drafts/{id}/fotos/captura", draftHandler.CapturePhoto).Methods("POST")
	api.HandleFunc("/drafts/{id}/fotos/{index}", draftHandler.RemovePhoto).Methods("DELETE")
	api.HandleFunc("/drafts/{id}/submit", draftHandler.Submit).Methods("POST")

	// Retrieval
	api.HandleFunc("/equipos", equipmentHandler.List).Methods("GET")
	api.HandleFunc("/equipos/refresh", equipmentHandler.Refresh).Methods("POST")
	api.HandleFunc("/equipos/{id}", equipmentHandler.Get).Methods("GET")

	r.HandleFunc("/health", healthHandler.Check).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	if localMediaDir != "" {
		r.PathPrefix("/media/").Handler(
			http.StripPrefix("/media/", http.FileServer(http.Dir(localMediaDir))))
	}

	var handler http.Handler = r
	handler = middleware.APIMetrics(handler)
	handler = middleware.SecurityHeaders(handler)
	return handler
}
