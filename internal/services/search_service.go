package services

import (
	"context"
	"strings"
	"sync"

	"taller-backend/internal/models"
	"taller-backend/internal/monitoring"
)

// EquipmentLister loads the full collection. Satisfied by
// *repositories.EquipmentRepository.
type EquipmentLister interface {
	ListAll(ctx context.Context) ([]*models.Equipo, error)
}

// SearchService holds the last successfully loaded snapshot of the
// collection and serves the retrieval screens from memory. Refresh fully
// replaces the snapshot; a failed refresh keeps the previous one intact, so
// readers never observe a partial state. Matching is computed fresh on every
// search — no persistent index, which is fine at field-technician volume.
type SearchService struct {
	lister EquipmentLister

	mu       sync.RWMutex
	snapshot []*models.Equipo
	loaded   bool
}

func NewSearchService(lister EquipmentLister) *SearchService {
	return &SearchService{lister: lister}
}

// Refresh reloads the snapshot from the store. Concurrent refreshes are safe:
// whichever finishes last wins wholesale.
func (s *SearchService) Refresh(ctx context.Context) error {
	equipos, err := s.lister.ListAll(ctx)
	if err != nil {
		monitoring.SnapshotRefreshes.WithLabelValues("error").Inc()
		return err
	}

	s.mu.Lock()
	s.snapshot = equipos
	s.loaded = true
	s.mu.Unlock()

	monitoring.SnapshotRefreshes.WithLabelValues("ok").Inc()
	return nil
}

// Search returns the filtered view for the query. An empty query returns the
// whole snapshot. A record matches when the query is a case-insensitive
// substring of nombre, tipoDispositivo or marcaModelo, or when the digits of
// the query are a substring of the dni. The first search after startup loads
// the snapshot if no refresh has happened yet.
func (s *SearchService) Search(ctx context.Context, query string) ([]*models.Equipo, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	snapshot := s.snapshot
	s.mu.RUnlock()

	if query == "" {
		return append([]*models.Equipo{}, snapshot...), nil
	}

	lower := strings.ToLower(query)
	digits := digitsOf(query)

	var filtered []*models.Equipo
	for _, e := range snapshot {
		if strings.Contains(strings.ToLower(e.Nombre), lower) ||
			strings.Contains(strings.ToLower(e.TipoDispositivo), lower) ||
			strings.Contains(strings.ToLower(e.MarcaModelo), lower) ||
			(digits != "" && strings.Contains(e.DNI, digits)) {
			filtered = append(filtered, e)
		}
	}
	if filtered == nil {
		filtered = []*models.Equipo{}
	}
	return filtered, nil
}

// Get looks a record up in the current snapshot. No network round-trip.
func (s *SearchService) Get(ctx context.Context, id string) (*models.Equipo, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.snapshot {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, models.ErrEquipoNotFound
}

func (s *SearchService) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()

	if loaded {
		return nil
	}
	return s.Refresh(ctx)
}

func digitsOf(q string) string {
	var b strings.Builder
	for _, r := range q {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
