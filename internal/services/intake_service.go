package services

import (
	"context"
	"io"
	"regexp"
	"sync"
	"time"

	"taller-backend/internal/models"
	"taller-backend/internal/monitoring"

	"github.com/google/uuid"
)

// IdentityResolver resolves a DNI to the owner's full name. Satisfied by
// *identity.Client.
type IdentityResolver interface {
	NombrePorDNI(ctx context.Context, dni string) (string, error)
}

// PhotoPicker stages photos for a draft. Satisfied by *media.Staging.
type PhotoPicker interface {
	Select(ctx context.Context, r io.Reader, filename string) (models.PhotoHandle, error)
	Capture(ctx context.Context) (models.PhotoHandle, bool, error)
	Remove(handle models.PhotoHandle) error
}

// PhotoUploader pushes a batch of staged photos to blob storage. Satisfied by
// *PhotoUploadService.
type PhotoUploader interface {
	UploadAll(ctx context.Context, handles []models.PhotoHandle) ([]string, error)
}

// EquipmentCreator performs the single atomic write of a finished record.
// Satisfied by *repositories.EquipmentRepository.
type EquipmentCreator interface {
	Create(ctx context.Context, equipo *models.Equipo) error
}

var dniPattern = regexp.MustCompile(`^\d{8}$`)

// IntakeService owns every in-progress draft and drives the intake state
// machine: Editing -> LookingUp -> Editing for identity lookups, and
// Editing -> Submitting -> (discarded | Editing) for submissions. All state
// transitions happen under the service lock; network calls run outside it
// and re-check a per-draft generation on completion, so a response arriving
// for a draft that was since reset or discarded is dropped.
type IntakeService struct {
	identity IdentityResolver
	picker   PhotoPicker
	uploader PhotoUploader
	store    EquipmentCreator
	hasToken bool
	now      func() time.Time

	mu     sync.Mutex
	drafts map[string]*draftEntry
}

type draftEntry struct {
	draft      *models.Draft
	generation int
}

func NewIntakeService(identity IdentityResolver, picker PhotoPicker, uploader PhotoUploader, store EquipmentCreator, hasToken bool) *IntakeService {
	return &IntakeService{
		identity: identity,
		picker:   picker,
		uploader: uploader,
		store:    store,
		hasToken: hasToken,
		now:      time.Now,
		drafts:   make(map[string]*draftEntry),
	}
}

// CreateDraft starts a fresh empty draft and returns its state.
func (s *IntakeService) CreateDraft() *models.Draft {
	draft := &models.Draft{
		ID:    uuid.NewString(),
		State: models.DraftEditing,
		Fotos: []models.PhotoHandle{},
	}

	s.mu.Lock()
	s.drafts[draft.ID] = &draftEntry{draft: draft}
	s.mu.Unlock()

	return draft.Clone()
}

// GetDraft returns a copy of the draft's current state.
func (s *IntakeService) GetDraft(id string) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.drafts[id]
	if !ok {
		return nil, models.ErrDraftNotFound
	}
	return entry.draft.Clone(), nil
}

// DiscardDraft drops a draft and its staged photos. The shell calls this when
// the technician leaves the intake screen for good; an operation still in
// flight for the draft finds it gone and becomes a no-op.
func (s *IntakeService) DiscardDraft(id string) error {
	s.mu.Lock()
	entry, ok := s.drafts[id]
	if !ok {
		s.mu.Unlock()
		return models.ErrDraftNotFound
	}
	handles := entry.draft.Fotos
	delete(s.drafts, id)
	s.mu.Unlock()

	for _, handle := range handles {
		s.picker.Remove(handle)
	}
	return nil
}

// UpdateField replaces one scalar field of the draft. No validation happens
// here; everything is checked at submission.
func (s *IntakeService) UpdateField(id, campo, valor string) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.drafts[id]
	if !ok {
		return nil, models.ErrDraftNotFound
	}
	if entry.draft.State == models.DraftSubmitting {
		return nil, models.ErrDraftBusy
	}

	d := entry.draft
	switch campo {
	case "dni":
		d.DNI = valor
	case "nombre":
		d.Nombre = valor
	case "telefono":
		d.Telefono = valor
	case "numeroSerie":
		d.NumeroSerie = valor
	case "tipoDispositivo":
		d.TipoDispositivo = valor
	case "marcaModelo":
		d.MarcaModelo = valor
	case "estadoFisico":
		d.EstadoFisico = valor
	case "accesorios":
		d.Accesorios = valor
	case "fechaRegistro":
		d.FechaRegistro = valor
	default:
		return nil, models.ErrCampoDesconocido
	}
	return d.Clone(), nil
}

// LookupDNI resolves the draft's DNI to a display name and fills in nombre.
// Preconditions: the dni is exactly 8 digits, the API token is configured and
// no lookup is already in flight for this draft. Other fields are never
// touched; on failure nombre stays as-is.
func (s *IntakeService) LookupDNI(ctx context.Context, id string) (*models.Draft, error) {
	s.mu.Lock()
	entry, ok := s.drafts[id]
	if !ok {
		s.mu.Unlock()
		return nil, models.ErrDraftNotFound
	}
	if entry.draft.State != models.DraftEditing {
		s.mu.Unlock()
		return nil, models.ErrDraftBusy
	}
	dni := entry.draft.DNI
	if !dniPattern.MatchString(dni) {
		s.mu.Unlock()
		return nil, models.ErrDNIInvalido
	}
	if !s.hasToken {
		// Configuration error, not a lookup failure: no network call.
		s.mu.Unlock()
		return nil, models.ErrTokenNoConfigurado
	}
	entry.draft.State = models.DraftLookingUp
	generation := entry.generation
	s.mu.Unlock()

	nombre, lookupErr := s.identity.NombrePorDNI(ctx, dni)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok = s.drafts[id]
	if !ok || entry.generation != generation {
		// The draft was discarded or reset while the request was in flight.
		if lookupErr != nil {
			monitoring.Lookups.WithLabelValues("error").Inc()
			return nil, lookupErr
		}
		monitoring.Lookups.WithLabelValues("stale").Inc()
		return nil, models.ErrDraftNotFound
	}

	entry.draft.State = models.DraftEditing
	if lookupErr != nil {
		monitoring.Lookups.WithLabelValues("error").Inc()
		return entry.draft.Clone(), lookupErr
	}

	entry.draft.Nombre = nombre
	monitoring.Lookups.WithLabelValues("ok").Inc()
	return entry.draft.Clone(), nil
}

// AddPhotoFromUpload stages a gallery-picked image and appends it to the
// draft's photo sequence.
func (s *IntakeService) AddPhotoFromUpload(ctx context.Context, id string, r io.Reader, filename string) (*models.Draft, error) {
	if err := s.checkAttachable(id); err != nil {
		return nil, err
	}

	handle, err := s.picker.Select(ctx, r, filename)
	if err != nil {
		return nil, err
	}
	return s.appendPhoto(id, handle)
}

// AddPhotoFromCamera claims the newest camera capture, if any. A cancelled
// capture returns the unchanged draft with captured=false.
func (s *IntakeService) AddPhotoFromCamera(ctx context.Context, id string) (*models.Draft, bool, error) {
	if err := s.checkAttachable(id); err != nil {
		return nil, false, err
	}

	handle, ok, err := s.picker.Capture(ctx)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		draft, err := s.GetDraft(id)
		return draft, false, err
	}

	draft, err := s.appendPhoto(id, handle)
	if err != nil {
		return nil, false, err
	}
	return draft, true, nil
}

func (s *IntakeService) checkAttachable(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.drafts[id]
	if !ok {
		return models.ErrDraftNotFound
	}
	if entry.draft.State == models.DraftSubmitting {
		return models.ErrDraftBusy
	}
	return nil
}

func (s *IntakeService) appendPhoto(id string, handle models.PhotoHandle) (*models.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.drafts[id]
	if !ok {
		// Draft vanished while the image was being staged; don't leak the file.
		s.picker.Remove(handle)
		return nil, models.ErrDraftNotFound
	}
	entry.draft.Fotos = append(entry.draft.Fotos, handle)
	return entry.draft.Clone(), nil
}

// RemovePhoto discards the photo at index. Removal is destructive (the staged
// file cannot be recovered), so the caller must pass an explicit confirmation.
func (s *IntakeService) RemovePhoto(id string, index int, confirmed bool) (*models.Draft, error) {
	if !confirmed {
		return nil, models.ErrRemovalNotConfirmed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.drafts[id]
	if !ok {
		return nil, models.ErrDraftNotFound
	}
	if entry.draft.State == models.DraftSubmitting {
		return nil, models.ErrDraftBusy
	}
	if index < 0 || index >= len(entry.draft.Fotos) {
		return nil, models.ErrFotoIndexOutOfRange
	}

	handle := entry.draft.Fotos[index]
	entry.draft.Fotos = append(entry.draft.Fotos[:index], entry.draft.Fotos[index+1:]...)
	s.picker.Remove(handle)

	return entry.draft.Clone(), nil
}

// Submit validates the draft, uploads its photo batch, writes the final
// record and resets the draft to empty. On any failure the draft is preserved
// unmodified, photos included, so the technician can retry.
func (s *IntakeService) Submit(ctx context.Context, id string) (*models.Equipo, error) {
	s.mu.Lock()
	entry, ok := s.drafts[id]
	if !ok {
		s.mu.Unlock()
		return nil, models.ErrDraftNotFound
	}
	if entry.draft.State != models.DraftEditing {
		s.mu.Unlock()
		return nil, models.ErrDraftBusy
	}

	if missing := requiredMissing(entry.draft); len(missing) > 0 {
		s.mu.Unlock()
		monitoring.Registrations.WithLabelValues("invalid").Inc()
		return nil, &models.ValidationError{Missing: missing}
	}
	if entry.draft.FechaRegistro != "" {
		if _, err := time.Parse("2006-01-02", entry.draft.FechaRegistro); err != nil {
			s.mu.Unlock()
			monitoring.Registrations.WithLabelValues("invalid").Inc()
			return nil, models.ErrFechaInvalida
		}
	}

	entry.draft.State = models.DraftSubmitting
	generation := entry.generation
	snapshot := entry.draft.Clone()
	s.mu.Unlock()

	urls, err := s.uploader.UploadAll(ctx, snapshot.Fotos)
	if err != nil {
		s.rollback(id, generation)
		monitoring.Registrations.WithLabelValues("upload_error").Inc()
		return nil, err
	}

	now := s.now()
	fechaRegistro := snapshot.FechaRegistro
	if fechaRegistro == "" {
		fechaRegistro = now.Format("2006-01-02")
	}

	equipo := &models.Equipo{
		DNI:             snapshot.DNI,
		Nombre:          snapshot.Nombre,
		Telefono:        snapshot.Telefono,
		NumeroSerie:     snapshot.NumeroSerie,
		TipoDispositivo: snapshot.TipoDispositivo,
		MarcaModelo:     snapshot.MarcaModelo,
		EstadoFisico:    snapshot.EstadoFisico,
		Accesorios:      snapshot.Accesorios,
		Fotos:           urls,
		FechaRegistro:   fechaRegistro,
		FechaCreacion:   now.Format(time.RFC3339),
	}

	if err := s.store.Create(ctx, equipo); err != nil {
		s.rollback(id, generation)
		monitoring.Registrations.WithLabelValues("store_error").Inc()
		return nil, err
	}

	s.mu.Lock()
	if entry, ok := s.drafts[id]; ok && entry.generation == generation {
		entry.generation++
		entry.draft = &models.Draft{
			ID:    id,
			State: models.DraftEditing,
			Fotos: []models.PhotoHandle{},
		}
	}
	s.mu.Unlock()

	// Staged files have served their purpose; removal is best effort.
	for _, handle := range snapshot.Fotos {
		s.picker.Remove(handle)
	}

	monitoring.Registrations.WithLabelValues("ok").Inc()
	return equipo, nil
}

// rollback returns a submitting draft to the editable state, leaving every
// field and photo handle untouched.
func (s *IntakeService) rollback(id string, generation int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.drafts[id]; ok && entry.generation == generation {
		entry.draft.State = models.DraftEditing
	}
}

func requiredMissing(d *models.Draft) []string {
	var missing []string
	if d.NumeroSerie == "" {
		missing = append(missing, "numeroSerie")
	}
	if d.TipoDispositivo == "" {
		missing = append(missing, "tipoDispositivo")
	}
	if d.MarcaModelo == "" {
		missing = append(missing, "marcaModelo")
	}
	if d.DNI == "" {
		missing = append(missing, "dni")
	}
	if d.Nombre == "" {
		missing = append(missing, "nombre")
	}
	return missing
}
