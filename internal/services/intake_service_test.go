package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"taller-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	mu    sync.Mutex
	name  string
	err   error
	calls int
	block chan struct{} // when set, NombrePorDNI waits for it to close
}

func (f *stubResolver) NombrePorDNI(ctx context.Context, dni string) (string, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return f.name, f.err
}

func (f *stubResolver) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type stubPicker struct {
	mu            sync.Mutex
	selected      int
	removed       []string
	captureHandle models.PhotoHandle
	captureOK     bool
	captureErr    error
}

func (f *stubPicker) Select(_ context.Context, _ io.Reader, _ string) (models.PhotoHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	handle := models.PhotoHandle{Path: fmt.Sprintf("staged_%d.jpg", f.selected), Source: "galeria"}
	f.selected++
	return handle, nil
}

func (f *stubPicker) Capture(context.Context) (models.PhotoHandle, bool, error) {
	return f.captureHandle, f.captureOK, f.captureErr
}

func (f *stubPicker) Remove(handle models.PhotoHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, handle.Path)
	return nil
}

func (f *stubPicker) removedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.removed...)
}

type stubUploader struct {
	mu      sync.Mutex
	err     error
	calls   int
	got     []models.PhotoHandle
	entered chan struct{} // closed once UploadAll starts, when set
	release chan struct{} // when set, UploadAll waits for it to close
}

func (f *stubUploader) UploadAll(_ context.Context, handles []models.PhotoHandle) ([]string, error) {
	f.mu.Lock()
	f.calls++
	f.got = append([]models.PhotoHandle{}, handles...)
	entered, release := f.entered, f.release
	f.entered = nil
	f.mu.Unlock()

	if entered != nil {
		close(entered)
	}
	if release != nil {
		<-release
	}
	if f.err != nil {
		return nil, f.err
	}
	urls := make([]string, len(handles))
	for i, h := range handles {
		urls[i] = "https://media.test/" + h.Path
	}
	return urls, nil
}

func (f *stubUploader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type stubCreator struct {
	mu      sync.Mutex
	err     error
	calls   int
	created []*models.Equipo
}

func (f *stubCreator) Create(_ context.Context, equipo *models.Equipo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	equipo.ID = fmt.Sprintf("rec-%d", f.calls)
	f.created = append(f.created, equipo)
	return nil
}

func (f *stubCreator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type intakeFixture struct {
	svc      *IntakeService
	resolver *stubResolver
	picker   *stubPicker
	uploader *stubUploader
	creator  *stubCreator
}

func newIntakeFixture(t *testing.T) *intakeFixture {
	t.Helper()
	f := &intakeFixture{
		resolver: &stubResolver{name: "Luis Pérez"},
		picker:   &stubPicker{},
		uploader: &stubUploader{},
		creator:  &stubCreator{},
	}
	f.svc = NewIntakeService(f.resolver, f.picker, f.uploader, f.creator, true)
	f.svc.now = func() time.Time {
		return time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC)
	}
	return f
}

func (f *intakeFixture) fillRequired(t *testing.T, id string) {
	t.Helper()
	for campo, valor := range map[string]string{
		"dni":             "87654321",
		"nombre":          "Luis Pérez",
		"numeroSerie":     "SN1",
		"tipoDispositivo": "Laptop",
		"marcaModelo":     "HP X",
	} {
		_, err := f.svc.UpdateField(id, campo, valor)
		require.NoError(t, err)
	}
}

func (f *intakeFixture) addPhotos(t *testing.T, id string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.svc.AddPhotoFromUpload(context.Background(), id, bytes.NewReader(nil), "foto.jpg")
		require.NoError(t, err)
	}
}

func TestSubmit_MissingFieldsIssueNoNetworkCalls(t *testing.T) {
	f := newIntakeFixture(t)
	draft := f.svc.CreateDraft()

	_, err := f.svc.UpdateField(draft.ID, "dni", "87654321")
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), draft.ID)

	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.ElementsMatch(t, []string{"numeroSerie", "tipoDispositivo", "marcaModelo", "nombre"}, validationErr.Missing)
	assert.Zero(t, f.uploader.callCount())
	assert.Zero(t, f.creator.callCount())
	assert.Zero(t, f.resolver.callCount())
}

func TestSubmit_Success(t *testing.T) {
	f := newIntakeFixture(t)
	draft := f.svc.CreateDraft()
	f.fillRequired(t, draft.ID)
	f.addPhotos(t, draft.ID, 2)

	equipo, err := f.svc.Submit(context.Background(), draft.ID)
	require.NoError(t, err)

	assert.Equal(t, "rec-1", equipo.ID)
	assert.Equal(t, "87654321", equipo.DNI)
	assert.Equal(t, "Luis Pérez", equipo.Nombre)
	assert.Equal(t, []string{
		"https://media.test/staged_0.jpg",
		"https://media.test/staged_1.jpg",
	}, equipo.Fotos)
	assert.Equal(t, "2026-09-01", equipo.FechaRegistro, "defaults to submission date")
	assert.Equal(t, "2026-09-01T10:30:00Z", equipo.FechaCreacion)

	// Draft resets to empty, staged files are cleaned up.
	after, err := f.svc.GetDraft(draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftEditing, after.State)
	assert.Empty(t, after.DNI)
	assert.Empty(t, after.Fotos)
	assert.ElementsMatch(t, []string{"staged_0.jpg", "staged_1.jpg"}, f.picker.removedPaths())
}

func TestSubmit_UserChosenFechaRegistroKept(t *testing.T) {
	f := newIntakeFixture(t)
	draft := f.svc.CreateDraft()
	f.fillRequired(t, draft.ID)
	_, err := f.svc.UpdateField(draft.ID, "fechaRegistro", "2026-08-15")
	require.NoError(t, err)

	equipo, err := f.svc.Submit(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-15", equipo.FechaRegistro)
}

func TestSubmit_BadFechaRegistroRejected(t *testing.T) {
	f := newIntakeFixture(t)
	draft := f.svc.CreateDraft()
	f.fillRequired(t, draft.ID)
	_, err := f.svc.UpdateField(draft.ID, "fechaRegistro", "15/08/2026")
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), draft.ID)
	assert.ErrorIs(t, err, models.ErrFechaInvalida)
	assert.Zero(t, f.uploader.callCount())
}

func TestSubmit_UploadFailurePreservesDraft(t *testing.T) {
	f := newIntakeFixture(t)
	f.uploader.err = &models.UploadError{Key: "imagenes/x.jpg"}
	draft := f.svc.CreateDraft()
	f.fillRequired(t, draft.ID)
	f.addPhotos(t, draft.ID, 2)

	_, err := f.svc.Submit(context.Background(), draft.ID)

	var uploadErr *models.UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Zero(t, f.creator.callCount(), "no document may be created when any upload fails")

	after, err := f.svc.GetDraft(draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftEditing, after.State)
	assert.Equal(t, "87654321", after.DNI)
	assert.Len(t, after.Fotos, 2, "local handles are kept for retry")
	assert.Empty(t, f.picker.removedPaths())
}

func TestSubmit_StoreFailurePreservesDraft(t *testing.T) {
	f := newIntakeFixture(t)
	f.creator.err = &models.StoreError{Op: "create"}
	draft := f.svc.CreateDraft()
	f.fillRequired(t, draft.ID)
	f.addPhotos(t, draft.ID, 1)

	_, err := f.svc.Submit(context.Background(), draft.ID)

	var storeErr *models.StoreError
	require.ErrorAs(t, err, &storeErr)

	after, err := f.svc.GetDraft(draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftEditing, after.State)
	assert.Len(t, after.Fotos, 1)
}

func TestSubmit_BusyDraftRejectsConcurrentOperations(t *testing.T) {
	f := newIntakeFixture(t)
	f.uploader.entered = make(chan struct{})
	f.uploader.release = make(chan struct{})
	draft := f.svc.CreateDraft()
	f.fillRequired(t, draft.ID)
	f.addPhotos(t, draft.ID, 1)

	done := make(chan error, 1)
	entered := f.uploader.entered
	go func() {
		_, err := f.svc.Submit(context.Background(), draft.ID)
		done <- err
	}()
	<-entered

	_, err := f.svc.UpdateField(draft.ID, "telefono", "999")
	assert.ErrorIs(t, err, models.ErrDraftBusy)
	_, err = f.svc.Submit(context.Background(), draft.ID)
	assert.ErrorIs(t, err, models.ErrDraftBusy)

	close(f.uploader.release)
	require.NoError(t, <-done)
}

func TestLookupDNI_SetsNombre(t *testing.T) {
	f := newIntakeFixture(t)
	draft := f.svc.CreateDraft()
	_, err := f.svc.UpdateField(draft.ID, "dni", "87654321")
	require.NoError(t, err)

	after, err := f.svc.LookupDNI(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "Luis Pérez", after.Nombre)
	assert.Equal(t, models.DraftEditing, after.State)
}

func TestLookupDNI_InvalidDNI(t *testing.T) {
	f := newIntakeFixture(t)
	draft := f.svc.CreateDraft()

	for _, dni := range []string{"", "1234567", "123456789", "12a45678"} {
		_, err := f.svc.UpdateField(draft.ID, "dni", dni)
		require.NoError(t, err)
		_, err = f.svc.LookupDNI(context.Background(), draft.ID)
		assert.ErrorIs(t, err, models.ErrDNIInvalido, "dni %q", dni)
	}
	assert.Zero(t, f.resolver.callCount())
}

func TestLookupDNI_MissingTokenShortCircuits(t *testing.T) {
	f := newIntakeFixture(t)
	f.svc.hasToken = false
	draft := f.svc.CreateDraft()
	_, err := f.svc.UpdateField(draft.ID, "dni", "87654321")
	require.NoError(t, err)

	_, err = f.svc.LookupDNI(context.Background(), draft.ID)
	assert.ErrorIs(t, err, models.ErrTokenNoConfigurado)
	assert.Zero(t, f.resolver.callCount(), "configuration error must not reach the network")
}

func TestLookupDNI_FailureLeavesFieldsUntouched(t *testing.T) {
	f := newIntakeFixture(t)
	f.resolver.err = &models.LookupError{DNI: "87654321", Reason: "no data found for this DNI"}
	f.resolver.name = ""
	draft := f.svc.CreateDraft()
	_, err := f.svc.UpdateField(draft.ID, "dni", "87654321")
	require.NoError(t, err)
	_, err = f.svc.UpdateField(draft.ID, "nombre", "Manual Entry")
	require.NoError(t, err)

	_, err = f.svc.LookupDNI(context.Background(), draft.ID)

	var lookupErr *models.LookupError
	require.ErrorAs(t, err, &lookupErr)

	after, err := f.svc.GetDraft(draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "Manual Entry", after.Nombre)
	assert.Equal(t, models.DraftEditing, after.State)
}

func TestLookupDNI_BusyFlagBlocksReentry(t *testing.T) {
	f := newIntakeFixture(t)
	f.resolver.block = make(chan struct{})
	draft := f.svc.CreateDraft()
	_, err := f.svc.UpdateField(draft.ID, "dni", "87654321")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		f.svc.LookupDNI(context.Background(), draft.ID)
		close(done)
	}()

	require.Eventually(t, func() bool {
		d, err := f.svc.GetDraft(draft.ID)
		return err == nil && d.State == models.DraftLookingUp
	}, time.Second, 5*time.Millisecond)

	_, err = f.svc.LookupDNI(context.Background(), draft.ID)
	assert.ErrorIs(t, err, models.ErrDraftBusy)

	close(f.resolver.block)
	<-done
	assert.Equal(t, 1, f.resolver.callCount())
}

func TestLookupDNI_ResponseAfterDiscardIsDropped(t *testing.T) {
	f := newIntakeFixture(t)
	f.resolver.block = make(chan struct{})
	draft := f.svc.CreateDraft()
	_, err := f.svc.UpdateField(draft.ID, "dni", "87654321")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.LookupDNI(context.Background(), draft.ID)
		done <- err
	}()

	require.Eventually(t, func() bool {
		d, err := f.svc.GetDraft(draft.ID)
		return err == nil && d.State == models.DraftLookingUp
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.svc.DiscardDraft(draft.ID))
	close(f.resolver.block)

	assert.ErrorIs(t, <-done, models.ErrDraftNotFound)
	_, err = f.svc.GetDraft(draft.ID)
	assert.ErrorIs(t, err, models.ErrDraftNotFound)
}

func TestRemovePhoto_RequiresConfirmation(t *testing.T) {
	f := newIntakeFixture(t)
	draft := f.svc.CreateDraft()
	f.addPhotos(t, draft.ID, 1)

	_, err := f.svc.RemovePhoto(draft.ID, 0, false)
	assert.ErrorIs(t, err, models.ErrRemovalNotConfirmed)

	after, err := f.svc.GetDraft(draft.ID)
	require.NoError(t, err)
	assert.Len(t, after.Fotos, 1, "unconfirmed removal must not mutate the draft")
}

func TestRemovePhoto_Confirmed(t *testing.T) {
	f := newIntakeFixture(t)
	draft := f.svc.CreateDraft()
	f.addPhotos(t, draft.ID, 3)

	after, err := f.svc.RemovePhoto(draft.ID, 1, true)
	require.NoError(t, err)
	require.Len(t, after.Fotos, 2)
	assert.Equal(t, "staged_0.jpg", after.Fotos[0].Path)
	assert.Equal(t, "staged_2.jpg", after.Fotos[1].Path)
	assert.Equal(t, []string{"staged_1.jpg"}, f.picker.removedPaths())

	_, err = f.svc.RemovePhoto(draft.ID, 5, true)
	assert.ErrorIs(t, err, models.ErrFotoIndexOutOfRange)
}

func TestAddPhotoFromCamera_CancelledIsNoOp(t *testing.T) {
	f := newIntakeFixture(t)
	f.picker.captureOK = false
	draft := f.svc.CreateDraft()

	after, captured, err := f.svc.AddPhotoFromCamera(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.False(t, captured)
	assert.Empty(t, after.Fotos)
}

func TestAddPhotoFromCamera_PermissionDenied(t *testing.T) {
	f := newIntakeFixture(t)
	f.picker.captureErr = &models.PermissionError{Op: "read camera spool"}
	draft := f.svc.CreateDraft()

	_, _, err := f.svc.AddPhotoFromCamera(context.Background(), draft.ID)

	var permErr *models.PermissionError
	require.ErrorAs(t, err, &permErr)

	after, err := f.svc.GetDraft(draft.ID)
	require.NoError(t, err)
	assert.Empty(t, after.Fotos)
}

func TestUpdateField_UnknownField(t *testing.T) {
	f := newIntakeFixture(t)
	draft := f.svc.CreateDraft()

	_, err := f.svc.UpdateField(draft.ID, "fotos", "nope")
	assert.ErrorIs(t, err, models.ErrCampoDesconocido)
}

func TestIntake_EndToEnd(t *testing.T) {
	f := newIntakeFixture(t)
	draft := f.svc.CreateDraft()

	for campo, valor := range map[string]string{
		"dni":             "87654321",
		"numeroSerie":     "SN1",
		"tipoDispositivo": "Laptop",
		"marcaModelo":     "HP X",
	} {
		_, err := f.svc.UpdateField(draft.ID, campo, valor)
		require.NoError(t, err)
	}
	f.addPhotos(t, draft.ID, 2)

	after, err := f.svc.LookupDNI(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "Luis Pérez", after.Nombre)

	equipo, err := f.svc.Submit(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, equipo.ID)
	assert.Equal(t, []string{
		"https://media.test/staged_0.jpg",
		"https://media.test/staged_1.jpg",
	}, equipo.Fotos)
}
