package models

// DraftState tracks where a draft sits in the intake flow.
type DraftState string

const (
	DraftEditing    DraftState = "editing"
	DraftLookingUp  DraftState = "looking_up"
	DraftSubmitting DraftState = "submitting"
)

// PhotoHandle references a staged image file that has not been uploaded yet.
type PhotoHandle struct {
	Path      string `json:"path"`   // absolute path in the staging directory
	Source    string `json:"source"` // "camara" or "galeria"
	SizeBytes int64  `json:"sizeBytes"`
}

// Draft is an in-progress equipment record owned by the intake service.
// Photos stay local handles until submission; the draft is discarded and
// replaced by a fresh empty one only after a successful write.
type Draft struct {
	ID              string        `json:"id"`
	State           DraftState    `json:"state"`
	DNI             string        `json:"dni"`
	Nombre          string        `json:"nombre"`
	Telefono        string        `json:"telefono"`
	NumeroSerie     string        `json:"numeroSerie"`
	TipoDispositivo string        `json:"tipoDispositivo"`
	MarcaModelo     string        `json:"marcaModelo"`
	EstadoFisico    string        `json:"estadoFisico"`
	Accesorios      string        `json:"accesorios"`
	Fotos           []PhotoHandle `json:"fotos"` // insertion order
	FechaRegistro   string        `json:"fechaRegistro"`
}

// Clone returns a deep copy safe to hand to callers while the original keeps
// being mutated under the service lock.
func (d *Draft) Clone() *Draft {
	c := *d
	c.Fotos = make([]PhotoHandle, len(d.Fotos))
	copy(c.Fotos, d.Fotos)
	return &c
}
