package models

// Equipo is a registered device record as persisted in the "computadoras"
// collection. Field names mirror the intake form; scalar values are kept
// verbatim as entered by the technician.
type Equipo struct {
	ID              string   `json:"id"`
	DNI             string   `json:"dni"`             // owner national ID, 8 numeric digits
	Nombre          string   `json:"nombre"`          // owner display name, resolved via lookup
	Telefono        string   `json:"telefono"`
	NumeroSerie     string   `json:"numeroSerie"`
	TipoDispositivo string   `json:"tipoDispositivo"` // e.g. "Laptop", "Desktop"
	MarcaModelo     string   `json:"marcaModelo"`
	EstadoFisico    string   `json:"estadoFisico"`    // optional; rendered as a status label downstream
	Accesorios      string   `json:"accesorios"`
	Fotos           []string `json:"fotos"`           // public URLs, insertion order
	FechaRegistro   string   `json:"fechaRegistro"`   // YYYY-MM-DD
	FechaCreacion   string   `json:"fechaCreacion"`   // RFC3339, stamped once at creation
}
