package repositories

import (
	"context"

	"taller-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EquipmentRepository persists equipment records in the computadoras table.
// Only Create and ListAll exist: registered records are never edited or
// deleted, retrieval is read-only.
type EquipmentRepository struct {
	pool *pgxpool.Pool
}

func NewEquipmentRepository(pool *pgxpool.Pool) *EquipmentRepository {
	return &EquipmentRepository{pool: pool}
}

// Create inserts the record as a single atomic write and fills in the
// store-assigned id.
func (r *EquipmentRepository) Create(ctx context.Context, equipo *models.Equipo) error {
	fotos := equipo.Fotos
	if fotos == nil {
		fotos = []string{}
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO computadoras
			(dni, nombre, telefono, numero_serie, tipo_dispositivo,
			 marca_modelo, estado_fisico, accesorios, fotos, fecha_registro, fecha_creacion)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		equipo.DNI, equipo.Nombre, equipo.Telefono, equipo.NumeroSerie, equipo.TipoDispositivo,
		equipo.MarcaModelo, equipo.EstadoFisico, equipo.Accesorios, fotos, equipo.FechaRegistro, equipo.FechaCreacion,
	).Scan(&equipo.ID)
	if err != nil {
		return &models.StoreError{Op: "create", Err: err}
	}
	return nil
}

// ListAll returns every record in store-native order. Callers must not depend
// on the order.
func (r *EquipmentRepository) ListAll(ctx context.Context) ([]*models.Equipo, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, dni, nombre, telefono, numero_serie, tipo_dispositivo,
		       marca_modelo, estado_fisico, accesorios, fotos, fecha_registro, fecha_creacion
		FROM computadoras`)
	if err != nil {
		return nil, &models.StoreError{Op: "list", Err: err}
	}
	defer rows.Close()

	var equipos []*models.Equipo
	for rows.Next() {
		e := &models.Equipo{}
		if err := rows.Scan(
			&e.ID, &e.DNI, &e.Nombre, &e.Telefono, &e.NumeroSerie, &e.TipoDispositivo,
			&e.MarcaModelo, &e.EstadoFisico, &e.Accesorios, &e.Fotos, &e.FechaRegistro, &e.FechaCreacion,
		); err != nil {
			return nil, &models.StoreError{Op: "list", Err: err}
		}
		equipos = append(equipos, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.StoreError{Op: "list", Err: err}
	}
	return equipos, nil
}
