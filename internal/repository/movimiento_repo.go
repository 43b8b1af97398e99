package repository

import (
	"context"
	"time"

	"cvo/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovimientoRepository da acceso a las dos colecciones de movimientos
// (llaves y documentos), que comparten estructura pero viven en tablas
// separadas. La familia se pasa en cada llamada.
//
// Las transiciones confirmar/rechazar son escrituras condicionales: solo
// tienen efecto si el movimiento sigue sin confirmar y sin rechazar en el
// momento de la escritura. El booleano devuelto indica si la condición se
// cumplió; false significa que otra petición ganó la carrera.
type MovimientoRepository interface {
	Create(ctx context.Context, familia model.Familia, m *model.Movimiento) error
	FindByID(ctx context.Context, familia model.Familia, id uuid.UUID) (*model.Movimiento, error)
	ListByDestinatario(ctx context.Context, familia model.Familia, titular string) ([]model.Movimiento, error)
	ListByMatricula(ctx context.Context, familia model.Familia, matricula string) ([]model.Movimiento, error)
	ConfirmarCondicional(ctx context.Context, familia model.Familia, id uuid.UUID, en time.Time, notas string) (bool, error)
	RechazarCondicional(ctx context.Context, familia model.Familia, id uuid.UUID, en time.Time, notas string) (bool, error)
}

type movimientoRepo struct{ db *gorm.DB }

func NewMovimientoRepository(db *gorm.DB) MovimientoRepository { return &movimientoRepo{db: db} }

func tablaDe(familia model.Familia) string {
	if familia == model.FamiliaDocumento {
		return model.MovimientoDocumento{}.TableName()
	}
	return model.MovimientoLlave{}.TableName()
}

func (r *movimientoRepo) Create(ctx context.Context, familia model.Familia, m *model.Movimiento) error {
	return r.db.WithContext(ctx).Table(tablaDe(familia)).Create(m).Error
}

func (r *movimientoRepo) FindByID(ctx context.Context, familia model.Familia, id uuid.UUID) (*model.Movimiento, error) {
	var m model.Movimiento
	err := r.db.WithContext(ctx).Table(tablaDe(familia)).Where("id = ?", id).First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *movimientoRepo) ListByDestinatario(ctx context.Context, familia model.Familia, titular string) ([]model.Movimiento, error) {
	var ms []model.Movimiento
	err := r.db.WithContext(ctx).Table(tablaDe(familia)).
		Where("a_titular = ?", titular).
		Order("created_at DESC").
		Find(&ms).Error
	return ms, err
}

func (r *movimientoRepo) ListByMatricula(ctx context.Context, familia model.Familia, matricula string) ([]model.Movimiento, error) {
	var ms []model.Movimiento
	err := r.db.WithContext(ctx).Table(tablaDe(familia)).
		Where("matricula = ?", matricula).
		Order("created_at DESC").
		Find(&ms).Error
	return ms, err
}

func (r *movimientoRepo) ConfirmarCondicional(ctx context.Context, familia model.Familia, id uuid.UUID, en time.Time, notas string) (bool, error) {
	res := r.db.WithContext(ctx).Table(tablaDe(familia)).
		Where("id = ? AND confirmado = false AND rechazado = false", id).
		Updates(map[string]interface{}{
			"confirmado":         true,
			"fecha_confirmacion": en,
			"notas":              notas,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *movimientoRepo) RechazarCondicional(ctx context.Context, familia model.Familia, id uuid.UUID, en time.Time, notas string) (bool, error) {
	res := r.db.WithContext(ctx).Table(tablaDe(familia)).
		Where("id = ? AND confirmado = false AND rechazado = false", id).
		Updates(map[string]interface{}{
			"rechazado":     true,
			"fecha_rechazo": en,
			"notas":         notas,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
