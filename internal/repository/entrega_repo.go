package repository

import (
	"context"
	"time"

	"cvo/internal/dto"
	"cvo/internal/model"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type EntregaRepository interface {
	Create(ctx context.Context, e *model.Entrega) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Entrega, error)
	FindByMatricula(ctx context.Context, matricula string) ([]model.Entrega, error)
	List(ctx context.Context, filter dto.EntregaFilter) ([]model.Entrega, int64, error)

	// MarcarEntregada fija la fecha de entrega al cliente.
	MarcarEntregada(ctx context.Context, id uuid.UUID, fecha time.Time) error

	// ActualizarIncidenciasCAS escribe el conjunto de incidencias solo si la
	// versión en disco coincide con la leída. false = la versión cambió por
	// debajo (otra mutación concurrente); el llamante debe releer y repetir.
	ActualizarIncidenciasCAS(ctx context.Context, id uuid.UUID, version int, tipos []string, incidencia bool) (bool, error)
}

type entregaRepo struct{ db *gorm.DB }

func NewEntregaRepository(db *gorm.DB) EntregaRepository { return &entregaRepo{db: db} }

func (r *entregaRepo) Create(ctx context.Context, e *model.Entrega) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *entregaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Entrega, error) {
	var e model.Entrega
	err := r.db.WithContext(ctx).First(&e, id).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *entregaRepo) FindByMatricula(ctx context.Context, matricula string) ([]model.Entrega, error) {
	var es []model.Entrega
	err := r.db.WithContext(ctx).Where("matricula = ?", matricula).Find(&es).Error
	return es, err
}

func (r *entregaRepo) List(ctx context.Context, filter dto.EntregaFilter) ([]model.Entrega, int64, error) {
	var entregas []model.Entrega
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Entrega{})

	if filter.Matricula != "" {
		q = q.Where("matricula = ?", filter.Matricula)
	}
	if filter.Asesor != "" {
		q = q.Where("asesor = ?", filter.Asesor)
	}
	switch filter.Incidencia {
	case "true":
		q = q.Where("incidencia = true")
	case "false":
		q = q.Where("incidencia = false")
	}
	if filter.Pendientes {
		q = q.Where("fecha_entrega IS NULL")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Order("fecha_venta DESC NULLS LAST").
		Offset(offset).Limit(filter.Limit).
		Find(&entregas).Error
	return entregas, total, err
}

func (r *entregaRepo) MarcarEntregada(ctx context.Context, id uuid.UUID, fecha time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Entrega{}).
		Where("id = ?", id).
		Update("fecha_entrega", fecha).Error
}

func (r *entregaRepo) ActualizarIncidenciasCAS(ctx context.Context, id uuid.UUID, version int, tipos []string, incidencia bool) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Entrega{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"tipos_incidencia": pq.StringArray(tipos),
			"incidencia":       incidencia,
			"version":          version + 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
