package repository

import (
	"context"
	"time"

	"cvo/internal/dto"
	"cvo/internal/model"

	"gorm.io/gorm"
)

// ConteoIncidencia agrega el historial por tipo para el informe.
type ConteoIncidencia struct {
	Tipo      string
	Abiertas  int64
	Resueltas int64
}

type IncidenciaRepository interface {
	Append(ctx context.Context, h *model.HistorialIncidencia) error
	List(ctx context.Context, filter dto.HistorialFilter) ([]model.HistorialIncidencia, error)

	// MarcarResueltas cierra todas las entradas abiertas (resuelta = false)
	// del par (matrícula, tipo) y devuelve cuántas cerró.
	MarcarResueltas(ctx context.Context, matricula, tipo string, en time.Time, por string) (int64, error)

	ConteosPorTipo(ctx context.Context) ([]ConteoIncidencia, error)
}

type incidenciaRepo struct{ db *gorm.DB }

func NewIncidenciaRepository(db *gorm.DB) IncidenciaRepository { return &incidenciaRepo{db: db} }

func (r *incidenciaRepo) Append(ctx context.Context, h *model.HistorialIncidencia) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *incidenciaRepo) List(ctx context.Context, filter dto.HistorialFilter) ([]model.HistorialIncidencia, error) {
	q := r.db.WithContext(ctx).Model(&model.HistorialIncidencia{})

	if filter.Matricula != "" {
		q = q.Where("matricula = ?", filter.Matricula)
	}
	if filter.EntregaID != "" {
		q = q.Where("entrega_id = ?", filter.EntregaID)
	}
	if filter.Tipo != "" {
		q = q.Where("tipo_incidencia = ?", filter.Tipo)
	}
	switch filter.Resuelta {
	case "true":
		q = q.Where("resuelta = true")
	case "false":
		q = q.Where("resuelta = false")
	}

	var hs []model.HistorialIncidencia
	err := q.Order("fecha DESC").Find(&hs).Error
	return hs, err
}

func (r *incidenciaRepo) MarcarResueltas(ctx context.Context, matricula, tipo string, en time.Time, por string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.HistorialIncidencia{}).
		Where("matricula = ? AND tipo_incidencia = ? AND resuelta = false", matricula, tipo).
		Updates(map[string]interface{}{
			"resuelta":         true,
			"fecha_resolucion": en,
			"resuelta_por":     por,
		})
	return res.RowsAffected, res.Error
}

func (r *incidenciaRepo) ConteosPorTipo(ctx context.Context) ([]ConteoIncidencia, error) {
	var conteos []ConteoIncidencia
	err := r.db.WithContext(ctx).Model(&model.HistorialIncidencia{}).
		Select(`tipo_incidencia AS tipo,
			COUNT(*) FILTER (WHERE resuelta = false AND accion = ?) AS abiertas,
			COUNT(*) FILTER (WHERE resuelta = true) AS resueltas`, model.AccionAnadida).
		Group("tipo_incidencia").
		Scan(&conteos).Error
	return conteos, err
}
