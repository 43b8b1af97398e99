package repository

import (
	"context"
	"time"

	"cvo/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustodiaRepository interface {
	// Upsert fija el titular y estado actual del elemento (matrícula, tipo).
	Upsert(ctx context.Context, matricula, tipo string, titular *string, estado string) error
	ListByMatricula(ctx context.Context, matricula string) ([]model.ElementoCustodia, error)
}

type custodiaRepo struct{ db *gorm.DB }

func NewCustodiaRepository(db *gorm.DB) CustodiaRepository { return &custodiaRepo{db: db} }

func (r *custodiaRepo) Upsert(ctx context.Context, matricula, tipo string, titular *string, estado string) error {
	elem := model.ElementoCustodia{
		Matricula: matricula,
		Tipo:      tipo,
		Titular:   titular,
		Estado:    estado,
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "matricula"}, {Name: "tipo"}},
		DoUpdates: clause.AssignmentColumns([]string{"titular", "estado", "updated_at"}),
	}).Create(&elem).Error
}

func (r *custodiaRepo) ListByMatricula(ctx context.Context, matricula string) ([]model.ElementoCustodia, error) {
	var elems []model.ElementoCustodia
	err := r.db.WithContext(ctx).Where("matricula = ?", matricula).Order("tipo ASC").Find(&elems).Error
	return elems, err
}
