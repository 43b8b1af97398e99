package repository

import (
	"context"
	"errors"

	"cvo/internal/model"

	"gorm.io/gorm"
)

type StockRepository interface {
	FindByMatricula(ctx context.Context, matricula string) (*model.Stock, error)

	// AsesorDe devuelve el ID del asesor asignado al vehículo, o cadena
	// vacía si el vehículo no tiene asignación activa.
	AsesorDe(ctx context.Context, matricula string) (string, error)
}

type stockRepo struct{ db *gorm.DB }

func NewStockRepository(db *gorm.DB) StockRepository { return &stockRepo{db: db} }

func (r *stockRepo) FindByMatricula(ctx context.Context, matricula string) (*model.Stock, error) {
	var s model.Stock
	err := r.db.WithContext(ctx).Where("matricula = ?", matricula).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *stockRepo) AsesorDe(ctx context.Context, matricula string) (string, error) {
	s, err := r.FindByMatricula(ctx, matricula)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if s.AsesorID == nil {
		return "", nil
	}
	return *s.AsesorID, nil
}
