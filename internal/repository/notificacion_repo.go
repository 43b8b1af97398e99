package repository

import (
	"context"
	"time"

	"cvo/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificacionRepository interface {
	Create(ctx context.Context, n *model.NotificacionIncidencia) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.NotificacionIncidencia, error)
	Update(ctx context.Context, n *model.NotificacionIncidencia) error

	// ListPendingRetries devuelve notificaciones pendientes cuyo próximo
	// reintento ya venció, limitado al tamaño de lote del cron.
	ListPendingRetries(ctx context.Context, ahora time.Time, limit int) ([]model.NotificacionIncidencia, error)
}

type notificacionRepo struct{ db *gorm.DB }

func NewNotificacionRepository(db *gorm.DB) NotificacionRepository {
	return &notificacionRepo{db: db}
}

func (r *notificacionRepo) Create(ctx context.Context, n *model.NotificacionIncidencia) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificacionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.NotificacionIncidencia, error) {
	var n model.NotificacionIncidencia
	err := r.db.WithContext(ctx).First(&n, id).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificacionRepo) Update(ctx context.Context, n *model.NotificacionIncidencia) error {
	return r.db.WithContext(ctx).Save(n).Error
}

func (r *notificacionRepo) ListPendingRetries(ctx context.Context, ahora time.Time, limit int) ([]model.NotificacionIncidencia, error) {
	var ns []model.NotificacionIncidencia
	err := r.db.WithContext(ctx).
		Where("estado = 'pendiente' AND next_retry_at IS NOT NULL AND next_retry_at <= ?", ahora).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&ns).Error
	return ns, err
}
