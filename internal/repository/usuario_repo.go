package repository

import (
	"context"

	"cvo/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UsuarioRepository interface {
	Create(ctx context.Context, u *model.Usuario) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Usuario, error)
	FindByUsername(ctx context.Context, username string) (*model.Usuario, error)
	List(ctx context.Context) ([]model.Usuario, error)

	// RolDe y NombreDe son los lookups que consumen la puerta de
	// autorización y el historial. Aceptan el ID como string porque los
	// titulares agrupados no son UUIDs.
	RolDe(ctx context.Context, actorID string) (string, error)
	NombreDe(ctx context.Context, actorID string) (string, error)
	EmailDe(ctx context.Context, actorID string) (string, error)
}

type usuarioRepo struct{ db *gorm.DB }

func NewUsuarioRepository(db *gorm.DB) UsuarioRepository { return &usuarioRepo{db: db} }

func (r *usuarioRepo) Create(ctx context.Context, u *model.Usuario) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *usuarioRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Usuario, error) {
	var u model.Usuario
	err := r.db.WithContext(ctx).First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *usuarioRepo) FindByUsername(ctx context.Context, username string) (*model.Usuario, error) {
	var u model.Usuario
	err := r.db.WithContext(ctx).Where("username = ? AND activo = true", username).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *usuarioRepo) List(ctx context.Context) ([]model.Usuario, error) {
	var us []model.Usuario
	err := r.db.WithContext(ctx).Where("activo = true").Order("nombre ASC").Find(&us).Error
	return us, err
}

func (r *usuarioRepo) RolDe(ctx context.Context, actorID string) (string, error) {
	var rol string
	err := r.db.WithContext(ctx).Model(&model.Usuario{}).
		Where("id = ?", actorID).
		Pluck("rol", &rol).Error
	if err != nil {
		return "", err
	}
	return rol, nil
}

func (r *usuarioRepo) NombreDe(ctx context.Context, actorID string) (string, error) {
	var nombre string
	err := r.db.WithContext(ctx).Model(&model.Usuario{}).
		Where("id = ?", actorID).
		Pluck("nombre", &nombre).Error
	if err != nil {
		return "", err
	}
	return nombre, nil
}

func (r *usuarioRepo) EmailDe(ctx context.Context, actorID string) (string, error) {
	var email *string
	err := r.db.WithContext(ctx).Model(&model.Usuario{}).
		Where("id = ?", actorID).
		Pluck("email", &email).Error
	if err != nil {
		return "", err
	}
	if email == nil {
		return "", nil
	}
	return *email, nil
}
