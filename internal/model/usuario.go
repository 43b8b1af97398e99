package model

import (
	"time"

	"github.com/google/uuid"
)

// Roles de usuario. Los roles admin y supervisor pueden mutar incidencias de
// cualquier vehículo; un asesor solo las de los vehículos que tiene asignados.
const (
	RolAdmin      = "admin"
	RolSupervisor = "supervisor"
	RolAsesor     = "asesor"
)

// Usuario es el perfil de un empleado del concesionario.
type Usuario struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Nombre       string    `gorm:"not null"`
	Alias        *string
	Email        *string
	PasswordHash string `gorm:"not null"`
	Rol          string `gorm:"type:varchar(20);not null;default:'asesor'"`
	Activo       bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Usuario) TableName() string { return "usuarios" }
