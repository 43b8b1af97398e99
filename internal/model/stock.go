package model

import (
	"time"

	"github.com/google/uuid"
)

// Stock es el registro de asignación activo de un vehículo: qué asesor
// responde por él. La puerta de autorización consulta esta tabla cuando el
// actor no es admin ni supervisor.
type Stock struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Matricula string    `gorm:"uniqueIndex;not null"`
	Modelo    string
	AsesorID  *string `gorm:"type:varchar(80);index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Stock) TableName() string { return "stock" }
