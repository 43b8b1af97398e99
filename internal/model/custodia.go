package model

import (
	"time"

	"github.com/google/uuid"
)

// ElementoCustodia refleja quién posee físicamente cada elemento de un
// vehículo ahora mismo: una fila por (matrícula, tipo). Se actualiza al
// crear un movimiento y es puramente informativo — el historial completo
// vive en las tablas de movimientos.
type ElementoCustodia struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Matricula string    `gorm:"uniqueIndex:idx_matricula_tipo;not null"`
	Tipo      string    `gorm:"type:varchar(30);uniqueIndex:idx_matricula_tipo;not null"`
	// Titular nil = en el concesionario
	Titular *string `gorm:"type:varchar(80)"`
	// Estado: "En concesionario" | "Entregada" | "Perdida"
	Estado    string `gorm:"type:varchar(30);not null;default:'En concesionario'"`
	UpdatedAt time.Time
}

func (ElementoCustodia) TableName() string { return "elementos_custodia" }
