package model

import (
	"time"

	"github.com/google/uuid"
)

// Acciones registradas en el historial de incidencias.
const (
	AccionAnadida   = "añadida"
	AccionEliminada = "eliminada"
	AccionResuelta  = "resuelta"
)

// HistorialIncidencia es el libro de auditoría de incidencias: una fila por
// cada alta, baja o resolución de un tipo de incidencia sobre una entrega.
// Las filas nunca se borran; solo Resuelta/FechaResolucion/ResueltaPor se
// actualizan cuando una incidencia abierta queda resuelta a posteriori.
type HistorialIncidencia struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EntregaID      uuid.UUID `gorm:"type:uuid;index;not null"`
	Matricula      string    `gorm:"index;not null"`
	TipoIncidencia string    `gorm:"type:varchar(40);index;not null"`
	// Accion: "añadida" | "eliminada" | "resuelta"
	Accion          string `gorm:"type:varchar(20);not null"`
	UsuarioID       string `gorm:"type:varchar(80);not null"`
	UsuarioNombre   string
	Fecha           time.Time `gorm:"not null"`
	Comentario      string
	Resuelta        bool `gorm:"not null;default:false"`
	FechaResolucion *time.Time
	ResueltaPor     *string `gorm:"type:varchar(80)"`
}

func (HistorialIncidencia) TableName() string { return "incidencias_historial" }
