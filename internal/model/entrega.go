package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Entrega es el registro por vehículo del ciclo venta → entrega, con el
// conjunto de incidencias abiertas. Incidencia debe valer siempre
// len(TiposIncidencia) > 0; ambos campos se recalculan juntos en cada
// mutación del conjunto.
//
// Version es el token de compare-and-set: toda escritura del conjunto de
// incidencias condiciona sobre la versión leída e incrementa en uno, de modo
// que dos mutaciones concurrentes (toggle manual y resolución automática)
// nunca pisan el snapshot de la otra.
type Entrega struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Matricula       string    `gorm:"index;not null"`
	Modelo          string
	FechaVenta      *time.Time
	FechaEntrega    *time.Time
	// Asesor es el ID del usuario responsable del vehículo
	Asesor          string         `gorm:"type:varchar(80);index"`
	OR              string         `gorm:"column:or_taller"`
	Incidencia      bool           `gorm:"not null;default:false"`
	TiposIncidencia pq.StringArray `gorm:"type:text[]"`
	Observaciones   string
	Version         int `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Entrega) TableName() string { return "entregas" }

// TieneIncidencia informa si el tipo está presente en el conjunto abierto.
func (e *Entrega) TieneIncidencia(tipo string) bool {
	for _, t := range e.TiposIncidencia {
		if t == tipo {
			return true
		}
	}
	return false
}
