package model

import (
	"time"

	"github.com/google/uuid"
)

// Movimiento registra el traspaso físico de un elemento (llave o documento)
// de un vehículo entre titulares. Los movimientos son inmutables salvo la
// transición confirmar/rechazar, que es de un solo disparo: nunca pueden ser
// Confirmado y Rechazado a la vez.
//
// DeTitular nil significa "el concesionario". Los titulares agrupados
// (comerciales, taller, limpieza, custodia) se almacenan como códigos fijos.
type Movimiento struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Matricula string    `gorm:"index;not null"`
	// Tipo: llaves → "first_key" | "second_key" | "card_key"
	//       documentos → "technical_sheet" | "circulation_permit"
	Tipo      string  `gorm:"type:varchar(30);not null"`
	DeTitular *string `gorm:"type:varchar(80)"`
	ATitular  string  `gorm:"type:varchar(80);index;not null"`
	Motivo    string
	// FechaLimite nil = el movimiento nunca se auto-acepta
	FechaLimite       *time.Time
	Confirmado        bool `gorm:"not null;default:false"`
	FechaConfirmacion *time.Time
	Rechazado         bool `gorm:"not null;default:false"`
	FechaRechazo      *time.Time
	Notas             string
	CreatedAt         time.Time
}

// MovimientoLlave y MovimientoDocumento son estructuralmente idénticos pero
// viven en tablas separadas, igual que en el origen de datos.
type MovimientoLlave struct{ Movimiento }

func (MovimientoLlave) TableName() string { return "movimientos_llaves" }

type MovimientoDocumento struct{ Movimiento }

func (MovimientoDocumento) TableName() string { return "movimientos_documentos" }

// Familia distingue las dos colecciones de movimientos.
type Familia string

const (
	FamiliaLlave     Familia = "llaves"
	FamiliaDocumento Familia = "documentos"
)

// TitularConcesionario y los códigos de titulares agrupados. Un titular
// agrupado no confirma movimientos; solo las personas lo hacen.
const TitularConcesionario = "concesionario"

var TitularesAgrupados = []string{"comerciales", "taller", "limpieza", "custodia"}

// EsTitularAgrupado indica si el identificador denota un rol agrupado
// en lugar de una persona.
func EsTitularAgrupado(titular string) bool {
	for _, t := range TitularesAgrupados {
		if t == titular {
			return true
		}
	}
	return false
}
