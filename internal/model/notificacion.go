package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificacionIncidencia es el registro de un aviso por email pendiente de
// envío. El envío es best-effort: nunca afecta a la operación que lo originó.
// Los fallos se reintentan desde el cron de reintentos hasta agotar el
// presupuesto, momento en el que la notificación pasa a la DLQ.
// Estado: "pendiente" | "enviada" | "error"
type NotificacionIncidencia struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Matricula      string    `gorm:"index;not null"`
	TipoIncidencia string    `gorm:"type:varchar(40);not null"`
	Accion         string    `gorm:"type:varchar(20);not null"`
	Destinatario   string    `gorm:"not null"`
	Asunto         string
	Cuerpo         string
	Estado         string `gorm:"type:varchar(20);not null;default:'pendiente'"`
	RetryCount     int    `gorm:"not null;default:0"`
	NextRetryAt    *time.Time
	LastError      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (NotificacionIncidencia) TableName() string { return "notificaciones_incidencias" }
