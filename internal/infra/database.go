package infra

import (
	"fmt"

	"cvo/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches that
// GORM cannot express (extensions, partial indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	// gen_random_uuid() necesita pgcrypto en Postgres < 13
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return nil, fmt.Errorf("pgcrypto: %w", err)
	}

	if err := db.AutoMigrate(
		&model.Usuario{},
		&model.Stock{},
		&model.Entrega{},
		&model.HistorialIncidencia{},
		&model.MovimientoLlave{},
		&model.MovimientoDocumento{},
		&model.ElementoCustodia{},
		&model.NotificacionIncidencia{},
	); err != nil {
		return nil, fmt.Errorf("AutoMigrate: %w", err)
	}

	if err := applySchemaPatches(db); err != nil {
		return nil, fmt.Errorf("schema patches: %w", err)
	}

	return db, nil
}

// applySchemaPatches crea los índices parciales que AutoMigrate no sabe
// expresar. Idempotente: todos los statements usan IF NOT EXISTS.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// La cola por titular solo mira movimientos sin resolver.
		{"partial idx movimientos_llaves pendientes",
			`CREATE INDEX IF NOT EXISTS idx_mov_llaves_pendientes
			 ON movimientos_llaves (a_titular)
			 WHERE confirmado = false AND rechazado = false`},
		{"partial idx movimientos_documentos pendientes",
			`CREATE INDEX IF NOT EXISTS idx_mov_docs_pendientes
			 ON movimientos_documentos (a_titular)
			 WHERE confirmado = false AND rechazado = false`},
		// El cron de reintentos escanea solo notificaciones pendientes.
		{"partial idx notificaciones pendientes",
			`CREATE INDEX IF NOT EXISTS idx_notificaciones_retry
			 ON notificaciones_incidencias (next_retry_at)
			 WHERE estado = 'pendiente'`},
		// El historial abierto por (matrícula, tipo) se cierra en bloque.
		{"partial idx historial abierto",
			`CREATE INDEX IF NOT EXISTS idx_historial_abierto
			 ON incidencias_historial (matricula, tipo_incidencia)
			 WHERE resuelta = false`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("%s: %w", p.descr, err)
		}
	}
	return nil
}
