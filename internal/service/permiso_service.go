package service

import (
	"context"
	"fmt"

	"cvo/internal/model"
	"cvo/internal/repository"
)

// PermisoService es la puerta de autorización para mutaciones de incidencias
// y para actuar sobre movimientos dirigidos a otro titular. Las reglas son
// fijas: admin y supervisor pasan siempre; cualquier otro actor solo pasa si
// es el asesor asignado al vehículo en stock.
//
// El actor llega siempre como parámetro explícito — nunca se lee estado
// ambiental de la petición por debajo del handler.
type PermisoService interface {
	PuedeGestionarVehiculo(ctx context.Context, actorID, matricula string) error
}

type permisoService struct {
	usuarios repository.UsuarioRepository
	stock    repository.StockRepository
}

func NewPermisoService(usuarios repository.UsuarioRepository, stock repository.StockRepository) PermisoService {
	return &permisoService{usuarios: usuarios, stock: stock}
}

func (s *permisoService) PuedeGestionarVehiculo(ctx context.Context, actorID, matricula string) error {
	rol, err := s.usuarios.RolDe(ctx, actorID)
	if err != nil {
		return fmt.Errorf("consultando rol de %s: %w", actorID, err)
	}
	if rol == model.RolAdmin || rol == model.RolSupervisor {
		return nil
	}

	asesor, err := s.stock.AsesorDe(ctx, matricula)
	if err != nil {
		return fmt.Errorf("consultando asesor de %s: %w", matricula, err)
	}
	if asesor != "" && asesor == actorID {
		return nil
	}
	return fmt.Errorf("%w: no eres el asesor asignado a este vehículo", ErrProhibido)
}
