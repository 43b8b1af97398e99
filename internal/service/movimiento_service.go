package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cvo/internal/dto"
	"cvo/internal/model"
	"cvo/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Estados derivados de un movimiento. Nunca se almacenan: se calculan al
// leer a partir de los flags persistidos y el reloj, con precedencia
// rechazado > confirmado > auto-aceptado > pendiente.
const (
	EstadoPendiente    = "pendiente"
	EstadoConfirmado   = "confirmado"
	EstadoRechazado    = "rechazado"
	EstadoAutoAceptado = "auto_aceptado"
)

// DeriveEstado calcula el estado de un movimiento en el instante dado. Es
// una función pura: el vencimiento del plazo no escribe nada, la
// auto-aceptación existe solo como lectura derivada.
func DeriveEstado(m *model.Movimiento, en time.Time) string {
	switch {
	case m.Rechazado:
		return EstadoRechazado
	case m.Confirmado:
		return EstadoConfirmado
	case m.FechaLimite != nil && en.After(*m.FechaLimite):
		return EstadoAutoAceptado
	default:
		return EstadoPendiente
	}
}

type MovimientoService interface {
	Crear(ctx context.Context, actorID string, req dto.CrearMovimientoRequest) (*dto.MovimientoResponse, error)

	// Confirmar acepta el movimiento en nombre del destinatario. Se admite
	// tanto en pendiente como ya auto-aceptado: la confirmación tardía
	// sigue disparando la resolución de incidencias.
	Confirmar(ctx context.Context, familia model.Familia, id uuid.UUID, actorID string, req dto.ConfirmarMovimientoRequest) (*dto.MovimientoResponse, error)

	// Rechazar solo se admite mientras el movimiento está estrictamente
	// pendiente: con el plazo vencido ya no cabe rechazo.
	Rechazar(ctx context.Context, familia model.Familia, id uuid.UUID, actorID string, req dto.RechazarMovimientoRequest) (*dto.MovimientoResponse, error)

	Obtener(ctx context.Context, familia model.Familia, id uuid.UUID) (*dto.MovimientoResponse, error)
	ListarPara(ctx context.Context, titular string) (*dto.MovimientoListResponse, error)
	ListarPorMatricula(ctx context.Context, matricula string) (*dto.MovimientoListResponse, error)
	ResumenPendientes(ctx context.Context, titular string) (*dto.ResumenPendientesResponse, error)
	Custodia(ctx context.Context, matricula string) ([]model.ElementoCustodia, error)
}

type movimientoService struct {
	movimientos repository.MovimientoRepository
	custodia    repository.CustodiaRepository
	permisos    PermisoService
	incidencias IncidenciaService
	ahora       func() time.Time
	plazo       time.Duration
}

func NewMovimientoService(
	movimientos repository.MovimientoRepository,
	custodia repository.CustodiaRepository,
	permisos PermisoService,
	incidencias IncidenciaService,
	ahora func() time.Time,
	plazoConfirmacion time.Duration,
) MovimientoService {
	if ahora == nil {
		ahora = time.Now
	}
	if plazoConfirmacion <= 0 {
		plazoConfirmacion = 24 * time.Hour
	}
	return &movimientoService{
		movimientos: movimientos,
		custodia:    custodia,
		permisos:    permisos,
		incidencias: incidencias,
		ahora:       ahora,
		plazo:       plazoConfirmacion,
	}
}

func (s *movimientoService) Crear(ctx context.Context, actorID string, req dto.CrearMovimientoRequest) (*dto.MovimientoResponse, error) {
	familia, ok := FamiliaDeTipo(req.Tipo)
	if !ok {
		return nil, fmt.Errorf("%w: subtipo %q", ErrTipoDesconocido, req.Tipo)
	}

	ahora := s.ahora()
	m := &model.Movimiento{
		Matricula: req.Matricula,
		Tipo:      req.Tipo,
		DeTitular: normalizarTitular(req.DeTitular),
		ATitular:  req.ATitular,
		Motivo:    req.Motivo,
		CreatedAt: ahora,
	}
	if !req.SinPlazo {
		limite := ahora.Add(s.plazo)
		m.FechaLimite = &limite
	}

	if err := s.movimientos.Create(ctx, familia, m); err != nil {
		return nil, fmt.Errorf("creando movimiento: %w", err)
	}

	// El traspaso físico ya ocurrió: el registro de custodia se actualiza
	// al crear, la confirmación posterior es solo el acuse del receptor.
	s.actualizarCustodia(ctx, m)

	resp := movimientoToResponse(m, familia, ahora)
	log.Info().Str("matricula", m.Matricula).Str("tipo", m.Tipo).
		Str("a_titular", m.ATitular).Str("actor", actorID).
		Msg("movimiento registrado")
	return &resp, nil
}

func (s *movimientoService) Confirmar(ctx context.Context, familia model.Familia, id uuid.UUID, actorID string, req dto.ConfirmarMovimientoRequest) (*dto.MovimientoResponse, error) {
	m, err := s.buscar(ctx, familia, id)
	if err != nil {
		return nil, err
	}

	ahora := s.ahora()
	switch DeriveEstado(m, ahora) {
	case EstadoConfirmado:
		return nil, fmt.Errorf("%w: el movimiento ya está confirmado", ErrEstadoInvalido)
	case EstadoRechazado:
		return nil, fmt.Errorf("%w: el movimiento fue rechazado", ErrEstadoInvalido)
	}

	if err := s.autorizar(ctx, m, actorID); err != nil {
		return nil, err
	}

	ok, err := s.movimientos.ConfirmarCondicional(ctx, familia, id, ahora, req.Notas)
	if err != nil {
		return nil, fmt.Errorf("confirmando movimiento %s: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: otra petición resolvió el movimiento primero", ErrEstadoInvalido)
	}
	m.Confirmado = true
	m.FechaConfirmacion = &ahora
	m.Notas = req.Notas

	// La confirmación ya es firme; la reconciliación de incidencias es
	// best-effort y un fallo aquí no la revierte.
	if resueltas, err := s.incidencias.ResolverPorMovimiento(ctx, m.Matricula, m.Tipo, actorID, m.Motivo); err != nil {
		log.Error().Err(err).Str("matricula", m.Matricula).Str("tipo", m.Tipo).
			Msg("movimiento confirmado pero la resolución de incidencias falló")
	} else if resueltas > 0 {
		log.Info().Str("matricula", m.Matricula).Int("entregas", resueltas).
			Msg("incidencias resueltas por confirmación de movimiento")
	}

	resp := movimientoToResponse(m, familia, ahora)
	return &resp, nil
}

func (s *movimientoService) Rechazar(ctx context.Context, familia model.Familia, id uuid.UUID, actorID string, req dto.RechazarMovimientoRequest) (*dto.MovimientoResponse, error) {
	m, err := s.buscar(ctx, familia, id)
	if err != nil {
		return nil, err
	}

	ahora := s.ahora()
	switch DeriveEstado(m, ahora) {
	case EstadoConfirmado:
		return nil, fmt.Errorf("%w: el movimiento ya está confirmado", ErrEstadoInvalido)
	case EstadoRechazado:
		return nil, fmt.Errorf("%w: el movimiento ya fue rechazado", ErrEstadoInvalido)
	case EstadoAutoAceptado:
		return nil, fmt.Errorf("%w: el plazo de confirmación venció, ya no cabe rechazo", ErrEstadoInvalido)
	}

	if err := s.autorizar(ctx, m, actorID); err != nil {
		return nil, err
	}

	ok, err := s.movimientos.RechazarCondicional(ctx, familia, id, ahora, req.Motivo)
	if err != nil {
		return nil, fmt.Errorf("rechazando movimiento %s: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: otra petición resolvió el movimiento primero", ErrEstadoInvalido)
	}
	m.Rechazado = true
	m.FechaRechazo = &ahora
	m.Notas = req.Motivo

	// El elemento vuelve a manos del emisor; si el emisor era el
	// concesionario queda sin titular.
	s.custodiaUpsert(ctx, m.Matricula, m.Tipo, m.DeTitular)

	resp := movimientoToResponse(m, familia, ahora)
	return &resp, nil
}

func (s *movimientoService) Obtener(ctx context.Context, familia model.Familia, id uuid.UUID) (*dto.MovimientoResponse, error) {
	m, err := s.buscar(ctx, familia, id)
	if err != nil {
		return nil, err
	}
	resp := movimientoToResponse(m, familia, s.ahora())
	return &resp, nil
}

func (s *movimientoService) ListarPara(ctx context.Context, titular string) (*dto.MovimientoListResponse, error) {
	return s.listar(ctx, func(familia model.Familia) ([]model.Movimiento, error) {
		return s.movimientos.ListByDestinatario(ctx, familia, titular)
	})
}

func (s *movimientoService) ListarPorMatricula(ctx context.Context, matricula string) (*dto.MovimientoListResponse, error) {
	return s.listar(ctx, func(familia model.Familia) ([]model.Movimiento, error) {
		return s.movimientos.ListByMatricula(ctx, familia, matricula)
	})
}

func (s *movimientoService) listar(ctx context.Context, fetch func(model.Familia) ([]model.Movimiento, error)) (*dto.MovimientoListResponse, error) {
	ahora := s.ahora()
	var out []dto.MovimientoResponse
	for _, familia := range []model.Familia{model.FamiliaLlave, model.FamiliaDocumento} {
		ms, err := fetch(familia)
		if err != nil {
			return nil, fmt.Errorf("listando movimientos de %s: %w", familia, err)
		}
		for i := range ms {
			out = append(out, movimientoToResponse(&ms[i], familia, ahora))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return &dto.MovimientoListResponse{Movimientos: out, Total: len(out)}, nil
}

func (s *movimientoService) ResumenPendientes(ctx context.Context, titular string) (*dto.ResumenPendientesResponse, error) {
	ahora := s.ahora()
	resumen := &dto.ResumenPendientesResponse{}
	for _, familia := range []model.Familia{model.FamiliaLlave, model.FamiliaDocumento} {
		ms, err := s.movimientos.ListByDestinatario(ctx, familia, titular)
		if err != nil {
			return nil, fmt.Errorf("listando movimientos de %s: %w", familia, err)
		}
		for i := range ms {
			if DeriveEstado(&ms[i], ahora) != EstadoPendiente {
				continue
			}
			if familia == model.FamiliaLlave {
				resumen.Llaves++
			} else {
				resumen.Documentos++
			}
		}
	}
	resumen.Total = resumen.Llaves + resumen.Documentos
	return resumen, nil
}

func (s *movimientoService) Custodia(ctx context.Context, matricula string) ([]model.ElementoCustodia, error) {
	elems, err := s.custodia.ListByMatricula(ctx, matricula)
	if err != nil {
		return nil, fmt.Errorf("consultando custodia de %s: %w", matricula, err)
	}
	return elems, nil
}

func (s *movimientoService) buscar(ctx context.Context, familia model.Familia, id uuid.UUID) (*model.Movimiento, error) {
	m, err := s.movimientos.FindByID(ctx, familia, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: movimiento %s", ErrNoEncontrado, id)
	}
	if err != nil {
		return nil, fmt.Errorf("buscando movimiento %s: %w", id, err)
	}
	return m, nil
}

// autorizar deja pasar al destinatario directo; cualquier otro actor (o un
// actor confirmando por un titular agrupado) pasa por la puerta de permisos.
func (s *movimientoService) autorizar(ctx context.Context, m *model.Movimiento, actorID string) error {
	if actorID == m.ATitular && !model.EsTitularAgrupado(actorID) {
		return nil
	}
	return s.permisos.PuedeGestionarVehiculo(ctx, actorID, m.Matricula)
}

func (s *movimientoService) actualizarCustodia(ctx context.Context, m *model.Movimiento) {
	titular := &m.ATitular
	if m.ATitular == model.TitularConcesionario {
		titular = nil
	}
	s.custodiaUpsert(ctx, m.Matricula, m.Tipo, titular)
}

func (s *movimientoService) custodiaUpsert(ctx context.Context, matricula, tipo string, titular *string) {
	estado := "Entregada"
	if titular == nil {
		estado = "En concesionario"
	}
	if err := s.custodia.Upsert(ctx, matricula, tipo, titular, estado); err != nil {
		log.Warn().Err(err).Str("matricula", matricula).Str("tipo", tipo).
			Msg("no se pudo actualizar el registro de custodia")
	}
}

func normalizarTitular(t *string) *string {
	if t == nil || *t == "" || *t == model.TitularConcesionario {
		return nil
	}
	return t
}

func movimientoToResponse(m *model.Movimiento, familia model.Familia, en time.Time) dto.MovimientoResponse {
	de := model.TitularConcesionario
	if m.DeTitular != nil {
		de = *m.DeTitular
	}
	resp := dto.MovimientoResponse{
		ID:                m.ID.String(),
		Familia:           string(familia),
		Matricula:         m.Matricula,
		Tipo:              m.Tipo,
		DeTitular:         de,
		ATitular:          m.ATitular,
		Motivo:            m.Motivo,
		Estado:            DeriveEstado(m, en),
		FechaLimite:       fechaOpcional(m.FechaLimite),
		FechaConfirmacion: fechaOpcional(m.FechaConfirmacion),
		FechaRechazo:      fechaOpcional(m.FechaRechazo),
		Notas:             m.Notas,
		CreatedAt:         m.CreatedAt.Format(time.RFC3339),
	}
	return resp
}
