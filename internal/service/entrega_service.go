package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cvo/internal/dto"
	"cvo/internal/model"
	"cvo/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type EntregaService interface {
	Crear(ctx context.Context, actorID string, req dto.CrearEntregaRequest) (*dto.EntregaResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.EntregaResponse, error)
	Listar(ctx context.Context, filter dto.EntregaFilter) (*dto.EntregaListResponse, error)

	// RegistrarEntrega marca la entrega física al cliente. No toca el
	// conjunto de incidencias: un vehículo puede entregarse con
	// incidencias abiertas.
	RegistrarEntrega(ctx context.Context, id uuid.UUID, req dto.RegistrarEntregaRequest) (*dto.EntregaResponse, error)
}

type entregaService struct {
	entregas  repository.EntregaRepository
	historial repository.IncidenciaRepository
	usuarios  repository.UsuarioRepository
	ahora     func() time.Time
}

func NewEntregaService(
	entregas repository.EntregaRepository,
	historial repository.IncidenciaRepository,
	usuarios repository.UsuarioRepository,
	ahora func() time.Time,
) EntregaService {
	if ahora == nil {
		ahora = time.Now
	}
	return &entregaService{entregas: entregas, historial: historial, usuarios: usuarios, ahora: ahora}
}

func (s *entregaService) Crear(ctx context.Context, actorID string, req dto.CrearEntregaRequest) (*dto.EntregaResponse, error) {
	ahora := s.ahora()

	// Los tipos iniciales se canonicalizan; los desconocidos se rechazan
	// en bloque para no dejar medio conjunto escrito.
	tipos := make([]string, 0, len(req.TiposIncidencia))
	for _, raw := range req.TiposIncidencia {
		t, ok := NormalizarTipoIncidencia(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrTipoDesconocido, raw)
		}
		tipos = append(tipos, t)
	}

	e := &model.Entrega{
		Matricula:       req.Matricula,
		Modelo:          req.Modelo,
		Asesor:          req.Asesor,
		Incidencia:      len(tipos) > 0,
		TiposIncidencia: pq.StringArray(tipos),
		Observaciones:   req.Observaciones,
	}
	if req.FechaVenta != nil {
		fv, err := time.Parse(time.RFC3339, *req.FechaVenta)
		if err != nil {
			return nil, fmt.Errorf("fecha_venta inválida: %w", err)
		}
		e.FechaVenta = &fv
	}

	if err := s.entregas.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("creando entrega: %w", err)
	}

	nombre := s.nombreActor(ctx, actorID)
	for _, tipo := range tipos {
		entrada := &model.HistorialIncidencia{
			EntregaID:      e.ID,
			Matricula:      e.Matricula,
			TipoIncidencia: tipo,
			Accion:         model.AccionAnadida,
			UsuarioID:      actorID,
			UsuarioNombre:  nombre,
			Fecha:          ahora,
			Comentario:     fmt.Sprintf("Incidencia %s registrada al crear la entrega", tipo),
		}
		if err := s.historial.Append(ctx, entrada); err != nil {
			log.Warn().Err(err).Str("matricula", e.Matricula).Str("tipo", tipo).
				Msg("entrega creada pero sin entrada de historial")
		}
	}

	resp := entregaToResponse(e)
	return &resp, nil
}

func (s *entregaService) Obtener(ctx context.Context, id uuid.UUID) (*dto.EntregaResponse, error) {
	e, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := entregaToResponse(e)
	return &resp, nil
}

func (s *entregaService) Listar(ctx context.Context, filter dto.EntregaFilter) (*dto.EntregaListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	entregas, total, err := s.entregas.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listando entregas: %w", err)
	}
	data := make([]dto.EntregaResponse, 0, len(entregas))
	for i := range entregas {
		data = append(data, entregaToResponse(&entregas[i]))
	}
	return &dto.EntregaListResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (s *entregaService) RegistrarEntrega(ctx context.Context, id uuid.UUID, req dto.RegistrarEntregaRequest) (*dto.EntregaResponse, error) {
	e, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.FechaEntrega != nil {
		return nil, fmt.Errorf("%w: el vehículo ya figura entregado", ErrEstadoInvalido)
	}

	fecha := s.ahora()
	if req.FechaEntrega != nil {
		fecha, err = time.Parse(time.RFC3339, *req.FechaEntrega)
		if err != nil {
			return nil, fmt.Errorf("fecha_entrega inválida: %w", err)
		}
	}
	if err := s.entregas.MarcarEntregada(ctx, e.ID, fecha); err != nil {
		return nil, fmt.Errorf("marcando entrega %s: %w", id, err)
	}
	e.FechaEntrega = &fecha
	resp := entregaToResponse(e)
	return &resp, nil
}

func (s *entregaService) buscar(ctx context.Context, id uuid.UUID) (*model.Entrega, error) {
	e, err := s.entregas.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: entrega %s", ErrNoEncontrado, id)
	}
	if err != nil {
		return nil, fmt.Errorf("buscando entrega %s: %w", id, err)
	}
	return e, nil
}

func (s *entregaService) nombreActor(ctx context.Context, actorID string) string {
	if actorID == "" {
		return "Usuario desconocido"
	}
	nombre, err := s.usuarios.NombreDe(ctx, actorID)
	if err != nil || nombre == "" {
		return actorID
	}
	return nombre
}
