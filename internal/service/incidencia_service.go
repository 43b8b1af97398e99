package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cvo/internal/dto"
	"cvo/internal/model"
	"cvo/internal/repository"
	"cvo/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// IncidenciaService gestiona el conjunto de incidencias de cada entrega y su
// historial de auditoría. Dos caminos mutan el conjunto: el toggle manual y
// la resolución automática disparada al confirmar un movimiento. Ambos pasan
// por la misma escritura compare-and-set sobre la versión de la entrega.
type IncidenciaService interface {
	// Toggle alterna un tipo de incidencia en la entrega: lo añade si no
	// está, lo elimina si está. Devuelve la acción aplicada y el estado
	// autoritativo resultante.
	Toggle(ctx context.Context, entregaID uuid.UUID, actorID string, req dto.ToggleIncidenciaRequest) (*dto.ToggleIncidenciaResponse, error)

	// ResolverPorMovimiento elimina de todas las entregas de la matrícula
	// la incidencia asociada al subtipo entregado, dejando rastro en el
	// historial. Devuelve cuántas entregas quedaron modificadas. Los fallos
	// por registro se registran y se salta al siguiente; solo el fallo del
	// lookup inicial se propaga.
	ResolverPorMovimiento(ctx context.Context, matricula, tipo, actorID, motivo string) (int, error)

	Historial(ctx context.Context, filter dto.HistorialFilter) ([]dto.HistorialEntryResponse, error)
	Informe(ctx context.Context) (*dto.InformeIncidenciasResponse, error)
}

type incidenciaService struct {
	entregas       repository.EntregaRepository
	historial      repository.IncidenciaRepository
	usuarios       repository.UsuarioRepository
	notificaciones repository.NotificacionRepository
	permisos       PermisoService
	dispatcher     *worker.Dispatcher
	ahora          func() time.Time
}

func NewIncidenciaService(
	entregas repository.EntregaRepository,
	historial repository.IncidenciaRepository,
	usuarios repository.UsuarioRepository,
	notificaciones repository.NotificacionRepository,
	permisos PermisoService,
	dispatcher *worker.Dispatcher,
	ahora func() time.Time,
) IncidenciaService {
	if ahora == nil {
		ahora = time.Now
	}
	return &incidenciaService{
		entregas:       entregas,
		historial:      historial,
		usuarios:       usuarios,
		notificaciones: notificaciones,
		permisos:       permisos,
		dispatcher:     dispatcher,
		ahora:          ahora,
	}
}

func (s *incidenciaService) Toggle(ctx context.Context, entregaID uuid.UUID, actorID string, req dto.ToggleIncidenciaRequest) (*dto.ToggleIncidenciaResponse, error) {
	tipo, ok := NormalizarTipoIncidencia(req.Tipo)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTipoDesconocido, req.Tipo)
	}

	entrega, err := s.entregas.FindByID(ctx, entregaID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: entrega %s", ErrNoEncontrado, entregaID)
	}
	if err != nil {
		return nil, fmt.Errorf("buscando entrega %s: %w", entregaID, err)
	}

	if err := s.permisos.PuedeGestionarVehiculo(ctx, actorID, entrega.Matricula); err != nil {
		return nil, err
	}

	ahora := s.ahora()
	presente := entrega.TieneIncidencia(tipo)

	var nuevos []string
	accion := model.AccionAnadida
	if presente {
		accion = model.AccionEliminada
		for _, t := range entrega.TiposIncidencia {
			if t != tipo {
				nuevos = append(nuevos, t)
			}
		}
	} else {
		nuevos = append(nuevos, entrega.TiposIncidencia...)
		nuevos = append(nuevos, tipo)
	}
	if nuevos == nil {
		nuevos = []string{}
	}

	ok, err = s.entregas.ActualizarIncidenciasCAS(ctx, entrega.ID, entrega.Version, nuevos, len(nuevos) > 0)
	if err != nil {
		return nil, fmt.Errorf("actualizando incidencias de %s: %w", entrega.Matricula, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: la entrega fue modificada por otra operación, recarga y repite", ErrEstadoInvalido)
	}
	entrega.TiposIncidencia = nuevos
	entrega.Incidencia = len(nuevos) > 0
	entrega.Version++

	// El registro ya está persistido: un fallo en el historial o en la
	// notificación no revierte la mutación, solo se deja constancia.
	comentario := req.Comentario
	if comentario == "" {
		if accion == model.AccionAnadida {
			comentario = fmt.Sprintf("Nueva incidencia %s detectada", tipo)
		} else {
			comentario = fmt.Sprintf("Incidencia %s eliminada manualmente", tipo)
		}
	}
	entrada := &model.HistorialIncidencia{
		EntregaID:      entrega.ID,
		Matricula:      entrega.Matricula,
		TipoIncidencia: tipo,
		Accion:         accion,
		UsuarioID:      actorID,
		UsuarioNombre:  s.nombreDe(ctx, actorID),
		Fecha:          ahora,
		Comentario:     comentario,
		Resuelta:       accion == model.AccionEliminada,
	}
	if accion == model.AccionEliminada {
		entrada.FechaResolucion = &ahora
		entrada.ResueltaPor = &actorID
	}
	if err := s.historial.Append(ctx, entrada); err != nil {
		log.Warn().Err(err).Str("matricula", entrega.Matricula).Str("tipo", tipo).
			Msg("la mutación se aplicó pero el historial no pudo registrarse")
	}
	if accion == model.AccionEliminada {
		if _, err := s.historial.MarcarResueltas(ctx, entrega.Matricula, tipo, ahora, actorID); err != nil {
			log.Warn().Err(err).Str("matricula", entrega.Matricula).
				Msg("no se pudieron cerrar las entradas abiertas del historial")
		}
	}

	s.notificar(ctx, entrega, tipo, accion)

	return &dto.ToggleIncidenciaResponse{
		Accion:  accion,
		Entrega: entregaToResponse(entrega),
	}, nil
}

func (s *incidenciaService) ResolverPorMovimiento(ctx context.Context, matricula, tipo, actorID, motivo string) (int, error) {
	categoria, ok := CategoriaDeTipo(tipo)
	if !ok {
		return 0, fmt.Errorf("subtipo sin categoría de incidencia: %q", tipo)
	}

	entregas, err := s.entregas.FindByMatricula(ctx, matricula)
	if err != nil {
		return 0, fmt.Errorf("buscando entregas de %s: %w", matricula, err)
	}

	ahora := s.ahora()
	comentario := fmt.Sprintf("Resuelta automáticamente por movimiento de %s", etiquetaTipo(tipo))
	if motivo != "" {
		comentario += ": " + motivo
	}

	resueltas := 0
	for i := range entregas {
		entrega := &entregas[i]
		if !entrega.TieneIncidencia(categoria) {
			continue
		}
		if err := s.eliminarConCAS(ctx, entrega, categoria); err != nil {
			log.Error().Err(err).Str("matricula", matricula).Str("tipo", categoria).
				Stringer("entrega_id", entrega.ID).
				Msg("resolución automática fallida, se continúa con el resto")
			continue
		}
		resueltas++

		entrada := &model.HistorialIncidencia{
			EntregaID:       entrega.ID,
			Matricula:       matricula,
			TipoIncidencia:  categoria,
			Accion:          model.AccionResuelta,
			UsuarioID:       actorID,
			UsuarioNombre:   s.nombreDe(ctx, actorID),
			Fecha:           ahora,
			Comentario:      comentario,
			Resuelta:        true,
			FechaResolucion: &ahora,
			ResueltaPor:     &actorID,
		}
		if err := s.historial.Append(ctx, entrada); err != nil {
			log.Warn().Err(err).Str("matricula", matricula).
				Msg("incidencia resuelta pero sin entrada de historial")
		}
		s.notificar(ctx, entrega, categoria, model.AccionResuelta)
	}

	// Las entradas abiertas del historial se cierran aunque la incidencia
	// ya no figure en ninguna entrega: pueden venir de un toggle antiguo.
	if _, err := s.historial.MarcarResueltas(ctx, matricula, categoria, ahora, actorID); err != nil {
		log.Warn().Err(err).Str("matricula", matricula).Str("tipo", categoria).
			Msg("no se pudieron cerrar las entradas abiertas del historial")
	}

	return resueltas, nil
}

// eliminarConCAS quita la categoría del conjunto de la entrega con una
// escritura condicional; si pierde la carrera relee y reintenta una vez.
func (s *incidenciaService) eliminarConCAS(ctx context.Context, entrega *model.Entrega, categoria string) error {
	for intento := 0; intento < 2; intento++ {
		var nuevos []string
		for _, t := range entrega.TiposIncidencia {
			if t != categoria {
				nuevos = append(nuevos, t)
			}
		}
		if nuevos == nil {
			nuevos = []string{}
		}

		ok, err := s.entregas.ActualizarIncidenciasCAS(ctx, entrega.ID, entrega.Version, nuevos, len(nuevos) > 0)
		if err != nil {
			return err
		}
		if ok {
			entrega.TiposIncidencia = nuevos
			entrega.Incidencia = len(nuevos) > 0
			entrega.Version++
			return nil
		}

		fresco, err := s.entregas.FindByID(ctx, entrega.ID)
		if err != nil {
			return fmt.Errorf("releyendo entrega tras carrera: %w", err)
		}
		*entrega = *fresco
		if !entrega.TieneIncidencia(categoria) {
			// La mutación concurrente ya la quitó.
			return nil
		}
	}
	return fmt.Errorf("%w: escritura condicional perdida dos veces", ErrEstadoInvalido)
}

func (s *incidenciaService) Historial(ctx context.Context, filter dto.HistorialFilter) ([]dto.HistorialEntryResponse, error) {
	entradas, err := s.historial.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listando historial: %w", err)
	}
	out := make([]dto.HistorialEntryResponse, 0, len(entradas))
	for i := range entradas {
		out = append(out, historialToResponse(&entradas[i]))
	}
	return out, nil
}

func (s *incidenciaService) Informe(ctx context.Context) (*dto.InformeIncidenciasResponse, error) {
	conteos, err := s.historial.ConteosPorTipo(ctx)
	if err != nil {
		return nil, fmt.Errorf("agregando historial: %w", err)
	}
	porTipo := make(map[string]repository.ConteoIncidencia, len(conteos))
	for _, c := range conteos {
		porTipo[c.Tipo] = c
	}
	// El informe cubre el vocabulario completo, con ceros para los tipos
	// sin historial, en el orden canónico.
	informe := make([]dto.InformeTipoIncidencia, 0, len(TiposIncidencia))
	for _, tipo := range TiposIncidencia {
		c := porTipo[tipo]
		informe = append(informe, dto.InformeTipoIncidencia{
			Tipo:      tipo,
			Abiertas:  c.Abiertas,
			Resueltas: c.Resueltas,
		})
	}
	return &dto.InformeIncidenciasResponse{Informe: informe}, nil
}

// nombreDe resuelve el nombre mostrable del actor para el historial; si el
// lookup falla o no hay nombre se conserva el identificador crudo.
func (s *incidenciaService) nombreDe(ctx context.Context, actorID string) string {
	if actorID == "" {
		return "Usuario desconocido"
	}
	if model.EsTitularAgrupado(actorID) {
		return actorID
	}
	nombre, err := s.usuarios.NombreDe(ctx, actorID)
	if err != nil || nombre == "" {
		return actorID
	}
	return nombre
}

// notificar encola un aviso por email al asesor de la entrega. Best-effort:
// registra el intento en notificaciones_incidencias y delega el envío al
// pool de workers; ningún fallo aquí afecta a la operación principal.
func (s *incidenciaService) notificar(ctx context.Context, entrega *model.Entrega, tipo, accion string) {
	if s.notificaciones == nil || entrega.Asesor == "" {
		return
	}
	destinatario, err := s.usuarios.EmailDe(ctx, entrega.Asesor)
	if err != nil || destinatario == "" {
		return
	}

	var asunto, cuerpo string
	switch accion {
	case model.AccionAnadida:
		asunto = fmt.Sprintf("Nueva incidencia en %s: %s", entrega.Matricula, tipo)
		cuerpo = fmt.Sprintf("Se ha registrado la incidencia %q sobre el vehículo %s (%s).", tipo, entrega.Matricula, entrega.Modelo)
	case model.AccionEliminada:
		asunto = fmt.Sprintf("Incidencia eliminada en %s: %s", entrega.Matricula, tipo)
		cuerpo = fmt.Sprintf("La incidencia %q del vehículo %s ha sido eliminada manualmente.", tipo, entrega.Matricula)
	default:
		asunto = fmt.Sprintf("Incidencia resuelta en %s: %s", entrega.Matricula, tipo)
		cuerpo = fmt.Sprintf("La incidencia %q del vehículo %s ha quedado resuelta por un movimiento de custodia.", tipo, entrega.Matricula)
	}

	n := &model.NotificacionIncidencia{
		Matricula:      entrega.Matricula,
		TipoIncidencia: tipo,
		Accion:         accion,
		Destinatario:   destinatario,
		Asunto:         asunto,
		Cuerpo:         cuerpo,
		Estado:         "pendiente",
	}
	if err := s.notificaciones.Create(ctx, n); err != nil {
		log.Warn().Err(err).Str("matricula", entrega.Matricula).Msg("no se pudo registrar la notificación")
		return
	}
	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueNotificacion(ctx, n.ID); err != nil {
			log.Warn().Err(err).Stringer("notificacion_id", n.ID).Msg("no se pudo encolar la notificación")
		}
	}
}

// etiquetaTipo traduce el subtipo a su nombre mostrable en comentarios.
func etiquetaTipo(tipo string) string {
	switch tipo {
	case TipoPrimeraLlave:
		return "primera llave"
	case TipoSegundaLlave:
		return "segunda llave"
	case TipoCardKey:
		return "Card Key"
	case TipoFichaTecnica:
		return "ficha técnica"
	case TipoPermisoCirc:
		return "permiso de circulación"
	default:
		return tipo
	}
}

func entregaToResponse(e *model.Entrega) dto.EntregaResponse {
	tipos := make([]string, len(e.TiposIncidencia))
	copy(tipos, e.TiposIncidencia)
	return dto.EntregaResponse{
		ID:              e.ID.String(),
		Matricula:       e.Matricula,
		Modelo:          e.Modelo,
		FechaVenta:      fechaOpcional(e.FechaVenta),
		FechaEntrega:    fechaOpcional(e.FechaEntrega),
		Asesor:          e.Asesor,
		Incidencia:      e.Incidencia,
		TiposIncidencia: tipos,
		Observaciones:   e.Observaciones,
	}
}

func historialToResponse(h *model.HistorialIncidencia) dto.HistorialEntryResponse {
	return dto.HistorialEntryResponse{
		ID:              h.ID.String(),
		EntregaID:       h.EntregaID.String(),
		Matricula:       h.Matricula,
		Tipo:            h.TipoIncidencia,
		Accion:          h.Accion,
		UsuarioID:       h.UsuarioID,
		UsuarioNombre:   h.UsuarioNombre,
		Fecha:           h.Fecha.Format(time.RFC3339),
		Comentario:      h.Comentario,
		Resuelta:        h.Resuelta,
		FechaResolucion: fechaOpcional(h.FechaResolucion),
		ResueltaPor:     h.ResueltaPor,
	}
}

func fechaOpcional(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
