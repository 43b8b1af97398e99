package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cvo/internal/dto"
	"cvo/internal/model"
	"cvo/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

// ── Stubs ─────────────────────────────────────────────────────────────────────

// stubMovimientoRepo is an in-memory MovimientoRepository keyed by familia.
type stubMovimientoRepo struct {
	movs map[model.Familia]map[uuid.UUID]*model.Movimiento
	// forzarCarrera makes the next conditional write report a lost race.
	forzarCarrera bool
}

func newStubMovimientoRepo() *stubMovimientoRepo {
	return &stubMovimientoRepo{movs: map[model.Familia]map[uuid.UUID]*model.Movimiento{
		model.FamiliaLlave:     {},
		model.FamiliaDocumento: {},
	}}
}

func (r *stubMovimientoRepo) Create(_ context.Context, familia model.Familia, m *model.Movimiento) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	copia := *m
	r.movs[familia][m.ID] = &copia
	return nil
}

func (r *stubMovimientoRepo) FindByID(_ context.Context, familia model.Familia, id uuid.UUID) (*model.Movimiento, error) {
	m, ok := r.movs[familia][id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copia := *m
	return &copia, nil
}

func (r *stubMovimientoRepo) ListByDestinatario(_ context.Context, familia model.Familia, titular string) ([]model.Movimiento, error) {
	var out []model.Movimiento
	for _, m := range r.movs[familia] {
		if m.ATitular == titular {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *stubMovimientoRepo) ListByMatricula(_ context.Context, familia model.Familia, matricula string) ([]model.Movimiento, error) {
	var out []model.Movimiento
	for _, m := range r.movs[familia] {
		if m.Matricula == matricula {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *stubMovimientoRepo) ConfirmarCondicional(_ context.Context, familia model.Familia, id uuid.UUID, en time.Time, notas string) (bool, error) {
	if r.forzarCarrera {
		r.forzarCarrera = false
		return false, nil
	}
	m, ok := r.movs[familia][id]
	if !ok || m.Confirmado || m.Rechazado {
		return false, nil
	}
	m.Confirmado = true
	m.FechaConfirmacion = &en
	m.Notas = notas
	return true, nil
}

func (r *stubMovimientoRepo) RechazarCondicional(_ context.Context, familia model.Familia, id uuid.UUID, en time.Time, notas string) (bool, error) {
	m, ok := r.movs[familia][id]
	if !ok || m.Confirmado || m.Rechazado {
		return false, nil
	}
	m.Rechazado = true
	m.FechaRechazo = &en
	m.Notas = notas
	return true, nil
}

var _ repository.MovimientoRepository = (*stubMovimientoRepo)(nil)

// stubEntregaRepo implements the CAS contract in memory.
type stubEntregaRepo struct {
	entregas map[uuid.UUID]*model.Entrega
	// carrerasPendientes hace fallar las próximas N escrituras CAS, como si
	// otra mutación hubiera avanzado la versión entre lectura y escritura.
	carrerasPendientes int
}

func newStubEntregaRepo() *stubEntregaRepo {
	return &stubEntregaRepo{entregas: make(map[uuid.UUID]*model.Entrega)}
}

func (r *stubEntregaRepo) agregar(e *model.Entrega) *model.Entrega {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.entregas[e.ID] = e
	return e
}

func (r *stubEntregaRepo) Create(_ context.Context, e *model.Entrega) error {
	r.agregar(e)
	return nil
}

func (r *stubEntregaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Entrega, error) {
	e, ok := r.entregas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copia := *e
	copia.TiposIncidencia = append([]string(nil), e.TiposIncidencia...)
	return &copia, nil
}

func (r *stubEntregaRepo) FindByMatricula(_ context.Context, matricula string) ([]model.Entrega, error) {
	var out []model.Entrega
	for _, e := range r.entregas {
		if e.Matricula == matricula {
			copia := *e
			copia.TiposIncidencia = append([]string(nil), e.TiposIncidencia...)
			out = append(out, copia)
		}
	}
	return out, nil
}

func (r *stubEntregaRepo) List(_ context.Context, _ dto.EntregaFilter) ([]model.Entrega, int64, error) {
	var out []model.Entrega
	for _, e := range r.entregas {
		out = append(out, *e)
	}
	return out, int64(len(out)), nil
}

func (r *stubEntregaRepo) MarcarEntregada(_ context.Context, id uuid.UUID, fecha time.Time) error {
	e, ok := r.entregas[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.FechaEntrega = &fecha
	return nil
}

func (r *stubEntregaRepo) ActualizarIncidenciasCAS(_ context.Context, id uuid.UUID, version int, tipos []string, incidencia bool) (bool, error) {
	if r.carrerasPendientes > 0 {
		r.carrerasPendientes--
		return false, nil
	}
	e, ok := r.entregas[id]
	if !ok || e.Version != version {
		return false, nil
	}
	e.TiposIncidencia = append([]string(nil), tipos...)
	e.Incidencia = incidencia
	e.Version = version + 1
	return true, nil
}

var _ repository.EntregaRepository = (*stubEntregaRepo)(nil)

// stubIncidenciaRepo records ledger appends for assertion.
type stubIncidenciaRepo struct {
	entradas []model.HistorialIncidencia
}

func (r *stubIncidenciaRepo) Append(_ context.Context, h *model.HistorialIncidencia) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	r.entradas = append(r.entradas, *h)
	return nil
}

func (r *stubIncidenciaRepo) List(_ context.Context, filter dto.HistorialFilter) ([]model.HistorialIncidencia, error) {
	var out []model.HistorialIncidencia
	for _, h := range r.entradas {
		if filter.Matricula != "" && h.Matricula != filter.Matricula {
			continue
		}
		if filter.Tipo != "" && h.TipoIncidencia != filter.Tipo {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (r *stubIncidenciaRepo) MarcarResueltas(_ context.Context, matricula, tipo string, en time.Time, por string) (int64, error) {
	var n int64
	for i := range r.entradas {
		h := &r.entradas[i]
		if h.Matricula == matricula && h.TipoIncidencia == tipo && !h.Resuelta {
			h.Resuelta = true
			h.FechaResolucion = &en
			h.ResueltaPor = &por
			n++
		}
	}
	return n, nil
}

func (r *stubIncidenciaRepo) ConteosPorTipo(_ context.Context) ([]repository.ConteoIncidencia, error) {
	porTipo := make(map[string]*repository.ConteoIncidencia)
	for _, h := range r.entradas {
		c, ok := porTipo[h.TipoIncidencia]
		if !ok {
			c = &repository.ConteoIncidencia{Tipo: h.TipoIncidencia}
			porTipo[h.TipoIncidencia] = c
		}
		if h.Resuelta {
			c.Resueltas++
		} else if h.Accion == model.AccionAnadida {
			c.Abiertas++
		}
	}
	var out []repository.ConteoIncidencia
	for _, c := range porTipo {
		out = append(out, *c)
	}
	return out, nil
}

var _ repository.IncidenciaRepository = (*stubIncidenciaRepo)(nil)

// stubUsuarioRepo serves role / name / email lookups from fixed maps.
type stubUsuarioRepo struct {
	roles   map[string]string
	nombres map[string]string
	emails  map[string]string
}

func newStubUsuarioRepo() *stubUsuarioRepo {
	return &stubUsuarioRepo{
		roles:   make(map[string]string),
		nombres: make(map[string]string),
		emails:  make(map[string]string),
	}
}

func (r *stubUsuarioRepo) Create(_ context.Context, _ *model.Usuario) error { return nil }
func (r *stubUsuarioRepo) FindByID(_ context.Context, _ uuid.UUID) (*model.Usuario, error) {
	return nil, errors.New("no implementado")
}
func (r *stubUsuarioRepo) FindByUsername(_ context.Context, _ string) (*model.Usuario, error) {
	return nil, errors.New("no implementado")
}
func (r *stubUsuarioRepo) List(_ context.Context) ([]model.Usuario, error) { return nil, nil }
func (r *stubUsuarioRepo) RolDe(_ context.Context, id string) (string, error) {
	return r.roles[id], nil
}
func (r *stubUsuarioRepo) NombreDe(_ context.Context, id string) (string, error) {
	return r.nombres[id], nil
}
func (r *stubUsuarioRepo) EmailDe(_ context.Context, id string) (string, error) {
	return r.emails[id], nil
}

var _ repository.UsuarioRepository = (*stubUsuarioRepo)(nil)

// stubStockRepo maps matricula → asesor asignado.
type stubStockRepo struct {
	asesores map[string]string
}

func (r *stubStockRepo) FindByMatricula(_ context.Context, matricula string) (*model.Stock, error) {
	a, ok := r.asesores[matricula]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &model.Stock{Matricula: matricula, AsesorID: &a}, nil
}

func (r *stubStockRepo) AsesorDe(_ context.Context, matricula string) (string, error) {
	return r.asesores[matricula], nil
}

var _ repository.StockRepository = (*stubStockRepo)(nil)

// stubCustodiaRepo records upserts for assertion.
type stubCustodiaRepo struct {
	elementos map[string]*model.ElementoCustodia // key: matricula|tipo
}

func newStubCustodiaRepo() *stubCustodiaRepo {
	return &stubCustodiaRepo{elementos: make(map[string]*model.ElementoCustodia)}
}

func (r *stubCustodiaRepo) Upsert(_ context.Context, matricula, tipo string, titular *string, estado string) error {
	r.elementos[matricula+"|"+tipo] = &model.ElementoCustodia{
		Matricula: matricula, Tipo: tipo, Titular: titular, Estado: estado,
	}
	return nil
}

func (r *stubCustodiaRepo) ListByMatricula(_ context.Context, matricula string) ([]model.ElementoCustodia, error) {
	var out []model.ElementoCustodia
	for _, e := range r.elementos {
		if e.Matricula == matricula {
			out = append(out, *e)
		}
	}
	return out, nil
}

var _ repository.CustodiaRepository = (*stubCustodiaRepo)(nil)

// stubNotificacionRepo records created notifications.
type stubNotificacionRepo struct {
	creadas []model.NotificacionIncidencia
}

func (r *stubNotificacionRepo) Create(_ context.Context, n *model.NotificacionIncidencia) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	r.creadas = append(r.creadas, *n)
	return nil
}

func (r *stubNotificacionRepo) FindByID(_ context.Context, _ uuid.UUID) (*model.NotificacionIncidencia, error) {
	return nil, gorm.ErrRecordNotFound
}
func (r *stubNotificacionRepo) Update(_ context.Context, _ *model.NotificacionIncidencia) error {
	return nil
}
func (r *stubNotificacionRepo) ListPendingRetries(_ context.Context, _ time.Time, _ int) ([]model.NotificacionIncidencia, error) {
	return nil, nil
}

var _ repository.NotificacionRepository = (*stubNotificacionRepo)(nil)
