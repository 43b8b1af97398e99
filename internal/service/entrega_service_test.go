package service_test

import (
	"context"
	"testing"

	"cvo/internal/dto"
	"cvo/internal/model"
	"cvo/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildEntregas() (service.EntregaService, *stubEntregaRepo, *stubIncidenciaRepo) {
	entregas := newStubEntregaRepo()
	historial := &stubIncidenciaRepo{}
	usuarios := newStubUsuarioRepo()
	svc := service.NewEntregaService(entregas, historial, usuarios, relojFijo(ahoraFija))
	return svc, entregas, historial
}

func TestCrearEntregaConIncidenciasIniciales(t *testing.T) {
	svc, _, historial := buildEntregas()

	resp, err := svc.Crear(context.Background(), "u-admin", dto.CrearEntregaRequest{
		Matricula:       "1234ABC",
		Modelo:          "Serie 1",
		Asesor:          "u-vendedor",
		TiposIncidencia: []string{"2a llave", "Carrocería"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Incidencia)
	assert.ElementsMatch(t, []string{service.IncidenciaSegundaLlav, service.IncidenciaCarroceria}, resp.TiposIncidencia)

	// Cada incidencia inicial deja su alta en el historial.
	require.Len(t, historial.entradas, 2)
	for _, h := range historial.entradas {
		assert.Equal(t, model.AccionAnadida, h.Accion)
		assert.False(t, h.Resuelta)
	}
}

func TestCrearEntregaRechazaTipoDesconocido(t *testing.T) {
	svc, entregas, _ := buildEntregas()

	_, err := svc.Crear(context.Background(), "u-admin", dto.CrearEntregaRequest{
		Matricula:       "1234ABC",
		TiposIncidencia: []string{"Carrocería", "Tapicería"},
	})
	assert.ErrorIs(t, err, service.ErrTipoDesconocido)
	assert.Empty(t, entregas.entregas)
}

func TestRegistrarEntregaEsDeUnSoloDisparo(t *testing.T) {
	svc, _, _ := buildEntregas()
	ctx := context.Background()

	resp, err := svc.Crear(ctx, "u-admin", dto.CrearEntregaRequest{Matricula: "1234ABC"})
	require.NoError(t, err)
	id := mustUUID(t, resp.ID)

	entregada, err := svc.RegistrarEntrega(ctx, id, dto.RegistrarEntregaRequest{})
	require.NoError(t, err)
	require.NotNil(t, entregada.FechaEntrega)

	_, err = svc.RegistrarEntrega(ctx, id, dto.RegistrarEntregaRequest{})
	assert.ErrorIs(t, err, service.ErrEstadoInvalido)
}

func TestObtenerEntregaInexistente(t *testing.T) {
	svc, _, _ := buildEntregas()
	_, err := svc.Obtener(context.Background(), mustUUID(t, "550e8400-e29b-41d4-a716-446655440000"))
	assert.ErrorIs(t, err, service.ErrNoEncontrado)
}
