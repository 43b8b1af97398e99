package service_test

import (
	"testing"

	"cvo/internal/model"
	"cvo/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizarTipoIncidencia(t *testing.T) {
	casos := []struct {
		entrada string
		espera  string
		ok      bool
	}{
		{"2ª llave", service.IncidenciaSegundaLlav, true},
		{"2a llave", service.IncidenciaSegundaLlav, true},
		{" 2A   LLAVE ", service.IncidenciaSegundaLlav, true},
		{"CARROCERÍA", service.IncidenciaCarroceria, true},
		{"cardkey", service.IncidenciaCardKey, true},
		{"ficha técnica", service.IncidenciaFichaTec, true},
		{"permiso circulación", service.IncidenciaPermisoCirc, true},
		{"tapicería", "", false},
		{"", "", false},
	}
	for _, c := range casos {
		got, ok := service.NormalizarTipoIncidencia(c.entrada)
		require.Equal(t, c.ok, ok, "entrada %q", c.entrada)
		assert.Equal(t, c.espera, got, "entrada %q", c.entrada)
	}
}

func TestCategoriaDeTipo(t *testing.T) {
	// Las dos llaves comparten categoría; el resto mapea uno a uno.
	casos := map[string]string{
		service.TipoPrimeraLlave: service.IncidenciaSegundaLlav,
		service.TipoSegundaLlave: service.IncidenciaSegundaLlav,
		service.TipoCardKey:      service.IncidenciaCardKey,
		service.TipoFichaTecnica: service.IncidenciaFichaTec,
		service.TipoPermisoCirc:  service.IncidenciaPermisoCirc,
	}
	for tipo, categoria := range casos {
		got, ok := service.CategoriaDeTipo(tipo)
		require.True(t, ok, tipo)
		assert.Equal(t, categoria, got)
	}

	_, ok := service.CategoriaDeTipo("spare_wheel")
	assert.False(t, ok)
}

func TestFamiliaDeTipo(t *testing.T) {
	casos := map[string]model.Familia{
		service.TipoPrimeraLlave: model.FamiliaLlave,
		service.TipoSegundaLlave: model.FamiliaLlave,
		service.TipoCardKey:      model.FamiliaLlave,
		service.TipoFichaTecnica: model.FamiliaDocumento,
		service.TipoPermisoCirc:  model.FamiliaDocumento,
	}
	for tipo, familia := range casos {
		got, ok := service.FamiliaDeTipo(tipo)
		require.True(t, ok, tipo)
		assert.Equal(t, familia, got)
	}
}

func TestEsTitularAgrupado(t *testing.T) {
	for _, titular := range model.TitularesAgrupados {
		assert.True(t, model.EsTitularAgrupado(titular))
	}
	assert.False(t, model.EsTitularAgrupado("u-asesor"))
	assert.False(t, model.EsTitularAgrupado(model.TitularConcesionario))
}
