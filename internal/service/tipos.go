package service

import (
	"strings"

	"cvo/internal/model"
)

// Subtipos de elemento en custodia. El conjunto es cerrado: tres llaves y
// dos documentos por vehículo.
const (
	TipoPrimeraLlave  = "first_key"
	TipoSegundaLlave  = "second_key"
	TipoCardKey       = "card_key"
	TipoFichaTecnica  = "technical_sheet"
	TipoPermisoCirc   = "circulation_permit"
)

// Tipos de incidencia admitidos sobre una entrega. Vocabulario cerrado: toda
// entrada externa pasa por NormalizarTipoIncidencia antes de compararse.
const (
	IncidenciaCarroceria  = "Carrocería"
	IncidenciaMecanica    = "Mecánica"
	IncidenciaLimpieza    = "Limpieza"
	IncidenciaSegundaLlav = "2ª llave"
	IncidenciaCardKey     = "CardKey"
	IncidenciaFichaTec    = "Ficha técnica"
	IncidenciaPermisoCirc = "Permiso circulación"
)

// TiposIncidencia es el vocabulario completo, en el orden en que se muestra.
var TiposIncidencia = []string{
	IncidenciaCarroceria,
	IncidenciaMecanica,
	IncidenciaLimpieza,
	IncidenciaSegundaLlav,
	IncidenciaCardKey,
	IncidenciaFichaTec,
	IncidenciaPermisoCirc,
}

// familiaPorTipo clasifica cada subtipo en su colección de movimientos.
var familiaPorTipo = map[string]model.Familia{
	TipoPrimeraLlave: model.FamiliaLlave,
	TipoSegundaLlave: model.FamiliaLlave,
	TipoCardKey:      model.FamiliaLlave,
	TipoFichaTecnica: model.FamiliaDocumento,
	TipoPermisoCirc:  model.FamiliaDocumento,
}

// categoriaPorTipo es la tabla fija subtipo → tipo de incidencia que la
// entrega de ese elemento resuelve. Total sobre la enumeración de subtipos:
// entregar la primera o la segunda llave cierra la incidencia "2ª llave".
var categoriaPorTipo = map[string]string{
	TipoPrimeraLlave: IncidenciaSegundaLlav,
	TipoSegundaLlave: IncidenciaSegundaLlav,
	TipoCardKey:      IncidenciaCardKey,
	TipoFichaTecnica: IncidenciaFichaTec,
	TipoPermisoCirc:  IncidenciaPermisoCirc,
}

// FamiliaDeTipo devuelve la colección (llaves o documentos) a la que
// pertenece el subtipo, o false si el subtipo no existe.
func FamiliaDeTipo(tipo string) (model.Familia, bool) {
	f, ok := familiaPorTipo[tipo]
	return f, ok
}

// CategoriaDeTipo devuelve el tipo de incidencia asociado al subtipo.
func CategoriaDeTipo(tipo string) (string, bool) {
	c, ok := categoriaPorTipo[tipo]
	return c, ok
}

// claveNormalizada reduce un tipo de incidencia a una clave de comparación:
// minúsculas, sin espacios redundantes y con el ordinal "ª" plegado a "a",
// de modo que "2a llave" y " 2ª LLAVE " casan con la misma entrada.
func claveNormalizada(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, "ª", "a")
	s = strings.ReplaceAll(s, "º", "o")
	return strings.Join(strings.Fields(s), " ")
}

var tiposPorClave = func() map[string]string {
	m := make(map[string]string, len(TiposIncidencia))
	for _, t := range TiposIncidencia {
		m[claveNormalizada(t)] = t
	}
	return m
}()

// NormalizarTipoIncidencia canonicaliza la entrada al vocabulario cerrado.
// La normalización ocurre una única vez en la frontera; internamente todas
// las comparaciones son por igualdad exacta sobre el valor canónico.
func NormalizarTipoIncidencia(raw string) (string, bool) {
	t, ok := tiposPorClave[claveNormalizada(raw)]
	return t, ok
}
