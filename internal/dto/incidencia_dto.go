package dto

// ToggleIncidenciaRequest alterna un tipo de incidencia sobre una entrega:
// si está presente se elimina, si no está se añade. El tipo se canonicaliza
// contra el vocabulario cerrado antes de comparar.
type ToggleIncidenciaRequest struct {
	Tipo       string `json:"tipo" validate:"required"`
	Comentario string `json:"comentario"`
}

// ToggleIncidenciaResponse devuelve el estado autoritativo tras la mutación;
// el cliente nunca debe fiarse de su copia optimista.
type ToggleIncidenciaResponse struct {
	Accion  string          `json:"accion"` // "añadida" | "eliminada"
	Entrega EntregaResponse `json:"entrega"`
}

type HistorialFilter struct {
	Matricula string `form:"matricula"`
	EntregaID string `form:"entrega_id"`
	Tipo      string `form:"tipo"`
	Resuelta  string `form:"resuelta"` // "true" | "false" | "" (todas)
}

type HistorialEntryResponse struct {
	ID              string  `json:"id"`
	EntregaID       string  `json:"entrega_id"`
	Matricula       string  `json:"matricula"`
	Tipo            string  `json:"tipo"`
	Accion          string  `json:"accion"`
	UsuarioID       string  `json:"usuario_id"`
	UsuarioNombre   string  `json:"usuario_nombre"`
	Fecha           string  `json:"fecha"`
	Comentario      string  `json:"comentario,omitempty"`
	Resuelta        bool    `json:"resuelta"`
	FechaResolucion *string `json:"fecha_resolucion"`
	ResueltaPor     *string `json:"resuelta_por"`
}

type InformeIncidenciasResponse struct {
	Informe []InformeTipoIncidencia `json:"informe"`
}

type InformeTipoIncidencia struct {
	Tipo      string `json:"tipo"`
	Abiertas  int64  `json:"abiertas"`
	Resueltas int64  `json:"resueltas"`
}
