package dto

// CrearMovimientoRequest registra un traspaso de llave o documento. La
// familia (llaves/documentos) se deduce del tipo; de_titular vacío significa
// que el elemento sale del concesionario.
type CrearMovimientoRequest struct {
	Matricula string  `json:"matricula" validate:"required"`
	Tipo      string  `json:"tipo" validate:"required,oneof=first_key second_key card_key technical_sheet circulation_permit"`
	DeTitular *string `json:"de_titular"`
	ATitular  string  `json:"a_titular" validate:"required"`
	Motivo    string  `json:"motivo"`
	// SinPlazo crea el movimiento sin fecha límite: nunca se auto-acepta.
	SinPlazo bool `json:"sin_plazo"`
}

type ConfirmarMovimientoRequest struct {
	Notas string `json:"notas"`
}

type RechazarMovimientoRequest struct {
	Motivo string `json:"motivo"`
}

type MovimientoResponse struct {
	ID                string  `json:"id"`
	Familia           string  `json:"familia"`
	Matricula         string  `json:"matricula"`
	Tipo              string  `json:"tipo"`
	DeTitular         string  `json:"de_titular"`
	ATitular          string  `json:"a_titular"`
	Motivo            string  `json:"motivo,omitempty"`
	Estado            string  `json:"estado"`
	FechaLimite       *string `json:"fecha_limite"`
	FechaConfirmacion *string `json:"fecha_confirmacion"`
	FechaRechazo      *string `json:"fecha_rechazo"`
	Notas             string  `json:"notas,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

type MovimientoListResponse struct {
	Movimientos []MovimientoResponse `json:"movimientos"`
	Total       int                  `json:"total"`
}

// ResumenPendientesResponse alimenta la cola del titular: cuántos
// movimientos pendientes tiene, desglosados por familia.
type ResumenPendientesResponse struct {
	Total      int `json:"total"`
	Llaves     int `json:"llaves"`
	Documentos int `json:"documentos"`
}
