package dto

type CrearEntregaRequest struct {
	Matricula       string   `json:"matricula" validate:"required"`
	Modelo          string   `json:"modelo"`
	FechaVenta      *string  `json:"fecha_venta"`
	Asesor          string   `json:"asesor"`
	TiposIncidencia []string `json:"tipos_incidencia"`
	Observaciones   string   `json:"observaciones"`
}

// RegistrarEntregaRequest marca el vehículo como entregado al cliente.
type RegistrarEntregaRequest struct {
	FechaEntrega *string `json:"fecha_entrega"`
}

type EntregaFilter struct {
	Matricula  string `form:"matricula"`
	Asesor     string `form:"asesor"`
	Incidencia string `form:"incidencia"` // "true" | "false" | "" (todas)
	Pendientes bool   `form:"pendientes"` // solo sin fecha de entrega
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
}

type EntregaResponse struct {
	ID              string   `json:"id"`
	Matricula       string   `json:"matricula"`
	Modelo          string   `json:"modelo,omitempty"`
	FechaVenta      *string  `json:"fecha_venta"`
	FechaEntrega    *string  `json:"fecha_entrega"`
	Asesor          string   `json:"asesor"`
	Incidencia      bool     `json:"incidencia"`
	TiposIncidencia []string `json:"tipos_incidencia"`
	Observaciones   string   `json:"observaciones,omitempty"`
}

type EntregaListResponse struct {
	Data  []EntregaResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
