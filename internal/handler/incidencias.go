package handler

import (
	"net/http"

	"cvo/internal/apierror"
	"cvo/internal/dto"
	"cvo/internal/middleware"
	"cvo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type IncidenciasHandler struct{ svc service.IncidenciaService }

func NewIncidenciasHandler(svc service.IncidenciaService) *IncidenciasHandler {
	return &IncidenciasHandler{svc: svc}
}

// Toggle godoc
// @Summary      Alternar una incidencia sobre una entrega
// @Description  Añade el tipo si no está presente, lo elimina si lo está. Requiere ser admin, supervisor o el asesor asignado al vehículo.
// @Tags         incidencias
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "UUID de la entrega"
// @Param        body body dto.ToggleIncidenciaRequest true "Tipo de incidencia"
// @Success      200 {object} dto.ToggleIncidenciaResponse
// @Failure      403 {object} apierror.APIError
// @Failure      409 {object} apierror.APIError
// @Router       /v1/entregas/{id}/incidencias/toggle [post]
func (h *IncidenciasHandler) Toggle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.ToggleIncidenciaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.Toggle(c.Request.Context(), id, claims.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Historial godoc
// @Summary      Historial de incidencias
// @Description  Libro de auditoría, filtrable por matrícula, entrega, tipo y estado de resolución.
// @Tags         incidencias
// @Produce      json
// @Security     BearerAuth
// @Param        matricula  query string false "Matrícula"
// @Param        entrega_id query string false "UUID de la entrega"
// @Param        tipo       query string false "Tipo de incidencia"
// @Param        resuelta   query string false "true | false"
// @Success      200 {array} dto.HistorialEntryResponse
// @Router       /v1/incidencias/historial [get]
func (h *IncidenciasHandler) Historial(c *gin.Context) {
	var filter dto.HistorialFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.Historial(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Informe godoc
// @Summary      Conteos de incidencias por tipo
// @Description  Abiertas y resueltas por cada tipo del vocabulario, con ceros para los tipos sin historial.
// @Tags         incidencias
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} dto.InformeIncidenciasResponse
// @Router       /v1/incidencias/informe [get]
func (h *IncidenciasHandler) Informe(c *gin.Context) {
	resp, err := h.svc.Informe(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Tipos godoc
// @Summary      Vocabulario de tipos de incidencia
// @Tags         incidencias
// @Produce      json
// @Success      200 {array} string
// @Router       /v1/incidencias/tipos [get]
func (h *IncidenciasHandler) Tipos(c *gin.Context) {
	c.JSON(http.StatusOK, service.TiposIncidencia)
}
