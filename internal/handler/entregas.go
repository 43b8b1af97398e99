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

type EntregasHandler struct{ svc service.EntregaService }

func NewEntregasHandler(svc service.EntregaService) *EntregasHandler {
	return &EntregasHandler{svc: svc}
}

// Crear godoc
// @Summary      Registrar una venta pendiente de entrega
// @Tags         entregas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearEntregaRequest true "Datos del vehículo vendido"
// @Success      201 {object} dto.EntregaResponse
// @Failure      422 {object} apierror.APIError
// @Router       /v1/entregas [post]
func (h *EntregasHandler) Crear(c *gin.Context) {
	var req dto.CrearEntregaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.Crear(c.Request.Context(), claims.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary      Listar entregas
// @Description  Lista paginada, filtrable por matrícula, asesor, incidencia y pendientes de entrega.
// @Tags         entregas
// @Produce      json
// @Security     BearerAuth
// @Param        matricula  query string false "Matrícula exacta"
// @Param        asesor     query string false "ID del asesor"
// @Param        incidencia query string false "true | false"
// @Param        pendientes query bool   false "Solo sin fecha de entrega"
// @Param        page       query int    false "Página (default 1)"
// @Param        limit      query int    false "Registros por página (default 20)"
// @Success      200 {object} dto.EntregaListResponse
// @Router       /v1/entregas [get]
func (h *EntregasHandler) Listar(c *gin.Context) {
	var filter dto.EntregaFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Obtener godoc
// @Summary      Consultar una entrega
// @Tags         entregas
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID de la entrega"
// @Success      200 {object} dto.EntregaResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/entregas/{id} [get]
func (h *EntregasHandler) Obtener(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarEntrega godoc
// @Summary      Marcar el vehículo como entregado al cliente
// @Tags         entregas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string true "UUID de la entrega"
// @Param        body body dto.RegistrarEntregaRequest false "Fecha de entrega (default: ahora)"
// @Success      200 {object} dto.EntregaResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/entregas/{id}/entregar [post]
func (h *EntregasHandler) RegistrarEntrega(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.RegistrarEntregaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarEntrega(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
