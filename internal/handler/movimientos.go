package handler

import (
	"net/http"

	"cvo/internal/apierror"
	"cvo/internal/dto"
	"cvo/internal/middleware"
	"cvo/internal/model"
	"cvo/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MovimientosHandler struct{ svc service.MovimientoService }

func NewMovimientosHandler(svc service.MovimientoService) *MovimientosHandler {
	return &MovimientosHandler{svc: svc}
}

// familiaParam valida el segmento de ruta {familia}.
func familiaParam(c *gin.Context) (model.Familia, bool) {
	switch c.Param("familia") {
	case string(model.FamiliaLlave):
		return model.FamiliaLlave, true
	case string(model.FamiliaDocumento):
		return model.FamiliaDocumento, true
	default:
		c.JSON(http.StatusBadRequest, apierror.New("familia invalida: use llaves o documentos"))
		return "", false
	}
}

// Crear godoc
// @Summary      Registrar un movimiento de custodia
// @Description  Registra el traspaso de una llave o documento entre titulares y actualiza el registro de custodia.
// @Tags         movimientos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearMovimientoRequest true "Detalle del movimiento"
// @Success      201 {object} dto.MovimientoResponse
// @Failure      422 {object} apierror.APIError
// @Router       /v1/movimientos [post]
func (h *MovimientosHandler) Crear(c *gin.Context) {
	var req dto.CrearMovimientoRequest
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

// Confirmar godoc
// @Summary      Confirmar un movimiento
// @Description  Acepta el movimiento en nombre del destinatario y resuelve las incidencias asociadas al elemento entregado.
// @Tags         movimientos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        familia path string true "llaves | documentos"
// @Param        id      path string true "UUID del movimiento"
// @Param        body    body dto.ConfirmarMovimientoRequest false "Notas"
// @Success      200 {object} dto.MovimientoResponse
// @Failure      404 {object} apierror.APIError
// @Failure      409 {object} apierror.APIError
// @Router       /v1/movimientos/{familia}/{id}/confirmar [post]
func (h *MovimientosHandler) Confirmar(c *gin.Context) {
	familia, ok := familiaParam(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.ConfirmarMovimientoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.Confirmar(c.Request.Context(), familia, id, claims.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Rechazar godoc
// @Summary      Rechazar un movimiento
// @Description  Rechaza un movimiento pendiente. Con el plazo vencido ya no es posible.
// @Tags         movimientos
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        familia path string true "llaves | documentos"
// @Param        id      path string true "UUID del movimiento"
// @Param        body    body dto.RechazarMovimientoRequest true "Motivo del rechazo"
// @Success      200 {object} dto.MovimientoResponse
// @Failure      404 {object} apierror.APIError
// @Failure      409 {object} apierror.APIError
// @Router       /v1/movimientos/{familia}/{id}/rechazar [post]
func (h *MovimientosHandler) Rechazar(c *gin.Context) {
	familia, ok := familiaParam(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	var req dto.RechazarMovimientoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	resp, err := h.svc.Rechazar(c.Request.Context(), familia, id, claims.UserID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Obtener godoc
// @Summary      Consultar un movimiento
// @Tags         movimientos
// @Produce      json
// @Security     BearerAuth
// @Param        familia path string true "llaves | documentos"
// @Param        id      path string true "UUID del movimiento"
// @Success      200 {object} dto.MovimientoResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/movimientos/{familia}/{id} [get]
func (h *MovimientosHandler) Obtener(c *gin.Context) {
	familia, ok := familiaParam(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), familia, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Pendientes godoc
// @Summary      Movimientos dirigidos al titular autenticado
// @Description  Lista los movimientos de ambas familias cuyo destinatario es el usuario (o el titular agrupado indicado).
// @Tags         movimientos
// @Produce      json
// @Security     BearerAuth
// @Param        titular query string false "Titular agrupado (comerciales, taller, limpieza, custodia)"
// @Success      200 {object} dto.MovimientoListResponse
// @Router       /v1/movimientos [get]
func (h *MovimientosHandler) Pendientes(c *gin.Context) {
	titular := h.titularEfectivo(c)
	resp, err := h.svc.ListarPara(c.Request.Context(), titular)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Resumen godoc
// @Summary      Resumen de movimientos pendientes
// @Description  Conteo de movimientos pendientes del titular, desglosado por familia. Alimenta el badge de la bandeja.
// @Tags         movimientos
// @Produce      json
// @Security     BearerAuth
// @Param        titular query string false "Titular agrupado"
// @Success      200 {object} dto.ResumenPendientesResponse
// @Router       /v1/movimientos/resumen [get]
func (h *MovimientosHandler) Resumen(c *gin.Context) {
	titular := h.titularEfectivo(c)
	resp, err := h.svc.ResumenPendientes(c.Request.Context(), titular)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PorMatricula godoc
// @Summary      Movimientos de un vehículo
// @Tags         movimientos
// @Produce      json
// @Security     BearerAuth
// @Param        matricula path string true "Matrícula"
// @Success      200 {object} dto.MovimientoListResponse
// @Router       /v1/vehiculos/{matricula}/movimientos [get]
func (h *MovimientosHandler) PorMatricula(c *gin.Context) {
	resp, err := h.svc.ListarPorMatricula(c.Request.Context(), c.Param("matricula"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Custodia godoc
// @Summary      Titulares actuales de los elementos de un vehículo
// @Tags         movimientos
// @Produce      json
// @Security     BearerAuth
// @Param        matricula path string true "Matrícula"
// @Success      200 {array} model.ElementoCustodia
// @Router       /v1/vehiculos/{matricula}/custodia [get]
func (h *MovimientosHandler) Custodia(c *gin.Context) {
	resp, err := h.svc.Custodia(c.Request.Context(), c.Param("matricula"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// titularEfectivo devuelve el titular consultado: el usuario autenticado,
// o un titular agrupado si se pide explícitamente con ?titular=.
func (h *MovimientosHandler) titularEfectivo(c *gin.Context) string {
	if t := c.Query("titular"); t != "" && model.EsTitularAgrupado(t) {
		return t
	}
	return middleware.GetClaims(c).UserID
}
