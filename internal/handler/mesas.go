package handler

import (
	"net/http"

	"github.com/koouhz/beefybeer-sub000/internal/dto"
	"github.com/koouhz/beefybeer-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type MesasHandler struct{ svc service.MesaService }

func NewMesasHandler(svc service.MesaService) *MesasHandler {
	return &MesasHandler{svc: svc}
}

func (h *MesasHandler) Crear(c *gin.Context) {
	var req dto.CrearMesaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearMesa(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *MesasHandler) Listar(c *gin.Context) {
	resp, err := h.svc.ListarMesas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// CambiarEstado godoc
// @Summary      Cambiar estado de mesa
// @Description  Escribe el estado indicado; la próxima reconciliación aplica las reglas de ocupación.
// @Tags         mesas
// @Accept       json
// @Produce      json
// @Param        numero path int                          true "Número de mesa"
// @Param        body   body dto.CambiarEstadoMesaRequest true "Estado"
// @Success      200 {object} dto.MesaResponse
// @Router       /v1/mesas/{numero}/estado [patch]
func (h *MesasHandler) CambiarEstado(c *gin.Context) {
	numero, ok := paramNumero(c, "numero")
	if !ok {
		return
	}
	var req dto.CambiarEstadoMesaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CambiarEstadoManual(c.Request.Context(), numero, req.Estado)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reconciliar godoc
// @Summary      Reconciliar mesa
// @Description  Deriva el estado de la mesa de sus pedidos pendientes.
// @Tags         mesas
// @Produce      json
// @Param        numero path int true "Número de mesa"
// @Success      200 {object} dto.ReconciliacionResponse
// @Router       /v1/mesas/{numero}/reconciliar [post]
func (h *MesasHandler) Reconciliar(c *gin.Context) {
	numero, ok := paramNumero(c, "numero")
	if !ok {
		return
	}
	resp, err := h.svc.Reconciliar(c.Request.Context(), numero)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *MesasHandler) ReconciliarTodas(c *gin.Context) {
	resp, err := h.svc.ReconciliarTodas(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
