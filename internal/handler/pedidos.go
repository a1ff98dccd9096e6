package handler

import (
	"net/http"

	"github.com/koouhz/beefybeer-sub000/internal/dto"
	"github.com/koouhz/beefybeer-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type PedidosHandler struct {
	svc    service.PedidoService
	ventas service.VentaService
}

func NewPedidosHandler(svc service.PedidoService, ventas service.VentaService) *PedidosHandler {
	return &PedidosHandler{svc: svc, ventas: ventas}
}

// Crear godoc
// @Summary      Abrir pedido
// @Description  Crea un pedido pendiente para una mesa; la mesa pasa a ocupada.
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Param        body body dto.CrearPedidoRequest true "Pedido"
// @Success      201  {object} dto.PedidoResponse
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/pedidos [post]
func (h *PedidosHandler) Crear(c *gin.Context) {
	var req dto.CrearPedidoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CrearPedido(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary      Listar pedidos
// @Tags         pedidos
// @Produce      json
// @Param        mesa   query int    false "Número de mesa"
// @Param        estado query string false "pendiente | preparacion | listo | pagado | cancelado"
// @Param        page   query int    false "Página"
// @Param        limit  query int    false "Tamaño de página"
// @Success      200 {object} dto.PedidoListResponse
// @Router       /v1/pedidos [get]
func (h *PedidosHandler) Listar(c *gin.Context) {
	var filter dto.PedidoFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListarPedidos(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PedidosHandler) Obtener(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerPedido(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AgregarItem godoc
// @Summary      Agregar item
// @Description  Solo mientras el pedido está pendiente, en preparación o listo.
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Param        id   path string                true "UUID del pedido"
// @Param        body body dto.ItemPedidoRequest true "Item"
// @Success      201 {object} dto.PedidoResponse
// @Failure      409 {object} apierror.APIError
// @Router       /v1/pedidos/{id}/items [post]
func (h *PedidosHandler) AgregarItem(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ItemPedidoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AgregarItem(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PedidosHandler) QuitarItem(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	itemID, ok := paramUUID(c, "item_id")
	if !ok {
		return
	}
	resp, err := h.svc.QuitarItem(c.Request.Context(), id, itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CambiarEstado godoc
// @Summary      Cambiar estado del pedido
// @Description  Pasar a pagado registra la venta y descuenta stock; salir de pagado elimina la venta y repone stock.
// @Tags         pedidos
// @Accept       json
// @Produce      json
// @Param        id   path string                   true "UUID del pedido"
// @Param        body body dto.CambiarEstadoRequest true "Nuevo estado"
// @Success      200 {object} dto.PedidoResponse
// @Failure      409 {object} apierror.StockError
// @Failure      422 {object} apierror.APIError
// @Failure      500 {object} apierror.APIError
// @Router       /v1/pedidos/{id}/estado [patch]
func (h *PedidosHandler) CambiarEstado(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CambiarEstadoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CambiarEstado(c.Request.Context(), id, req.Estado)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Eliminar godoc
// @Summary      Eliminar pedido
// @Description  Solo si el pedido no tiene venta asociada. Elimina también sus items.
// @Tags         pedidos
// @Param        id path string true "UUID del pedido"
// @Success      204
// @Failure      409 {object} apierror.APIError
// @Router       /v1/pedidos/{id} [delete]
func (h *PedidosHandler) Eliminar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.EliminarPedido(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *PedidosHandler) ObtenerVenta(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.ventas.ObtenerPorPedido(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
