package handler

import (
	"net/http"

	"github.com/koouhz/beefybeer-sub000/internal/dto"
	"github.com/koouhz/beefybeer-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InventarioHandler struct{ svc service.StockService }

func NewInventarioHandler(svc service.StockService) *InventarioHandler {
	return &InventarioHandler{svc: svc}
}

// ObtenerStock godoc
// @Summary      Stock actual de un producto
// @Description  Cantidad actual según la fila de inventario más reciente del producto.
// @Tags         inventario
// @Produce      json
// @Param        producto_id path string true "UUID del producto"
// @Success      200 {object} dto.StockResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/inventario/{producto_id} [get]
func (h *InventarioHandler) ObtenerStock(c *gin.Context) {
	id, ok := paramUUID(c, "producto_id")
	if !ok {
		return
	}
	resp, err := h.svc.Consultar(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// VerificarDisponibilidad godoc
// @Summary      Verificar disponibilidad
// @Description  Lectura pura: informa todos los faltantes, no solo el primero.
// @Tags         inventario
// @Accept       json
// @Produce      json
// @Param        body body dto.VerificarDisponibilidadRequest true "Items a verificar"
// @Success      200 {object} dto.DisponibilidadResponse
// @Router       /v1/inventario/disponibilidad [post]
func (h *InventarioHandler) VerificarDisponibilidad(c *gin.Context) {
	var req dto.VerificarDisponibilidadRequest
	if !bindAndValidate(c, &req) {
		return
	}
	items := make([]service.ItemStock, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, service.ItemStock{ProductoID: uuid.MustParse(it.ProductoID), Cantidad: it.Cantidad})
	}
	reporte, err := h.svc.VerificarDisponibilidad(c.Request.Context(), items)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := dto.DisponibilidadResponse{Disponible: reporte.Disponible, Faltantes: make([]dto.FaltanteResponse, 0, len(reporte.Faltantes))}
	for _, f := range reporte.Faltantes {
		resp.Faltantes = append(resp.Faltantes, dto.FaltanteResponse{
			ProductoID: f.ProductoID.String(),
			Producto:   f.Producto,
			Requerido:  f.Requerido,
			Disponible: f.Disponible,
		})
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarMovimiento godoc
// @Summary      Registrar movimiento de stock
// @Description  Delta positivo es una entrada, negativo una salida. Nunca deja el stock negativo.
// @Tags         inventario
// @Accept       json
// @Produce      json
// @Param        producto_id path string                true "UUID del producto"
// @Param        body        body dto.MovimientoRequest true "Movimiento"
// @Success      201 {object} dto.MovimientoResponse
// @Failure      409 {object} apierror.StockError
// @Router       /v1/inventario/{producto_id}/movimientos [post]
func (h *InventarioHandler) RegistrarMovimiento(c *gin.Context) {
	id, ok := paramUUID(c, "producto_id")
	if !ok {
		return
	}
	var req dto.MovimientoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	cantidad, err := h.svc.AplicarMovimiento(c.Request.Context(), id, req.Delta, req.Motivo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MovimientoResponse{ProductoID: id.String(), Delta: req.Delta, CantidadActual: cantidad})
}

// RegistrarMovimientos godoc
// @Summary      Registrar lote de movimientos
// @Description  Todo o nada: si un movimiento falla, los ya aplicados se revierten en orden inverso.
// @Tags         inventario
// @Accept       json
// @Produce      json
// @Param        body body dto.MovimientosLoteRequest true "Lote"
// @Success      201 {object} dto.MovimientosLoteResponse
// @Failure      409 {object} apierror.StockError
// @Failure      500 {object} apierror.APIError
// @Router       /v1/inventario/movimientos [post]
func (h *InventarioHandler) RegistrarMovimientos(c *gin.Context) {
	var req dto.MovimientosLoteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	movs := make([]service.Movimiento, 0, len(req.Movimientos))
	for _, m := range req.Movimientos {
		movs = append(movs, service.Movimiento{ProductoID: uuid.MustParse(m.ProductoID), Delta: m.Delta})
	}
	resultado, err := h.svc.AplicarMovimientos(c.Request.Context(), movs, req.Motivo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.MovimientosLoteResponse{Movimientos: resultado})
}

// DefinirUmbrales godoc
// @Summary      Definir stock mínimo y máximo
// @Tags         inventario
// @Accept       json
// @Produce      json
// @Param        producto_id path string              true "UUID del producto"
// @Param        body        body dto.UmbralesRequest true "Umbrales"
// @Success      200 {object} dto.FilaInventarioResponse
// @Router       /v1/inventario/{producto_id}/umbrales [put]
func (h *InventarioHandler) DefinirUmbrales(c *gin.Context) {
	id, ok := paramUUID(c, "producto_id")
	if !ok {
		return
	}
	var req dto.UmbralesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.DefinirUmbrales(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
