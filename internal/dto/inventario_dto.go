package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ItemStockRequest struct {
	ProductoID string `json:"producto_id" validate:"required,uuid"`
	Cantidad   int    `json:"cantidad"    validate:"required,min=1"`
}

// VerificarDisponibilidadRequest is the body of POST /v1/inventario/disponibilidad.
type VerificarDisponibilidadRequest struct {
	Items []ItemStockRequest `json:"items" validate:"required,min=1,dive"`
}

// MovimientoRequest carries a signed delta: positive is an entry, negative an exit.
type MovimientoRequest struct {
	Delta  int    `json:"delta"  validate:"required"`
	Motivo string `json:"motivo" validate:"required,max=200"`
}

type MovimientoLoteItem struct {
	ProductoID string `json:"producto_id" validate:"required,uuid"`
	Delta      int    `json:"delta"       validate:"required"`
}

type MovimientosLoteRequest struct {
	Movimientos []MovimientoLoteItem `json:"movimientos" validate:"required,min=1,dive"`
	Motivo      string               `json:"motivo"      validate:"required,max=200"`
}

type UmbralesRequest struct {
	StockMinimo *int `json:"stock_minimo" validate:"omitempty,min=0"`
	StockMaximo *int `json:"stock_maximo" validate:"omitempty,min=0"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type FaltanteResponse struct {
	ProductoID string `json:"producto_id"`
	Producto   string `json:"producto"`
	Requerido  int    `json:"requerido"`
	Disponible int    `json:"disponible"`
}

type DisponibilidadResponse struct {
	Disponible bool               `json:"disponible"`
	Faltantes  []FaltanteResponse `json:"faltantes"`
}

type StockResponse struct {
	ProductoID     string `json:"producto_id"`
	Producto       string `json:"producto"`
	CantidadActual int    `json:"cantidad_actual"`
}

type MovimientoResponse struct {
	ProductoID     string `json:"producto_id"`
	Delta          int    `json:"delta"`
	CantidadActual int    `json:"cantidad_actual"`
}

type MovimientosLoteResponse struct {
	Movimientos []MovimientoResponse `json:"movimientos"`
}

type FilaInventarioResponse struct {
	ProductoID     string `json:"producto_id"`
	Fecha          string `json:"fecha"`
	Entradas       int    `json:"entradas"`
	Salidas        int    `json:"salidas"`
	CantidadActual int    `json:"cantidad_actual"`
	StockMinimo    *int   `json:"stock_minimo"`
	StockMaximo    *int   `json:"stock_maximo"`
	Observaciones  string `json:"observaciones"`
}
