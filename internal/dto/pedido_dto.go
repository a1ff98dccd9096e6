package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// PedidoFilter is bound from query string of GET /v1/pedidos.
type PedidoFilter struct {
	Mesa   *int   `form:"mesa"             validate:"omitempty,min=1"`
	Estado string `form:"estado"           validate:"omitempty,oneof=pendiente preparacion listo pagado cancelado"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type PedidoListResponse struct {
	Data  []PedidoResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ItemPedidoRequest struct {
	ProductoID string `json:"producto_id" validate:"required,uuid"`
	Cantidad   int    `json:"cantidad"    validate:"required,min=1"`
}

type CrearPedidoRequest struct {
	MesaNumero int                 `json:"mesa_numero" validate:"required,min=1"`
	PersonalID string              `json:"personal_id" validate:"required,uuid"`
	Detalle    string              `json:"detalle"     validate:"max=500"`
	Items      []ItemPedidoRequest `json:"items"       validate:"omitempty,dive"`
}

type CambiarEstadoRequest struct {
	Estado string `json:"estado" validate:"required,oneof=pendiente preparacion listo pagado cancelado"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemPedidoResponse struct {
	ID             string          `json:"id"`
	ProductoID     string          `json:"producto_id"`
	Producto       string          `json:"producto"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type PedidoResponse struct {
	ID                string               `json:"id"`
	MesaNumero        int                  `json:"mesa_numero"`
	PersonalID        string               `json:"personal_id"`
	Detalle           string               `json:"detalle"`
	Estado            string               `json:"estado"`
	Items             []ItemPedidoResponse `json:"items"`
	Total             decimal.Decimal      `json:"total"`
	SiguientesEstados []string             `json:"siguientes_estados"`
	CreatedAt         string               `json:"created_at"`
	UpdatedAt         string               `json:"updated_at"`
}
