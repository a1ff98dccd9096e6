package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearProductoRequest struct {
	Nombre           string          `json:"nombre"            validate:"required,min=2,max=120"`
	PrecioUnitario   decimal.Decimal `json:"precio_unitario"   validate:"required,gt=0"`
	FechaVencimiento *string         `json:"fecha_vencimiento" validate:"omitempty,datetime=2006-01-02"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductoResponse struct {
	ID               string          `json:"id"`
	Nombre           string          `json:"nombre"`
	PrecioUnitario   decimal.Decimal `json:"precio_unitario"`
	FechaVencimiento *string         `json:"fecha_vencimiento"`
	CreatedAt        string          `json:"created_at"`
}

type ProductoListResponse struct {
	Data  []ProductoResponse `json:"data"`
	Total int                `json:"total"`
}
