package dto

import "github.com/shopspring/decimal"

type VentaResponse struct {
	ID          string          `json:"id"`
	PedidoID    string          `json:"pedido_id"`
	MontoTotal  decimal.Decimal `json:"monto_total"`
	Descripcion string          `json:"descripcion"`
	Fecha       string          `json:"fecha"`
}
