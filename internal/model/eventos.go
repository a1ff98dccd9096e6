package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventoPedido is published after every committed order lifecycle change.
type EventoPedido struct {
	Tipo       string          `json:"tipo"` // "creado" | "estado_cambiado" | "eliminado"
	PedidoID   uuid.UUID       `json:"pedido_id"`
	MesaNumero int             `json:"mesa_numero"`
	Desde      string          `json:"desde,omitempty"`
	Hacia      string          `json:"hacia,omitempty"`
	Total      decimal.Decimal `json:"total"`
	OcurridoEn time.Time       `json:"ocurrido_en"`
}

// Incidente describes a failed compensation: the ledger or the sales table may
// be inconsistent and needs manual reconciliation.
type Incidente struct {
	ID         uuid.UUID `json:"id"`
	Tipo       string    `json:"tipo"`
	Operacion  string    `json:"operacion"`
	Causa      string    `json:"causa"`
	Fallos     []string  `json:"fallos"`
	OcurridoEn time.Time `json:"ocurrido_en"`
}
