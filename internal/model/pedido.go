package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order lifecycle states.
const (
	EstadoPendiente   = "pendiente"
	EstadoPreparacion = "preparacion"
	EstadoListo       = "listo"
	EstadoPagado      = "pagado"
	EstadoCancelado   = "cancelado"
)

// Pedido is a tab opened by staff for a table.
type Pedido struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	MesaNumero int       `gorm:"not null;index"`
	PersonalID uuid.UUID `gorm:"type:uuid;not null"`
	Detalle    string
	Estado     string `gorm:"not null;default:'pendiente';index"`
	Version    int    `gorm:"not null;default:1"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Items []PedidoItem `gorm:"foreignKey:PedidoID"`
}

func (Pedido) TableName() string { return "pedidos" }

// Total sums the item subtotals.
func (p *Pedido) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range p.Items {
		total = total.Add(it.Subtotal)
	}
	return total
}

// PedidoItem is a line of an order. PrecioUnitario is frozen when the line is added.
type PedidoItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PedidoID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;not null"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt      time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

func (PedidoItem) TableName() string { return "pedido_items" }
