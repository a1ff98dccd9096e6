package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Venta is the financial record of a paid order. At most one exists per order.
type Venta struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PedidoID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	MontoTotal  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Descripcion string
	Fecha       time.Time `gorm:"not null"`
	CreatedAt   time.Time
}

func (Venta) TableName() string { return "ventas" }
