package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Producto is the catalog entry referenced by order items and ledger rows.
// The catalog itself is owned elsewhere; the engine only reads name and price.
type Producto struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre           string          `gorm:"index;not null"`
	PrecioUnitario   decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	FechaVencimiento *time.Time      `gorm:"type:date"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (Producto) TableName() string { return "productos" }
