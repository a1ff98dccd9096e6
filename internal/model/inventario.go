package model

import (
	"time"

	"github.com/google/uuid"
)

// FilaInventario is one dated ledger row for a product. There is at most one
// row per product and period; CantidadActual is the running stock after every
// movement recorded in the row, so the current stock of a product is the
// CantidadActual of its most recent row.
type FilaInventario struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_inventario_producto_fecha"`
	Fecha          time.Time `gorm:"type:date;not null;uniqueIndex:idx_inventario_producto_fecha"`
	Entradas       int       `gorm:"not null;default:0"`
	Salidas        int       `gorm:"not null;default:0"`
	CantidadActual int       `gorm:"not null;default:0"`
	Observaciones  string    `gorm:"type:text;not null;default:''"`
	StockMinimo    *int
	StockMaximo    *int
	// Version is bumped on every update; writers compare-and-swap on it.
	Version   int `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

// TableName overrides GORM's default pluralization (fila_inventarios → inventario).
func (FilaInventario) TableName() string { return "inventario" }
