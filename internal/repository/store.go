package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups every repository the engine needs. Services receive the
// individual interfaces; the composition root builds one Store per driver.
type Store struct {
	Productos  ProductoRepository
	Inventario InventarioRepository
	Pedidos    PedidoRepository
	Mesas      MesaRepository
	Ventas     VentaRepository

	// Ping reports store connectivity for the health endpoint.
	Ping func(ctx context.Context) error
}

// NewStore builds the postgres-backed Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		Productos:  NewProductoRepository(db),
		Inventario: NewInventarioRepository(db),
		Pedidos:    NewPedidoRepository(db),
		Mesas:      NewMesaRepository(db),
		Ventas:     NewVentaRepository(db),
		Ping: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
}
