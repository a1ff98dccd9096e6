package repository

import (
	"context"
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventarioRepository is the row-level access to the stock ledger. It offers
// no multi-row transaction; UpdateVersioned is the only conditional write.
type InventarioRepository interface {
	// FindByProductoFecha returns the row of a product for one period.
	FindByProductoFecha(ctx context.Context, productoID uuid.UUID, fecha time.Time) (*model.FilaInventario, error)
	// FindUltima returns the most recent row of a product by date.
	FindUltima(ctx context.Context, productoID uuid.UUID) (*model.FilaInventario, error)
	// FindAnterior returns the most recent row strictly before fecha.
	FindAnterior(ctx context.Context, productoID uuid.UUID, fecha time.Time) (*model.FilaInventario, error)
	// Create inserts a new period row; ErrDuplicate when the period already has one.
	Create(ctx context.Context, f *model.FilaInventario) error
	// UpdateVersioned writes f only if the stored version still equals version,
	// otherwise it returns ErrVersionConflict. On success f.Version is bumped.
	UpdateVersioned(ctx context.Context, f *model.FilaInventario, version int) error
}

type inventarioRepo struct{ db *gorm.DB }

func NewInventarioRepository(db *gorm.DB) InventarioRepository {
	return &inventarioRepo{db: db}
}

func (r *inventarioRepo) FindByProductoFecha(ctx context.Context, productoID uuid.UUID, fecha time.Time) (*model.FilaInventario, error) {
	var f model.FilaInventario
	err := r.db.WithContext(ctx).
		Where("producto_id = ? AND fecha = ?", productoID, fecha).
		First(&f).Error
	if err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (r *inventarioRepo) FindUltima(ctx context.Context, productoID uuid.UUID) (*model.FilaInventario, error) {
	var f model.FilaInventario
	err := r.db.WithContext(ctx).
		Where("producto_id = ?", productoID).
		Order("fecha DESC").
		First(&f).Error
	if err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (r *inventarioRepo) FindAnterior(ctx context.Context, productoID uuid.UUID, fecha time.Time) (*model.FilaInventario, error) {
	var f model.FilaInventario
	err := r.db.WithContext(ctx).
		Where("producto_id = ? AND fecha < ?", productoID, fecha).
		Order("fecha DESC").
		First(&f).Error
	if err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (r *inventarioRepo) Create(ctx context.Context, f *model.FilaInventario) error {
	if f.Version == 0 {
		f.Version = 1
	}
	return translate(r.db.WithContext(ctx).Omit("Producto").Create(f).Error)
}

func (r *inventarioRepo) UpdateVersioned(ctx context.Context, f *model.FilaInventario, version int) error {
	res := r.db.WithContext(ctx).Model(&model.FilaInventario{}).
		Where("id = ? AND version = ?", f.ID, version).
		Updates(map[string]interface{}{
			"entradas":        f.Entradas,
			"salidas":         f.Salidas,
			"cantidad_actual": f.CantidadActual,
			"observaciones":   f.Observaciones,
			"stock_minimo":    f.StockMinimo,
			"stock_maximo":    f.StockMaximo,
			"version":         version + 1,
			"updated_at":      time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	f.Version = version + 1
	return nil
}
