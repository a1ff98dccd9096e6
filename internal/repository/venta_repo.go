package repository

import (
	"context"

	"github.com/koouhz/beefybeer-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VentaRepository interface {
	// Create returns ErrDuplicate when the order already has a sale.
	Create(ctx context.Context, v *model.Venta) error
	FindByPedidoID(ctx context.Context, pedidoID uuid.UUID) (*model.Venta, error)
	CountByPedidoID(ctx context.Context, pedidoID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) Create(ctx context.Context, v *model.Venta) error {
	return translate(r.db.WithContext(ctx).Create(v).Error)
}

func (r *ventaRepo) FindByPedidoID(ctx context.Context, pedidoID uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	if err := r.db.WithContext(ctx).Where("pedido_id = ?", pedidoID).First(&v).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (r *ventaRepo) CountByPedidoID(ctx context.Context, pedidoID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Venta{}).Where("pedido_id = ?", pedidoID).Count(&n).Error
	return n, translate(err)
}

func (r *ventaRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Venta{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
