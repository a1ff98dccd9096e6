package repository

import (
	"context"
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PedidoFilter defines filters for listing orders.
type PedidoFilter struct {
	MesaNumero *int
	Estado     string
	Page       int
	Limit      int
}

// PedidoRepository stores orders and their items as independent rows.
type PedidoRepository interface {
	Create(ctx context.Context, p *model.Pedido) error
	// FindByID loads the order with its items and their products.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Pedido, error)
	List(ctx context.Context, filter PedidoFilter) ([]model.Pedido, int64, error)
	CountByMesaEstado(ctx context.Context, mesaNumero int, estado string) (int64, error)
	// UpdateEstado compare-and-swaps on the order version.
	UpdateEstado(ctx context.Context, id uuid.UUID, estado string, version int) error
	Delete(ctx context.Context, id uuid.UUID) error

	CreateItem(ctx context.Context, it *model.PedidoItem) error
	FindItem(ctx context.Context, id uuid.UUID) (*model.PedidoItem, error)
	DeleteItem(ctx context.Context, id uuid.UUID) error
	DeleteItemsByPedido(ctx context.Context, pedidoID uuid.UUID) error
}

type pedidoRepo struct{ db *gorm.DB }

func NewPedidoRepository(db *gorm.DB) PedidoRepository { return &pedidoRepo{db: db} }

func (r *pedidoRepo) Create(ctx context.Context, p *model.Pedido) error {
	if p.Version == 0 {
		p.Version = 1
	}
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error)
}

func (r *pedidoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Pedido, error) {
	var p model.Pedido
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Items.Producto").
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *pedidoRepo) List(ctx context.Context, filter PedidoFilter) ([]model.Pedido, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Pedido{})
	if filter.MesaNumero != nil {
		q = q.Where("mesa_numero = ?", *filter.MesaNumero)
	}
	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var pedidos []model.Pedido
	err := q.Preload("Items.Producto").
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&pedidos).Error
	return pedidos, total, translate(err)
}

func (r *pedidoRepo) CountByMesaEstado(ctx context.Context, mesaNumero int, estado string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Pedido{}).
		Where("mesa_numero = ? AND estado = ?", mesaNumero, estado).
		Count(&n).Error
	return n, translate(err)
}

func (r *pedidoRepo) UpdateEstado(ctx context.Context, id uuid.UUID, estado string, version int) error {
	res := r.db.WithContext(ctx).Model(&model.Pedido{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]interface{}{
			"estado":     estado,
			"version":    version + 1,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&model.Pedido{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return translate(err)
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func (r *pedidoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.Pedido{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pedidoRepo) CreateItem(ctx context.Context, it *model.PedidoItem) error {
	return translate(r.db.WithContext(ctx).Omit("Producto").Create(it).Error)
}

func (r *pedidoRepo) FindItem(ctx context.Context, id uuid.UUID) (*model.PedidoItem, error) {
	var it model.PedidoItem
	if err := r.db.WithContext(ctx).First(&it, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &it, nil
}

func (r *pedidoRepo) DeleteItem(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&model.PedidoItem{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pedidoRepo) DeleteItemsByPedido(ctx context.Context, pedidoID uuid.UUID) error {
	return translate(r.db.WithContext(ctx).Where("pedido_id = ?", pedidoID).Delete(&model.PedidoItem{}).Error)
}
