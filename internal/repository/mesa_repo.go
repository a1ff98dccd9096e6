package repository

import (
	"context"
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/model"

	"gorm.io/gorm"
)

type MesaRepository interface {
	Create(ctx context.Context, m *model.Mesa) error
	FindByNumero(ctx context.Context, numero int) (*model.Mesa, error)
	List(ctx context.Context) ([]model.Mesa, error)
	UpdateEstado(ctx context.Context, numero int, estado string) error
}

type mesaRepo struct{ db *gorm.DB }

func NewMesaRepository(db *gorm.DB) MesaRepository { return &mesaRepo{db: db} }

func (r *mesaRepo) Create(ctx context.Context, m *model.Mesa) error {
	return translate(r.db.WithContext(ctx).Create(m).Error)
}

func (r *mesaRepo) FindByNumero(ctx context.Context, numero int) (*model.Mesa, error) {
	var m model.Mesa
	if err := r.db.WithContext(ctx).First(&m, "numero = ?", numero).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *mesaRepo) List(ctx context.Context) ([]model.Mesa, error) {
	var mesas []model.Mesa
	err := r.db.WithContext(ctx).Order("numero ASC").Find(&mesas).Error
	return mesas, translate(err)
}

func (r *mesaRepo) UpdateEstado(ctx context.Context, numero int, estado string) error {
	res := r.db.WithContext(ctx).Model(&model.Mesa{}).
		Where("numero = ?", numero).
		Updates(map[string]interface{}{"estado": estado, "updated_at": time.Now()})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
