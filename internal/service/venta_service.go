package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/dto"
	"github.com/koouhz/beefybeer-sub000/internal/model"
	"github.com/koouhz/beefybeer-sub000/internal/repository"

	"github.com/google/uuid"
)

// VentaService records the single sale tied to a paid order.
type VentaService interface {
	// CrearDesdePedido computes the total strictly from the order's item
	// subtotals. It fails with ErrPedidoSinItems for an empty order and with
	// ErrVentaDuplicada when the order already has a sale.
	CrearDesdePedido(ctx context.Context, p *model.Pedido) (*model.Venta, error)
	// EliminarDePedido removes the order's sale and returns it. It is a no-op
	// returning nil when the order has no sale.
	EliminarDePedido(ctx context.Context, pedidoID uuid.UUID) (*model.Venta, error)
	// BuscarPorPedido returns nil without error when the order has no sale.
	BuscarPorPedido(ctx context.Context, pedidoID uuid.UUID) (*model.Venta, error)
	// Restaurar re-inserts a sale removed by EliminarDePedido.
	Restaurar(ctx context.Context, v *model.Venta) error
	ObtenerPorPedido(ctx context.Context, pedidoID uuid.UUID) (*dto.VentaResponse, error)
}

type ventaService struct {
	repo  repository.VentaRepository
	reloj func() time.Time
}

func NewVentaService(repo repository.VentaRepository, reloj func() time.Time) VentaService {
	if reloj == nil {
		reloj = time.Now
	}
	return &ventaService{repo: repo, reloj: reloj}
}

// ── CrearDesdePedido ──────────────────────────────────────────────────────────

func (s *ventaService) CrearDesdePedido(ctx context.Context, p *model.Pedido) (*model.Venta, error) {
	if len(p.Items) == 0 {
		return nil, fmt.Errorf("pedido %s: %w", p.ID, ErrPedidoSinItems)
	}

	// One sale per order is checked here; the unique key on pedido_id only
	// catches the writer that lost a race between this lookup and the insert.
	n, err := s.repo.CountByPedidoID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, fmt.Errorf("pedido %s: %w", p.ID, ErrVentaDuplicada)
	}

	v := &model.Venta{
		ID:          uuid.New(),
		PedidoID:    p.ID,
		MontoTotal:  p.Total(),
		Descripcion: fmt.Sprintf("Pedido mesa %d (%d items)", p.MesaNumero, len(p.Items)),
		Fecha:       s.reloj().UTC(),
	}
	if err := s.repo.Create(ctx, v); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("pedido %s: %w", p.ID, ErrVentaDuplicada)
		}
		return nil, err
	}
	return v, nil
}

// ── EliminarDePedido ──────────────────────────────────────────────────────────

func (s *ventaService) EliminarDePedido(ctx context.Context, pedidoID uuid.UUID) (*model.Venta, error) {
	v, err := s.BuscarPorPedido(ctx, pedidoID)
	if err != nil || v == nil {
		return nil, err
	}
	// Only the caller whose delete removed the row gets the sale back, so two
	// concurrent reversals cannot both restock the same order.
	if err := s.repo.Delete(ctx, v.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

func (s *ventaService) BuscarPorPedido(ctx context.Context, pedidoID uuid.UUID) (*model.Venta, error) {
	v, err := s.repo.FindByPedidoID(ctx, pedidoID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *ventaService) Restaurar(ctx context.Context, v *model.Venta) error {
	err := s.repo.Create(ctx, v)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil
	}
	return err
}

func (s *ventaService) ObtenerPorPedido(ctx context.Context, pedidoID uuid.UUID) (*dto.VentaResponse, error) {
	v, err := s.BuscarPorPedido(ctx, pedidoID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("venta del pedido %s: %w", pedidoID, ErrNoEncontrado)
	}
	return ventaToResponse(v), nil
}

func ventaToResponse(v *model.Venta) *dto.VentaResponse {
	return &dto.VentaResponse{
		ID:          v.ID.String(),
		PedidoID:    v.PedidoID.String(),
		MontoTotal:  v.MontoTotal,
		Descripcion: v.Descripcion,
		Fecha:       v.Fecha.Format(time.RFC3339),
	}
}
