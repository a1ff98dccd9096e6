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

// ProductoService is the minimal catalog needed to price order lines.
type ProductoService interface {
	Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error)
	Listar(ctx context.Context) (*dto.ProductoListResponse, error)
}

type productoService struct {
	repo repository.ProductoRepository
}

func NewProductoService(repo repository.ProductoRepository) ProductoService {
	return &productoService{repo: repo}
}

func (s *productoService) Crear(ctx context.Context, req dto.CrearProductoRequest) (*dto.ProductoResponse, error) {
	if !req.PrecioUnitario.IsPositive() {
		return nil, fmt.Errorf("%w: el precio debe ser mayor a cero", ErrCantidadInvalida)
	}
	p := &model.Producto{
		ID:             uuid.New(),
		Nombre:         req.Nombre,
		PrecioUnitario: req.PrecioUnitario.Round(2),
	}
	if req.FechaVencimiento != nil {
		f, err := time.Parse("2006-01-02", *req.FechaVencimiento)
		if err != nil {
			return nil, fmt.Errorf("fecha_vencimiento inválida: %w", err)
		}
		p.FechaVencimiento = &f
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("producto %s: %w", p.ID, ErrYaExiste)
		}
		return nil, err
	}
	return productoToResponse(p), nil
}

func (s *productoService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("producto %s: %w", id, ErrNoEncontrado)
	}
	if err != nil {
		return nil, err
	}
	return productoToResponse(p), nil
}

func (s *productoService) Listar(ctx context.Context) (*dto.ProductoListResponse, error) {
	productos, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductoResponse, 0, len(productos))
	for i := range productos {
		data = append(data, *productoToResponse(&productos[i]))
	}
	return &dto.ProductoListResponse{Data: data, Total: len(data)}, nil
}

func productoToResponse(p *model.Producto) *dto.ProductoResponse {
	resp := &dto.ProductoResponse{
		ID:             p.ID.String(),
		Nombre:         p.Nombre,
		PrecioUnitario: p.PrecioUnitario,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
	}
	if p.FechaVencimiento != nil {
		f := p.FechaVencimiento.Format("2006-01-02")
		resp.FechaVencimiento = &f
	}
	return resp
}
