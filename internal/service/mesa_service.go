package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/dto"
	"github.com/koouhz/beefybeer-sub000/internal/metrics"
	"github.com/koouhz/beefybeer-sub000/internal/model"
	"github.com/koouhz/beefybeer-sub000/internal/repository"

	"github.com/rs/zerolog/log"
)

// MesaService owns tables and projects their occupancy from the orders that
// reference them.
type MesaService interface {
	CrearMesa(ctx context.Context, req dto.CrearMesaRequest) (*dto.MesaResponse, error)
	ListarMesas(ctx context.Context) ([]dto.MesaResponse, error)
	// CambiarEstadoManual writes the state as given; the next reconciliation
	// applies the projection rules on top of it.
	CambiarEstadoManual(ctx context.Context, numero int, estado string) (*dto.MesaResponse, error)
	Reconciliar(ctx context.Context, numero int) (*dto.ReconciliacionResponse, error)
	// ReconciliarTodas is idempotent and keeps going past tables that fail.
	ReconciliarTodas(ctx context.Context) (*dto.ReconciliacionTotalResponse, error)
}

type mesaService struct {
	repo       repository.MesaRepository
	pedidoRepo repository.PedidoRepository
	metrics    *metrics.Metrics
}

func NewMesaService(repo repository.MesaRepository, pedidoRepo repository.PedidoRepository, m *metrics.Metrics) MesaService {
	return &mesaService{repo: repo, pedidoRepo: pedidoRepo, metrics: m}
}

func (s *mesaService) CrearMesa(ctx context.Context, req dto.CrearMesaRequest) (*dto.MesaResponse, error) {
	m := &model.Mesa{
		Numero:    req.Numero,
		Salon:     req.Salon,
		Capacidad: req.Capacidad,
		Estado:    model.MesaLibre,
	}
	if m.Salon == "" {
		m.Salon = "principal"
	}
	if m.Capacidad == 0 {
		m.Capacidad = 4
	}
	if err := s.repo.Create(ctx, m); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("mesa %d: %w", req.Numero, ErrYaExiste)
		}
		return nil, err
	}
	return mesaToResponse(m), nil
}

func (s *mesaService) ListarMesas(ctx context.Context) ([]dto.MesaResponse, error) {
	mesas, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MesaResponse, 0, len(mesas))
	for i := range mesas {
		out = append(out, *mesaToResponse(&mesas[i]))
	}
	return out, nil
}

func (s *mesaService) CambiarEstadoManual(ctx context.Context, numero int, estado string) (*dto.MesaResponse, error) {
	switch estado {
	case model.MesaLibre, model.MesaOcupada, model.MesaReservada:
	default:
		return nil, fmt.Errorf("%w: %q", ErrEstadoInvalido, estado)
	}
	if err := s.repo.UpdateEstado(ctx, numero, estado); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("mesa %d: %w", numero, ErrNoEncontrado)
		}
		return nil, err
	}
	m, err := s.repo.FindByNumero(ctx, numero)
	if err != nil {
		return nil, err
	}
	return mesaToResponse(m), nil
}

// ── Reconciliar ───────────────────────────────────────────────────────────────

func (s *mesaService) Reconciliar(ctx context.Context, numero int) (*dto.ReconciliacionResponse, error) {
	m, err := s.repo.FindByNumero(ctx, numero)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("mesa %d: %w", numero, ErrNoEncontrado)
	}
	if err != nil {
		return nil, err
	}
	return s.reconciliar(ctx, m)
}

func (s *mesaService) ReconciliarTodas(ctx context.Context) (*dto.ReconciliacionTotalResponse, error) {
	mesas, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	resp := &dto.ReconciliacionTotalResponse{Mesas: make([]dto.ReconciliacionResponse, 0, len(mesas))}
	var errs []error
	for i := range mesas {
		r, err := s.reconciliar(ctx, &mesas[i])
		if err != nil {
			errs = append(errs, fmt.Errorf("mesa %d: %w", mesas[i].Numero, err))
			continue
		}
		resp.Revisadas++
		if r.Cambio {
			resp.Cambiadas++
		}
		resp.Mesas = append(resp.Mesas, *r)
	}
	return resp, errors.Join(errs...)
}

// reconciliar derives the table state from the current order set. The write
// is last-writer-wins: the projection holds no authority of its own.
func (s *mesaService) reconciliar(ctx context.Context, m *model.Mesa) (*dto.ReconciliacionResponse, error) {
	activos, err := s.pedidoRepo.CountByMesaEstado(ctx, m.Numero, model.EstadoPendiente)
	if err != nil {
		return nil, err
	}
	nuevo := proyectarEstadoMesa(m.Estado, activos > 0)
	r := &dto.ReconciliacionResponse{Numero: m.Numero, EstadoAnterior: m.Estado, Estado: nuevo, Cambio: nuevo != m.Estado}
	if !r.Cambio {
		return r, nil
	}
	if err := s.repo.UpdateEstado(ctx, m.Numero, nuevo); err != nil {
		return nil, err
	}
	s.metrics.RecordMesaReconciliada(ctx, nuevo)
	log.Info().
		Int("mesa", m.Numero).
		Str("desde", m.Estado).
		Str("hacia", nuevo).
		Int64("pedidos_activos", activos).
		Msg("estado de mesa reconciliado")
	return r, nil
}

// proyectarEstadoMesa: active orders always win; an occupied table without
// them settles to libre; any other state (reservada, libre) is kept.
func proyectarEstadoMesa(actual string, hayActivos bool) string {
	if hayActivos {
		return model.MesaOcupada
	}
	if actual == model.MesaOcupada {
		return model.MesaLibre
	}
	return actual
}

func mesaToResponse(m *model.Mesa) *dto.MesaResponse {
	return &dto.MesaResponse{
		Numero:    m.Numero,
		Salon:     m.Salon,
		Capacidad: m.Capacidad,
		Estado:    m.Estado,
		UpdatedAt: m.UpdatedAt.Format(time.RFC3339),
	}
}
