package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/koouhz/beefybeer-sub000/internal/dto"
	"github.com/koouhz/beefybeer-sub000/internal/metrics"
	"github.com/koouhz/beefybeer-sub000/internal/model"
	"github.com/koouhz/beefybeer-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ItemStock is a (product, quantity) pair to check.
type ItemStock struct {
	ProductoID uuid.UUID
	Cantidad   int
}

// Movimiento is a signed change of one product's stock.
type Movimiento struct {
	ProductoID uuid.UUID
	Delta      int
}

// ReporteDisponibilidad lists every product that cannot cover its quantity.
type ReporteDisponibilidad struct {
	Disponible bool
	Faltantes  []Faltante
}

// StockService validates and applies stock movements on top of the ledger.
type StockService interface {
	Consultar(ctx context.Context, productoID uuid.UUID) (*dto.StockResponse, error)
	VerificarDisponibilidad(ctx context.Context, items []ItemStock) (*ReporteDisponibilidad, error)
	AplicarMovimiento(ctx context.Context, productoID uuid.UUID, delta int, motivo string) (int, error)
	// AplicarMovimientos is all-or-nothing: when one movement fails the ones
	// already applied are reversed before returning.
	AplicarMovimientos(ctx context.Context, movs []Movimiento, motivo string) ([]dto.MovimientoResponse, error)
	DefinirUmbrales(ctx context.Context, productoID uuid.UUID, req dto.UmbralesRequest) (*dto.FilaInventarioResponse, error)
}

type stockService struct {
	ledger       LedgerStore
	productoRepo repository.ProductoRepository
	alertador    Alertador
	metrics      *metrics.Metrics
}

func NewStockService(ledger LedgerStore, productoRepo repository.ProductoRepository, alertador Alertador, m *metrics.Metrics) StockService {
	return &stockService{ledger: ledger, productoRepo: productoRepo, alertador: alertador, metrics: m}
}

func (s *stockService) Consultar(ctx context.Context, productoID uuid.UUID) (*dto.StockResponse, error) {
	p, err := s.producto(ctx, productoID)
	if err != nil {
		return nil, err
	}
	cantidad, err := s.ledger.StockActual(ctx, productoID)
	if err != nil {
		return nil, err
	}
	return &dto.StockResponse{ProductoID: p.ID.String(), Producto: p.Nombre, CantidadActual: cantidad}, nil
}

// ── VerificarDisponibilidad ───────────────────────────────────────────────────

func (s *stockService) VerificarDisponibilidad(ctx context.Context, items []ItemStock) (*ReporteDisponibilidad, error) {
	reporte := &ReporteDisponibilidad{Disponible: true}
	for _, it := range agruparItems(items) {
		if it.Cantidad <= 0 {
			return nil, fmt.Errorf("%w: cantidad %d para %s", ErrCantidadInvalida, it.Cantidad, it.ProductoID)
		}
		p, err := s.producto(ctx, it.ProductoID)
		if err != nil {
			return nil, err
		}
		disponible, err := s.ledger.StockActual(ctx, it.ProductoID)
		if err != nil {
			return nil, err
		}
		if disponible < it.Cantidad {
			reporte.Disponible = false
			reporte.Faltantes = append(reporte.Faltantes, Faltante{
				ProductoID: it.ProductoID,
				Producto:   p.Nombre,
				Requerido:  it.Cantidad,
				Disponible: disponible,
			})
		}
	}
	return reporte, nil
}

// ── AplicarMovimiento(s) ──────────────────────────────────────────────────────

func (s *stockService) AplicarMovimiento(ctx context.Context, productoID uuid.UUID, delta int, motivo string) (int, error) {
	p, err := s.producto(ctx, productoID)
	if err != nil {
		return 0, err
	}
	cantidad, err := s.ledger.RegistrarMovimiento(ctx, productoID, delta, motivo)
	if err != nil {
		return 0, nombrarFaltantes(err, map[uuid.UUID]string{p.ID: p.Nombre})
	}
	return cantidad, nil
}

func (s *stockService) AplicarMovimientos(ctx context.Context, movs []Movimiento, motivo string) ([]dto.MovimientoResponse, error) {
	for _, m := range movs {
		if m.Delta == 0 {
			return nil, fmt.Errorf("%w: movimiento cero para %s", ErrCantidadInvalida, m.ProductoID)
		}
	}
	movs, err := agruparMovimientos(movs)
	if err != nil {
		return nil, err
	}

	// Resolve every product before the first write so an unknown id never
	// needs compensating.
	nombres := make(map[uuid.UUID]string, len(movs))
	for _, m := range movs {
		p, err := s.producto(ctx, m.ProductoID)
		if err != nil {
			return nil, err
		}
		nombres[p.ID] = p.Nombre
	}

	sg := nuevaSaga("lote_stock", motivo)
	resultado := make([]dto.MovimientoResponse, 0, len(movs))
	for _, m := range movs {
		m := m // per-iteration copy: the compensation closure below captures it
		cantidad, err := s.ledger.RegistrarMovimiento(ctx, m.ProductoID, m.Delta, motivo)
		if err != nil {
			err = nombrarFaltantes(err, nombres)
			log.Warn().Err(err).
				Str("producto_id", m.ProductoID.String()).
				Int("revertidos", len(sg.aplicados)).
				Msg("lote de movimientos fallido, compensando")
			return nil, s.abortar(ctx, sg, err)
		}

		sg.registrar("revertir "+nombres[m.ProductoID], func(ctx context.Context) error {
			_, err := s.ledger.RegistrarMovimiento(ctx, m.ProductoID, -m.Delta, "compensación: "+motivo)
			return err
		})
		resultado = append(resultado, dto.MovimientoResponse{
			ProductoID:     m.ProductoID.String(),
			Delta:          m.Delta,
			CantidadActual: cantidad,
		})
	}
	return resultado, nil
}

func (s *stockService) abortar(ctx context.Context, sg *saga, causa error) error {
	return abortarSaga(ctx, sg, causa, s.alertador, s.metrics)
}

// ── DefinirUmbrales ───────────────────────────────────────────────────────────

func (s *stockService) DefinirUmbrales(ctx context.Context, productoID uuid.UUID, req dto.UmbralesRequest) (*dto.FilaInventarioResponse, error) {
	if _, err := s.producto(ctx, productoID); err != nil {
		return nil, err
	}
	fila, err := s.ledger.DefinirUmbrales(ctx, productoID, req.StockMinimo, req.StockMaximo)
	if err != nil {
		return nil, err
	}
	return filaToResponse(fila), nil
}

func (s *stockService) producto(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	p, err := s.productoRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("producto %s: %w", id, ErrNoEncontrado)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

// agruparItems sums quantities per product, keeping first-seen order.
func agruparItems(items []ItemStock) []ItemStock {
	idx := make(map[uuid.UUID]int, len(items))
	out := make([]ItemStock, 0, len(items))
	for _, it := range items {
		if i, ok := idx[it.ProductoID]; ok {
			out[i].Cantidad += it.Cantidad
			continue
		}
		idx[it.ProductoID] = len(out)
		out = append(out, it)
	}
	return out
}

func agruparMovimientos(movs []Movimiento) ([]Movimiento, error) {
	idx := make(map[uuid.UUID]int, len(movs))
	out := make([]Movimiento, 0, len(movs))
	for _, m := range movs {
		if i, ok := idx[m.ProductoID]; ok {
			// Netting an entry against an exit would hide a shortfall that
			// applying them in order reports.
			if (out[i].Delta > 0) != (m.Delta > 0) {
				return nil, fmt.Errorf("%w: entradas y salidas mezcladas para %s", ErrCantidadInvalida, m.ProductoID)
			}
			out[i].Delta += m.Delta
			continue
		}
		idx[m.ProductoID] = len(out)
		out = append(out, m)
	}
	return out, nil
}

// nombrarFaltantes fills product names into a shortfall error from the ledger.
func nombrarFaltantes(err error, nombres map[uuid.UUID]string) error {
	var se *StockInsuficienteError
	if !errors.As(err, &se) {
		return err
	}
	for i := range se.Faltantes {
		if n, ok := nombres[se.Faltantes[i].ProductoID]; ok {
			se.Faltantes[i].Producto = n
		}
	}
	return err
}

func filaToResponse(f *model.FilaInventario) *dto.FilaInventarioResponse {
	return &dto.FilaInventarioResponse{
		ProductoID:     f.ProductoID.String(),
		Fecha:          f.Fecha.Format("2006-01-02"),
		Entradas:       f.Entradas,
		Salidas:        f.Salidas,
		CantidadActual: f.CantidadActual,
		StockMinimo:    f.StockMinimo,
		StockMaximo:    f.StockMaximo,
		Observaciones:  f.Observaciones,
	}
}
