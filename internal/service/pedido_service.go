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

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PedidoService drives the order lifecycle. Every state write is a
// compare-and-swap on the order version; multi-record steps are undone in
// reverse when a later one fails.
type PedidoService interface {
	CrearPedido(ctx context.Context, req dto.CrearPedidoRequest) (*dto.PedidoResponse, error)
	ObtenerPedido(ctx context.Context, id uuid.UUID) (*dto.PedidoResponse, error)
	ListarPedidos(ctx context.Context, filter dto.PedidoFilter) (*dto.PedidoListResponse, error)
	AgregarItem(ctx context.Context, pedidoID uuid.UUID, req dto.ItemPedidoRequest) (*dto.PedidoResponse, error)
	QuitarItem(ctx context.Context, pedidoID, itemID uuid.UUID) (*dto.PedidoResponse, error)
	CambiarEstado(ctx context.Context, id uuid.UUID, hacia string) (*dto.PedidoResponse, error)
	EliminarPedido(ctx context.Context, id uuid.UUID) error
}

type pedidoService struct {
	repo         repository.PedidoRepository
	productoRepo repository.ProductoRepository
	mesaRepo     repository.MesaRepository
	stock        StockService
	ventas       VentaService
	mesas        MesaService
	publicador   Publicador
	alertador    Alertador
	metrics      *metrics.Metrics
}

func NewPedidoService(
	repo repository.PedidoRepository,
	productoRepo repository.ProductoRepository,
	mesaRepo repository.MesaRepository,
	stock StockService,
	ventas VentaService,
	mesas MesaService,
	publicador Publicador,
	alertador Alertador,
	m *metrics.Metrics,
) PedidoService {
	return &pedidoService{
		repo:         repo,
		productoRepo: productoRepo,
		mesaRepo:     mesaRepo,
		stock:        stock,
		ventas:       ventas,
		mesas:        mesas,
		publicador:   publicador,
		alertador:    alertador,
		metrics:      m,
	}
}

// ── CrearPedido ───────────────────────────────────────────────────────────────

func (s *pedidoService) CrearPedido(ctx context.Context, req dto.CrearPedidoRequest) (*dto.PedidoResponse, error) {
	personalID, err := uuid.Parse(req.PersonalID)
	if err != nil {
		return nil, fmt.Errorf("personal_id inválido: %w", err)
	}
	if _, err := s.mesaRepo.FindByNumero(ctx, req.MesaNumero); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("mesa %d: %w", req.MesaNumero, ErrNoEncontrado)
		}
		return nil, err
	}

	// Resolve and price every line before the first write.
	p := &model.Pedido{
		ID:         uuid.New(),
		MesaNumero: req.MesaNumero,
		PersonalID: personalID,
		Detalle:    req.Detalle,
		Estado:     model.EstadoPendiente,
		Version:    1,
	}
	items := make([]*model.PedidoItem, 0, len(req.Items))
	for _, r := range req.Items {
		it, err := s.nuevoItem(ctx, p.ID, r)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	sg := nuevaSaga("crear_pedido", p.ID.String())
	sg.registrar("eliminar pedido", func(ctx context.Context) error {
		if err := s.repo.DeleteItemsByPedido(ctx, p.ID); err != nil {
			return err
		}
		return s.repo.Delete(ctx, p.ID)
	})
	for _, it := range items {
		if err := s.repo.CreateItem(ctx, it); err != nil {
			return nil, s.abortar(ctx, sg, err)
		}
	}

	log.Info().
		Str("pedido_id", p.ID.String()).
		Int("mesa", p.MesaNumero).
		Int("items", len(items)).
		Msg("pedido creado")

	s.reconciliarMesa(ctx, p.MesaNumero)
	resp, err := s.ObtenerPedido(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	s.publicar(ctx, "creado", p.ID, p.MesaNumero, "", model.EstadoPendiente, resp.Total)
	return resp, nil
}

// ── Lectura ───────────────────────────────────────────────────────────────────

func (s *pedidoService) ObtenerPedido(ctx context.Context, id uuid.UUID) (*dto.PedidoResponse, error) {
	p, err := s.cargar(ctx, id)
	if err != nil {
		return nil, err
	}
	return pedidoToResponse(p), nil
}

func (s *pedidoService) ListarPedidos(ctx context.Context, filter dto.PedidoFilter) (*dto.PedidoListResponse, error) {
	pedidos, total, err := s.repo.List(ctx, repository.PedidoFilter{
		MesaNumero: filter.Mesa,
		Estado:     filter.Estado,
		Page:       filter.Page,
		Limit:      filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	data := make([]dto.PedidoResponse, 0, len(pedidos))
	for i := range pedidos {
		data = append(data, *pedidoToResponse(&pedidos[i]))
	}
	return &dto.PedidoListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── Items ─────────────────────────────────────────────────────────────────────

func (s *pedidoService) AgregarItem(ctx context.Context, pedidoID uuid.UUID, req dto.ItemPedidoRequest) (*dto.PedidoResponse, error) {
	p, err := s.cargar(ctx, pedidoID)
	if err != nil {
		return nil, err
	}
	if !pedidoEditable(p.Estado) {
		return nil, fmt.Errorf("pedido %s en estado %s: %w", p.ID, p.Estado, ErrPedidoCerrado)
	}
	it, err := s.nuevoItem(ctx, p.ID, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateItem(ctx, it); err != nil {
		return nil, errPedido(p.ID, err)
	}

	sg := nuevaSaga("agregar_item", p.ID.String())
	sg.registrar("quitar item", func(ctx context.Context) error { return s.repo.DeleteItem(ctx, it.ID) })
	// Bumping the version makes a concurrent payment that read the old item
	// set fail its own compare-and-swap.
	if err := s.tocar(ctx, p); err != nil {
		return nil, s.abortar(ctx, sg, err)
	}
	return s.ObtenerPedido(ctx, p.ID)
}

func (s *pedidoService) QuitarItem(ctx context.Context, pedidoID, itemID uuid.UUID) (*dto.PedidoResponse, error) {
	p, err := s.cargar(ctx, pedidoID)
	if err != nil {
		return nil, err
	}
	if !pedidoEditable(p.Estado) {
		return nil, fmt.Errorf("pedido %s en estado %s: %w", p.ID, p.Estado, ErrPedidoCerrado)
	}
	it, err := s.repo.FindItem(ctx, itemID)
	if err != nil || it.PedidoID != p.ID {
		if err == nil || errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("item %s: %w", itemID, ErrNoEncontrado)
		}
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, it.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("item %s: %w", itemID, ErrNoEncontrado)
		}
		return nil, err
	}

	sg := nuevaSaga("quitar_item", p.ID.String())
	sg.registrar("restaurar item", func(ctx context.Context) error {
		restaurado := *it
		return s.repo.CreateItem(ctx, &restaurado)
	})
	if err := s.tocar(ctx, p); err != nil {
		return nil, s.abortar(ctx, sg, err)
	}
	return s.ObtenerPedido(ctx, p.ID)
}

// ── CambiarEstado ─────────────────────────────────────────────────────────────

func (s *pedidoService) CambiarEstado(ctx context.Context, id uuid.UUID, hacia string) (*dto.PedidoResponse, error) {
	if !EstadoPedidoValido(hacia) {
		return nil, fmt.Errorf("%w: %q", ErrEstadoInvalido, hacia)
	}
	p, err := s.cargar(ctx, id)
	if err != nil {
		return nil, err
	}
	desde := p.Estado

	// An existing sale is reported before the edge is validated, so a
	// repeated payment reads as a duplicate rather than as pagado → pagado.
	if hacia == model.EstadoPagado {
		v, err := s.ventas.BuscarPorPedido(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if v != nil {
			return nil, fmt.Errorf("pedido %s: %w", p.ID, ErrVentaDuplicada)
		}
	}
	if !PuedeTransicionar(desde, hacia) {
		return nil, &TransicionInvalidaError{Desde: desde, Hacia: hacia}
	}

	inicio := time.Now()
	switch {
	case hacia == model.EstadoPagado:
		err = s.cobrar(ctx, p)
	case desde == model.EstadoPagado:
		err = s.revertirCobro(ctx, p, hacia)
	default:
		err = s.persistirEstado(ctx, p, hacia)
	}
	s.metrics.RecordTransicion(ctx, desde, hacia, time.Since(inicio), err == nil)
	if err != nil {
		log.Warn().Err(err).
			Str("pedido_id", p.ID.String()).
			Str("desde", desde).
			Str("hacia", hacia).
			Msg("transición de pedido rechazada")
		return nil, err
	}

	log.Info().
		Str("pedido_id", p.ID.String()).
		Str("desde", desde).
		Str("hacia", hacia).
		Msg("pedido actualizado")

	s.reconciliarMesa(ctx, p.MesaNumero)
	s.publicar(ctx, "estado_cambiado", p.ID, p.MesaNumero, desde, hacia, p.Total())
	return s.ObtenerPedido(ctx, p.ID)
}

// cobrar moves an order into pagado: availability check, sale, stock exits
// and the state write. Nothing is mutated before the check passes; every
// later failure undoes what was already applied.
func (s *pedidoService) cobrar(ctx context.Context, p *model.Pedido) error {
	reporte, err := s.stock.VerificarDisponibilidad(ctx, itemsStock(p))
	if err != nil {
		return err
	}
	if !reporte.Disponible {
		return &StockInsuficienteError{Faltantes: reporte.Faltantes}
	}

	sg := nuevaSaga("cobrar", p.ID.String())
	if _, err := s.ventas.CrearDesdePedido(ctx, p); err != nil {
		return err
	}
	sg.registrar("eliminar venta", func(ctx context.Context) error {
		_, err := s.ventas.EliminarDePedido(ctx, p.ID)
		return err
	})

	motivo := "Venta pedido " + p.ID.String()
	if _, err := s.stock.AplicarMovimientos(ctx, movimientos(p, -1), motivo); err != nil {
		return s.abortar(ctx, sg, err)
	}
	sg.registrar("reponer stock", func(ctx context.Context) error {
		_, err := s.stock.AplicarMovimientos(ctx, movimientos(p, 1), "Anulación "+motivo)
		return err
	})

	if err := s.persistirEstado(ctx, p, model.EstadoPagado); err != nil {
		return s.abortar(ctx, sg, err)
	}
	return nil
}

// revertirCobro moves an order out of pagado: the sale is removed and the
// stock it consumed is returned. The state write goes first and is the claim
// on the order: a concurrent reversal loses the compare-and-swap before it
// touches the sale or the ledger.
func (s *pedidoService) revertirCobro(ctx context.Context, p *model.Pedido, hacia string) error {
	desde := p.Estado
	if err := s.persistirEstado(ctx, p, hacia); err != nil {
		return err
	}
	sg := nuevaSaga("revertir_cobro", p.ID.String())
	sg.registrar("restaurar estado", func(ctx context.Context) error {
		return s.persistirEstado(ctx, p, desde)
	})

	venta, err := s.ventas.EliminarDePedido(ctx, p.ID)
	if err != nil {
		return s.abortar(ctx, sg, err)
	}
	if venta == nil {
		log.Warn().
			Str("pedido_id", p.ID.String()).
			Msg("pedido pagado sin venta asociada, se omite la reversión de stock")
		return nil
	}
	sg.registrar("restaurar venta", func(ctx context.Context) error { return s.ventas.Restaurar(ctx, venta) })

	motivo := "Reversión venta pedido " + p.ID.String()
	if _, err := s.stock.AplicarMovimientos(ctx, movimientos(p, 1), motivo); err != nil {
		return s.abortar(ctx, sg, err)
	}
	return nil
}

// ── EliminarPedido ────────────────────────────────────────────────────────────

func (s *pedidoService) EliminarPedido(ctx context.Context, id uuid.UUID) error {
	p, err := s.cargar(ctx, id)
	if err != nil {
		return err
	}
	v, err := s.ventas.BuscarPorPedido(ctx, p.ID)
	if err != nil {
		return err
	}
	if v != nil {
		return fmt.Errorf("pedido %s: %w", p.ID, ErrPedidoConVenta)
	}
	// Claim the order first: a payment racing this delete then loses its
	// compare-and-swap and undoes its sale.
	if err := s.tocar(ctx, p); err != nil {
		return err
	}

	sg := nuevaSaga("eliminar_pedido", p.ID.String())
	if err := s.repo.DeleteItemsByPedido(ctx, p.ID); err != nil {
		return err
	}
	sg.registrar("restaurar items", func(ctx context.Context) error {
		for i := range p.Items {
			it := p.Items[i]
			it.Producto = nil
			if err := s.repo.CreateItem(ctx, &it); err != nil {
				return err
			}
		}
		return nil
	})
	if err := s.repo.Delete(ctx, p.ID); err != nil {
		return s.abortar(ctx, sg, errPedido(p.ID, err))
	}

	log.Info().Str("pedido_id", p.ID.String()).Int("mesa", p.MesaNumero).Msg("pedido eliminado")
	s.reconciliarMesa(ctx, p.MesaNumero)
	s.publicar(ctx, "eliminado", p.ID, p.MesaNumero, p.Estado, "", p.Total())
	return nil
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (s *pedidoService) cargar(ctx context.Context, id uuid.UUID) (*model.Pedido, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, errPedido(id, err)
	}
	return p, nil
}

func (s *pedidoService) nuevoItem(ctx context.Context, pedidoID uuid.UUID, req dto.ItemPedidoRequest) (*model.PedidoItem, error) {
	if req.Cantidad <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrCantidadInvalida, req.Cantidad)
	}
	productoID, err := uuid.Parse(req.ProductoID)
	if err != nil {
		return nil, fmt.Errorf("producto_id inválido: %w", err)
	}
	prod, err := s.productoRepo.FindByID(ctx, productoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("producto %s: %w", productoID, ErrNoEncontrado)
		}
		return nil, err
	}
	return &model.PedidoItem{
		ID:             uuid.New(),
		PedidoID:       pedidoID,
		ProductoID:     prod.ID,
		Cantidad:       req.Cantidad,
		PrecioUnitario: prod.PrecioUnitario,
		Subtotal:       prod.PrecioUnitario.Mul(decimal.NewFromInt(int64(req.Cantidad))),
	}, nil
}

func (s *pedidoService) persistirEstado(ctx context.Context, p *model.Pedido, estado string) error {
	if err := s.repo.UpdateEstado(ctx, p.ID, estado, p.Version); err != nil {
		return errPedido(p.ID, err)
	}
	p.Version++
	return nil
}

// tocar bumps the order version without changing its state.
func (s *pedidoService) tocar(ctx context.Context, p *model.Pedido) error {
	return s.persistirEstado(ctx, p, p.Estado)
}

func (s *pedidoService) abortar(ctx context.Context, sg *saga, causa error) error {
	return abortarSaga(ctx, sg, causa, s.alertador, s.metrics)
}

// reconciliarMesa never fails the caller: the projection self-heals on the
// next sweep.
func (s *pedidoService) reconciliarMesa(ctx context.Context, numero int) {
	if _, err := s.mesas.Reconciliar(ctx, numero); err != nil {
		log.Warn().Err(err).Int("mesa", numero).Msg("no se pudo reconciliar la mesa")
	}
}

func (s *pedidoService) publicar(ctx context.Context, tipo string, id uuid.UUID, mesa int, desde, hacia string, total decimal.Decimal) {
	if s.publicador == nil {
		return
	}
	ev := model.EventoPedido{
		Tipo:       tipo,
		PedidoID:   id,
		MesaNumero: mesa,
		Desde:      desde,
		Hacia:      hacia,
		Total:      total,
		OcurridoEn: time.Now().UTC(),
	}
	if err := s.publicador.PublicarEvento(ctx, ev); err != nil {
		log.Warn().Err(err).Str("pedido_id", id.String()).Str("tipo", tipo).Msg("no se pudo publicar el evento de pedido")
	}
}

func errPedido(id uuid.UUID, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("pedido %s: %w", id, ErrNoEncontrado)
	case errors.Is(err, repository.ErrVersionConflict):
		return fmt.Errorf("pedido %s: %w", id, ErrConflictoConcurrente)
	}
	return err
}

func itemsStock(p *model.Pedido) []ItemStock {
	out := make([]ItemStock, 0, len(p.Items))
	for _, it := range p.Items {
		out = append(out, ItemStock{ProductoID: it.ProductoID, Cantidad: it.Cantidad})
	}
	return out
}

// movimientos turns the order's lines into signed deltas (signo -1 for exits).
func movimientos(p *model.Pedido, signo int) []Movimiento {
	out := make([]Movimiento, 0, len(p.Items))
	for _, it := range p.Items {
		out = append(out, Movimiento{ProductoID: it.ProductoID, Delta: signo * it.Cantidad})
	}
	return out
}

func pedidoToResponse(p *model.Pedido) *dto.PedidoResponse {
	items := make([]dto.ItemPedidoResponse, 0, len(p.Items))
	for _, it := range p.Items {
		nombre := ""
		if it.Producto != nil {
			nombre = it.Producto.Nombre
		}
		items = append(items, dto.ItemPedidoResponse{
			ID:             it.ID.String(),
			ProductoID:     it.ProductoID.String(),
			Producto:       nombre,
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
			Subtotal:       it.Subtotal,
		})
	}
	return &dto.PedidoResponse{
		ID:                p.ID.String(),
		MesaNumero:        p.MesaNumero,
		PersonalID:        p.PersonalID.String(),
		Detalle:           p.Detalle,
		Estado:            p.Estado,
		Items:             items,
		Total:             p.Total(),
		SiguientesEstados: TransicionesDesde(p.Estado),
		CreatedAt:         p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         p.UpdatedAt.Format(time.RFC3339),
	}
}
