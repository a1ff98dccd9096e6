package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/dto"
	"github.com/koouhz/beefybeer-sub000/internal/model"
	"github.com/koouhz/beefybeer-sub000/internal/repository"
	"github.com/koouhz/beefybeer-sub000/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// ── Test doubles ─────────────────────────────────────────────────────────────

type alertadorStub struct {
	mu         sync.Mutex
	incidentes []model.Incidente
}

func (a *alertadorStub) NotificarIncidente(_ context.Context, inc model.Incidente) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.incidentes = append(a.incidentes, inc)
	return nil
}

func (a *alertadorStub) total() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.incidentes)
}

type publicadorStub struct {
	mu      sync.Mutex
	eventos []model.EventoPedido
}

func (p *publicadorStub) PublicarEvento(_ context.Context, ev model.EventoPedido) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.eventos = append(p.eventos, ev)
	return nil
}

func (p *publicadorStub) tipos() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.eventos))
	for _, ev := range p.eventos {
		out = append(out, ev.Tipo)
	}
	return out
}

// ledgerFalla fails every compensating movement, standing in for a ledger
// that went down halfway through a batch.
type ledgerFalla struct {
	LedgerStore
}

var errLedgerCaido = errors.New("ledger caído")

func (l *ledgerFalla) RegistrarMovimiento(ctx context.Context, productoID uuid.UUID, delta int, motivo string) (int, error) {
	if strings.HasPrefix(motivo, "compensación:") {
		return 0, errLedgerCaido
	}
	return l.LedgerStore.RegistrarMovimiento(ctx, productoID, delta, motivo)
}

// inventarioConflictos makes the first n versioned writes lose their
// compare-and-swap.
type inventarioConflictos struct {
	repository.InventarioRepository
	mu        sync.Mutex
	restantes int
	intentos  int
}

func (r *inventarioConflictos) UpdateVersioned(ctx context.Context, f *model.FilaInventario, version int) error {
	r.mu.Lock()
	r.intentos++
	if r.restantes > 0 {
		r.restantes--
		r.mu.Unlock()
		return repository.ErrVersionConflict
	}
	r.mu.Unlock()
	return r.InventarioRepository.UpdateVersioned(ctx, f, version)
}

// pedidosFalla rejects the state write into one target state.
type pedidosFalla struct {
	repository.PedidoRepository
	estado string
}

func (r *pedidosFalla) UpdateEstado(ctx context.Context, id uuid.UUID, estado string, version int) error {
	if estado == r.estado {
		return repository.ErrVersionConflict
	}
	return r.PedidoRepository.UpdateEstado(ctx, id, estado, version)
}

// ledgerFallaSi fails the movements falla selects.
type ledgerFallaSi struct {
	LedgerStore
	falla func(productoID uuid.UUID, motivo string) bool
}

func (l *ledgerFallaSi) RegistrarMovimiento(ctx context.Context, productoID uuid.UUID, delta int, motivo string) (int, error) {
	if l.falla(productoID, motivo) {
		return 0, errLedgerCaido
	}
	return l.LedgerStore.RegistrarMovimiento(ctx, productoID, delta, motivo)
}

// stockFalla fails the batches whose reason starts with prefijo, after the
// availability check has already passed.
type stockFalla struct {
	StockService
	prefijo string
}

func (s *stockFalla) AplicarMovimientos(ctx context.Context, movs []Movimiento, motivo string) ([]dto.MovimientoResponse, error) {
	if strings.HasPrefix(motivo, s.prefijo) {
		return nil, errLedgerCaido
	}
	return s.StockService.AplicarMovimientos(ctx, movs, motivo)
}

// ventasPausa holds the first EliminarDePedido right after the sale is gone,
// until seguir is closed.
type ventasPausa struct {
	VentaService
	once      sync.Once
	eliminada chan struct{}
	seguir    chan struct{}
}

func nuevaVentasPausa(v VentaService) *ventasPausa {
	return &ventasPausa{VentaService: v, eliminada: make(chan struct{}), seguir: make(chan struct{})}
}

func (v *ventasPausa) EliminarDePedido(ctx context.Context, pedidoID uuid.UUID) (*model.Venta, error) {
	venta, err := v.VentaService.EliminarDePedido(ctx, pedidoID)
	v.once.Do(func() {
		close(v.eliminada)
		<-v.seguir
	})
	return venta, err
}

// ── Fixture ──────────────────────────────────────────────────────────────────

type fixture struct {
	store      *repository.Store
	ahora      time.Time
	ledger     LedgerStore
	stock      StockService
	ventas     VentaService
	mesas      MesaService
	pedidos    PedidoService
	alertador  *alertadorStub
	publicador *publicadorStub
}

type opcionFixture func(f *fixture)

// conLedger rebuilds the stock service on top of a wrapped ledger. The
// fixture helpers keep using the plain ledger.
func conLedger(wrap func(LedgerStore) LedgerStore) opcionFixture {
	return func(f *fixture) {
		f.stock = NewStockService(wrap(f.ledger), f.store.Productos, f.alertador, nil)
	}
}

// conStock swaps the stock service used by the order service.
func conStock(wrap func(StockService) StockService) opcionFixture {
	return func(f *fixture) { f.stock = wrap(f.stock) }
}

// conVentas swaps the sale recorder used by the order service.
func conVentas(wrap func(VentaService) VentaService) opcionFixture {
	return func(f *fixture) { f.ventas = wrap(f.ventas) }
}

// conPedidos swaps the order repository used by the order service.
func conPedidos(wrap func(repository.PedidoRepository) repository.PedidoRepository) opcionFixture {
	return func(f *fixture) { f.store.Pedidos = wrap(f.store.Pedidos) }
}

func newFixture(t *testing.T, opts ...opcionFixture) *fixture {
	t.Helper()
	f := &fixture{
		store:      memory.NewStore(),
		ahora:      time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
		alertador:  &alertadorStub{},
		publicador: &publicadorStub{},
	}
	reloj := func() time.Time { return f.ahora }

	f.ledger = NewLedgerStore(f.store.Inventario, nil, LedgerConfig{Reloj: reloj}, nil)
	f.stock = NewStockService(f.ledger, f.store.Productos, f.alertador, nil)
	f.ventas = NewVentaService(f.store.Ventas, reloj)
	for _, o := range opts {
		o(f)
	}
	f.mesas = NewMesaService(f.store.Mesas, f.store.Pedidos, nil)
	f.pedidos = NewPedidoService(
		f.store.Pedidos, f.store.Productos, f.store.Mesas,
		f.stock, f.ventas, f.mesas, f.publicador, f.alertador, nil,
	)
	return f
}

// producto registers a catalog entry with an opening stock.
func (f *fixture) producto(t *testing.T, nombre, precio string, stock int) uuid.UUID {
	t.Helper()
	p := &model.Producto{ID: uuid.New(), Nombre: nombre, PrecioUnitario: decimal.RequireFromString(precio)}
	require.NoError(t, f.store.Productos.Create(context.Background(), p))
	if stock > 0 {
		_, err := f.ledger.RegistrarMovimiento(context.Background(), p.ID, stock, "stock inicial")
		require.NoError(t, err)
	}
	return p.ID
}

func (f *fixture) mesa(t *testing.T, numero int, estado string) {
	t.Helper()
	require.NoError(t, f.store.Mesas.Create(context.Background(), &model.Mesa{
		Numero: numero, Salon: "principal", Capacidad: 4, Estado: estado,
	}))
}

func (f *fixture) stockDe(t *testing.T, productoID uuid.UUID) int {
	t.Helper()
	n, err := f.ledger.StockActual(context.Background(), productoID)
	require.NoError(t, err)
	return n
}

func (f *fixture) estadoMesa(t *testing.T, numero int) string {
	t.Helper()
	m, err := f.store.Mesas.FindByNumero(context.Background(), numero)
	require.NoError(t, err)
	return m.Estado
}

func (f *fixture) ventasDe(t *testing.T, pedidoID uuid.UUID) int64 {
	t.Helper()
	n, err := f.store.Ventas.CountByPedidoID(context.Background(), pedidoID)
	require.NoError(t, err)
	return n
}
