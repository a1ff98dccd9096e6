package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/koouhz/beefybeer-sub000/internal/dto"
	"github.com/koouhz/beefybeer-sub000/internal/model"
	"github.com/koouhz/beefybeer-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func crearPedido(t *testing.T, f *fixture, mesa int, items ...dto.ItemPedidoRequest) *dto.PedidoResponse {
	t.Helper()
	resp, err := f.pedidos.CrearPedido(context.Background(), dto.CrearPedidoRequest{
		MesaNumero: mesa,
		PersonalID: uuid.NewString(),
		Items:      items,
	})
	require.NoError(t, err)
	return resp
}

func item(productoID uuid.UUID, cantidad int) dto.ItemPedidoRequest {
	return dto.ItemPedidoRequest{ProductoID: productoID.String(), Cantidad: cantidad}
}

// Full cycle: open, pay, double pay, shortfall on a second order, revert.
func TestPedido_CicloCompleto(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mesa(t, 5, model.MesaLibre)
	burger := f.producto(t, "Burger", "10.00", 20)

	// 1. Opening an order occupies the table; stock is untouched until payment.
	o1 := crearPedido(t, f, 5, item(burger, 2))
	assert.Equal(t, model.EstadoPendiente, o1.Estado)
	assert.True(t, decimal.NewFromInt(20).Equal(o1.Total))
	assert.Equal(t, model.MesaOcupada, f.estadoMesa(t, 5))
	assert.Equal(t, 20, f.stockDe(t, burger))

	o1ID := uuid.MustParse(o1.ID)

	// 2. Paying creates the sale, discounts stock and frees the table.
	pagado, err := f.pedidos.CambiarEstado(ctx, o1ID, model.EstadoPagado)
	require.NoError(t, err)
	assert.Equal(t, model.EstadoPagado, pagado.Estado)
	venta, err := f.ventas.ObtenerPorPedido(ctx, o1ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(venta.MontoTotal))
	assert.Equal(t, 18, f.stockDe(t, burger))
	assert.Equal(t, model.MesaLibre, f.estadoMesa(t, 5))

	// 3. A second payment is a duplicate.
	_, err = f.pedidos.CambiarEstado(ctx, o1ID, model.EstadoPagado)
	assert.ErrorIs(t, err, ErrVentaDuplicada)
	assert.Equal(t, 18, f.stockDe(t, burger))
	assert.EqualValues(t, 1, f.ventasDe(t, o1ID))

	// 4. An order larger than the stock cannot be paid.
	o2 := crearPedido(t, f, 5, item(burger, 25))
	o2ID := uuid.MustParse(o2.ID)
	reporte, err := f.stock.VerificarDisponibilidad(ctx, []ItemStock{{ProductoID: burger, Cantidad: 25}})
	require.NoError(t, err)
	require.Len(t, reporte.Faltantes, 1)
	assert.Equal(t, 25, reporte.Faltantes[0].Requerido)
	assert.Equal(t, 18, reporte.Faltantes[0].Disponible)

	_, err = f.pedidos.CambiarEstado(ctx, o2ID, model.EstadoPagado)
	require.ErrorIs(t, err, ErrStockInsuficiente)
	assert.Equal(t, 18, f.stockDe(t, burger))
	assert.Zero(t, f.ventasDe(t, o2ID))
	o2Actual, err := f.pedidos.ObtenerPedido(ctx, o2ID)
	require.NoError(t, err)
	assert.Equal(t, model.EstadoPendiente, o2Actual.Estado)

	// 5. Reverting the payment deletes the sale and restores the stock.
	revertido, err := f.pedidos.CambiarEstado(ctx, o1ID, model.EstadoPendiente)
	require.NoError(t, err)
	assert.Equal(t, model.EstadoPendiente, revertido.Estado)
	assert.Zero(t, f.ventasDe(t, o1ID))
	assert.Equal(t, 20, f.stockDe(t, burger))
	assert.Equal(t, model.MesaOcupada, f.estadoMesa(t, 5))
}

func TestPedido_PagoMantieneMesaOcupadaConOtroPedidoActivo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mesa(t, 3, model.MesaLibre)
	burger := f.producto(t, "Burger", "10.00", 20)

	o1 := crearPedido(t, f, 3, item(burger, 1))
	crearPedido(t, f, 3, item(burger, 1))

	_, err := f.pedidos.CambiarEstado(ctx, uuid.MustParse(o1.ID), model.EstadoPagado)
	require.NoError(t, err)
	assert.Equal(t, model.MesaOcupada, f.estadoMesa(t, 3))
}

func TestPedido_CancelarLiberaMesaSinTocarStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mesa(t, 2, model.MesaLibre)
	burger := f.producto(t, "Burger", "10.00", 5)
	o := crearPedido(t, f, 2, item(burger, 3))

	resp, err := f.pedidos.CambiarEstado(ctx, uuid.MustParse(o.ID), model.EstadoCancelado)
	require.NoError(t, err)
	assert.Equal(t, model.EstadoCancelado, resp.Estado)
	assert.Empty(t, resp.SiguientesEstados)
	assert.Equal(t, model.MesaLibre, f.estadoMesa(t, 2))
	assert.Equal(t, 5, f.stockDe(t, burger))

	_, err = f.pedidos.CambiarEstado(ctx, uuid.MustParse(o.ID), model.EstadoPendiente)
	var te *TransicionInvalidaError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, model.EstadoCancelado, te.Desde)
	assert.ErrorIs(t, err, ErrTransicionInvalida)
}

func TestPedido_EstadoDesconocido(t *testing.T) {
	f := newFixture(t)
	f.mesa(t, 1, model.MesaLibre)
	o := crearPedido(t, f, 1)

	_, err := f.pedidos.CambiarEstado(context.Background(), uuid.MustParse(o.ID), "entregado")
	assert.ErrorIs(t, err, ErrEstadoInvalido)
}

func TestPedido_PagarSinItems(t *testing.T) {
	f := newFixture(t)
	f.mesa(t, 1, model.MesaLibre)
	o := crearPedido(t, f, 1)

	_, err := f.pedidos.CambiarEstado(context.Background(), uuid.MustParse(o.ID), model.EstadoPagado)
	assert.ErrorIs(t, err, ErrPedidoSinItems)
}

func TestPedido_CrearValidaMesaYProductos(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mesa(t, 1, model.MesaLibre)

	_, err := f.pedidos.CrearPedido(ctx, dto.CrearPedidoRequest{MesaNumero: 99, PersonalID: uuid.NewString()})
	assert.ErrorIs(t, err, ErrNoEncontrado)

	_, err = f.pedidos.CrearPedido(ctx, dto.CrearPedidoRequest{
		MesaNumero: 1,
		PersonalID: uuid.NewString(),
		Items:      []dto.ItemPedidoRequest{item(uuid.New(), 1)},
	})
	assert.ErrorIs(t, err, ErrNoEncontrado)

	lista, err := f.pedidos.ListarPedidos(ctx, dto.PedidoFilter{Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.Zero(t, lista.Total, "nada se escribe si una línea es inválida")
}

func TestPedido_PrecioCongeladoAlAgregar(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mesa(t, 1, model.MesaLibre)
	burger := f.producto(t, "Burger", "12.50", 10)
	o := crearPedido(t, f, 1, item(burger, 2))

	resp, err := f.pedidos.AgregarItem(ctx, uuid.MustParse(o.ID), item(burger, 1))
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.True(t, decimal.RequireFromString("12.50").Equal(resp.Items[1].PrecioUnitario))
	assert.True(t, decimal.RequireFromString("37.50").Equal(resp.Total))
	assert.Equal(t, "Burger", resp.Items[0].Producto)

	resp, err = f.pedidos.QuitarItem(ctx, uuid.MustParse(o.ID), uuid.MustParse(resp.Items[0].ID))
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.True(t, decimal.RequireFromString("12.50").Equal(resp.Total))

	_, err = f.pedidos.QuitarItem(ctx, uuid.MustParse(o.ID), uuid.New())
	assert.ErrorIs(t, err, ErrNoEncontrado)
}

func TestPedido_NoEditableDespuesDePagar(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mesa(t, 1, model.MesaLibre)
	burger := f.producto(t, "Burger", "10.00", 10)
	o := crearPedido(t, f, 1, item(burger, 1))
	id := uuid.MustParse(o.ID)

	_, err := f.pedidos.CambiarEstado(ctx, id, model.EstadoPagado)
	require.NoError(t, err)

	_, err = f.pedidos.AgregarItem(ctx, id, item(burger, 1))
	assert.ErrorIs(t, err, ErrPedidoCerrado)
	_, err = f.pedidos.QuitarItem(ctx, id, uuid.MustParse(o.Items[0].ID))
	assert.ErrorIs(t, err, ErrPedidoCerrado)
}

func TestPedido_EliminarConVentaFalla(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mesa(t, 4, model.MesaLibre)
	burger := f.producto(t, "Burger", "10.00", 10)
	o := crearPedido(t, f, 4, item(burger, 2))
	id := uuid.MustParse(o.ID)

	_, err := f.pedidos.CambiarEstado(ctx, id, model.EstadoPagado)
	require.NoError(t, err)

	err = f.pedidos.EliminarPedido(ctx, id)
	require.ErrorIs(t, err, ErrPedidoConVenta)

	// Reverting removes the sale; the order can then be deleted.
	_, err = f.pedidos.CambiarEstado(ctx, id, model.EstadoListo)
	require.NoError(t, err)
	require.NoError(t, f.pedidos.EliminarPedido(ctx, id))

	_, err = f.pedidos.ObtenerPedido(ctx, id)
	assert.ErrorIs(t, err, ErrNoEncontrado)
	assert.Equal(t, 10, f.stockDe(t, burger))
	assert.Equal(t, model.MesaLibre, f.estadoMesa(t, 4))
}

func TestPedido_EliminarLiberaMesa(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mesa(t, 6, model.MesaLibre)
	o := crearPedido(t, f, 6)
	assert.Equal(t, model.MesaOcupada, f.estadoMesa(t, 6))

	require.NoError(t, f.pedidos.EliminarPedido(ctx, uuid.MustParse(o.ID)))
	assert.Equal(t, model.MesaLibre, f.estadoMesa(t, 6))
	assert.Equal(t, []string{"creado", "eliminado"}, f.publicador.tipos())
}

func TestPedido_PublicaTransiciones(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mesa(t, 1, model.MesaLibre)
	burger := f.producto(t, "Burger", "10.00", 10)
	o := crearPedido(t, f, 1, item(burger, 1))

	_, err := f.pedidos.CambiarEstado(ctx, uuid.MustParse(o.ID), model.EstadoPreparacion)
	require.NoError(t, err)

	require.Equal(t, []string{"creado", "estado_cambiado"}, f.publicador.tipos())
	ev := f.publicador.eventos[1]
	assert.Equal(t, model.EstadoPendiente, ev.Desde)
	assert.Equal(t, model.EstadoPreparacion, ev.Hacia)
	assert.Equal(t, 1, ev.MesaNumero)
}

func TestPedido_FalloAlPersistirPagoCompensa(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, conPedidos(func(r repository.PedidoRepository) repository.PedidoRepository {
		return &pedidosFalla{PedidoRepository: r, estado: model.EstadoPagado}
	}))
	f.mesa(t, 1, model.MesaLibre)
	burger := f.producto(t, "Burger", "10.00", 10)
	o := crearPedido(t, f, 1, item(burger, 3))
	id := uuid.MustParse(o.ID)

	_, err := f.pedidos.CambiarEstado(ctx, id, model.EstadoPagado)
	require.ErrorIs(t, err, ErrConflictoConcurrente)

	assert.Equal(t, 10, f.stockDe(t, burger))
	assert.Zero(t, f.ventasDe(t, id))
	assert.Zero(t, f.alertador.total())
	actual, err := f.pedidos.ObtenerPedido(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.EstadoPendiente, actual.Estado)
}

func TestPedido_PagosConcurrentesUnaSolaVenta(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mesa(t, 1, model.MesaLibre)
	burger := f.producto(t, "Burger", "10.00", 10)
	o := crearPedido(t, f, 1, item(burger, 2))
	id := uuid.MustParse(o.ID)

	const intentos = 8
	errs := make([]error, intentos)
	var wg sync.WaitGroup
	for i := 0; i < intentos; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.pedidos.CambiarEstado(ctx, id, model.EstadoPagado)
		}(i)
	}
	wg.Wait()

	exitos := 0
	for _, err := range errs {
		if err == nil {
			exitos++
			continue
		}
		assert.True(t, errors.Is(err, ErrVentaDuplicada), "error inesperado: %v", err)
	}
	assert.Equal(t, 1, exitos)
	assert.EqualValues(t, 1, f.ventasDe(t, id))
	assert.Equal(t, 8, f.stockDe(t, burger))
}

func TestPedido_ListarFiltraPorMesaYEstado(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mesa(t, 1, model.MesaLibre)
	f.mesa(t, 2, model.MesaLibre)
	crearPedido(t, f, 1)
	crearPedido(t, f, 1)
	o := crearPedido(t, f, 2)
	_, err := f.pedidos.CambiarEstado(ctx, uuid.MustParse(o.ID), model.EstadoCancelado)
	require.NoError(t, err)

	mesa := 1
	lista, err := f.pedidos.ListarPedidos(ctx, dto.PedidoFilter{Mesa: &mesa, Page: 1, Limit: 50})
	require.NoError(t, err)
	assert.EqualValues(t, 2, lista.Total)

	lista, err = f.pedidos.ListarPedidos(ctx, dto.PedidoFilter{Estado: model.EstadoCancelado, Page: 1, Limit: 50})
	require.NoError(t, err)
	require.EqualValues(t, 1, lista.Total)
	assert.Equal(t, o.ID, lista.Data[0].ID)
}

func estadoPedido(t *testing.T, f *fixture, id uuid.UUID) string {
	t.Helper()
	p, err := f.pedidos.ObtenerPedido(context.Background(), id)
	require.NoError(t, err)
	return p.Estado
}

func TestPedido_ReversionesConcurrentesSoloUnaAplica(t *testing.T) {
	ctx := context.Background()
	var pausa *ventasPausa
	f := newFixture(t, conVentas(func(v VentaService) VentaService {
		pausa = nuevaVentasPausa(v)
		return pausa
	}))
	f.mesa(t, 1, model.MesaLibre)
	burger := f.producto(t, "Burger", "10.00", 10)
	id := uuid.MustParse(crearPedido(t, f, 1, item(burger, 2)).ID)
	_, err := f.pedidos.CambiarEstado(ctx, id, model.EstadoPagado)
	require.NoError(t, err)
	require.Equal(t, 8, f.stockDe(t, burger))

	errA := make(chan error, 1)
	go func() {
		_, err := f.pedidos.CambiarEstado(ctx, id, model.EstadoListo)
		errA <- err
	}()
	<-pausa.eliminada

	// The first reversal holds the order: its sale is gone, its stock not
	// yet back.
	_, errB := f.pedidos.CambiarEstado(ctx, id, model.EstadoListo)
	close(pausa.seguir)

	require.NoError(t, <-errA)
	assert.Error(t, errB)
	assert.Equal(t, model.EstadoListo, estadoPedido(t, f, id))
	assert.Zero(t, f.ventasDe(t, id))
	assert.Equal(t, 10, f.stockDe(t, burger))
	assert.Zero(t, f.alertador.total())

	// Not stuck: it can be paid again.
	_, err = f.pedidos.CambiarEstado(ctx, id, model.EstadoPagado)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.ventasDe(t, id))
	assert.Equal(t, 8, f.stockDe(t, burger))
}

func TestPedido_ReversionConVersionViejaNoTocaNada(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, conPedidos(func(r repository.PedidoRepository) repository.PedidoRepository {
		return &pedidosFalla{PedidoRepository: r, estado: model.EstadoListo}
	}))
	f.mesa(t, 1, model.MesaLibre)
	burger := f.producto(t, "Burger", "10.00", 10)
	id := uuid.MustParse(crearPedido(t, f, 1, item(burger, 2)).ID)
	_, err := f.pedidos.CambiarEstado(ctx, id, model.EstadoPagado)
	require.NoError(t, err)

	_, err = f.pedidos.CambiarEstado(ctx, id, model.EstadoListo)
	require.ErrorIs(t, err, ErrConflictoConcurrente)

	assert.Equal(t, model.EstadoPagado, estadoPedido(t, f, id))
	assert.EqualValues(t, 1, f.ventasDe(t, id))
	assert.Equal(t, 8, f.stockDe(t, burger))
}

func TestPedido_FalloDeStockAlCobrarEliminaLaVenta(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, conStock(func(s StockService) StockService {
		return &stockFalla{StockService: s, prefijo: "Venta pedido"}
	}))
	f.mesa(t, 1, model.MesaLibre)
	burger := f.producto(t, "Burger", "10.00", 10)
	id := uuid.MustParse(crearPedido(t, f, 1, item(burger, 3)).ID)
	require.Zero(t, f.ventasDe(t, id))

	_, err := f.pedidos.CambiarEstado(ctx, id, model.EstadoPagado)
	require.ErrorIs(t, err, errLedgerCaido)

	assert.Zero(t, f.ventasDe(t, id), "la venta creada se revierte")
	assert.Equal(t, 10, f.stockDe(t, burger))
	assert.Equal(t, model.EstadoPendiente, estadoPedido(t, f, id))
	assert.Zero(t, f.alertador.total())
}

func TestPedido_FalloAlReponerStockRestauraVentaYEstado(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, conStock(func(s StockService) StockService {
		return &stockFalla{StockService: s, prefijo: "Reversión venta"}
	}))
	f.mesa(t, 1, model.MesaLibre)
	burger := f.producto(t, "Burger", "10.00", 10)
	id := uuid.MustParse(crearPedido(t, f, 1, item(burger, 2)).ID)
	_, err := f.pedidos.CambiarEstado(ctx, id, model.EstadoPagado)
	require.NoError(t, err)
	require.EqualValues(t, 1, f.ventasDe(t, id))

	_, err = f.pedidos.CambiarEstado(ctx, id, model.EstadoPendiente)
	require.ErrorIs(t, err, errLedgerCaido)

	assert.EqualValues(t, 1, f.ventasDe(t, id), "la venta eliminada se restaura")
	assert.Equal(t, 8, f.stockDe(t, burger))
	assert.Equal(t, model.EstadoPagado, estadoPedido(t, f, id))
	assert.Zero(t, f.alertador.total())
}

func TestPedido_CompensacionAnidadaFallidaSeReportaUnaVez(t *testing.T) {
	ctx := context.Background()
	var papas uuid.UUID
	f := newFixture(t,
		conPedidos(func(r repository.PedidoRepository) repository.PedidoRepository {
			return &pedidosFalla{PedidoRepository: r, estado: model.EstadoPagado}
		}),
		conLedger(func(l LedgerStore) LedgerStore {
			return &ledgerFallaSi{LedgerStore: l, falla: func(id uuid.UUID, motivo string) bool {
				return strings.HasPrefix(motivo, "compensación:") ||
					(id == papas && strings.HasPrefix(motivo, "Anulación"))
			}}
		}),
	)
	f.mesa(t, 1, model.MesaLibre)
	burger := f.producto(t, "Burger", "10.00", 10)
	papas = f.producto(t, "Papas", "4.00", 5)
	id := uuid.MustParse(crearPedido(t, f, 1, item(burger, 2), item(papas, 2)).ID)

	_, err := f.pedidos.CambiarEstado(ctx, id, model.EstadoPagado)
	require.ErrorIs(t, err, ErrCompensacionFallida)

	var cf *CompensacionFallidaError
	require.ErrorAs(t, err, &cf)
	assert.Equal(t, "cobrar", cf.Tipo)
	assert.ErrorIs(t, cf.Causa, ErrConflictoConcurrente)

	require.Equal(t, 1, f.alertador.total(), "solo la saga externa reporta")
	inc := f.alertador.incidentes[0]
	assert.Equal(t, "cobrar", inc.Tipo)
	assert.Contains(t, inc.Operacion, id.String())
	require.Len(t, inc.Fallos, 1)
	assert.Contains(t, inc.Fallos[0], "reponer stock")

	assert.Zero(t, f.ventasDe(t, id))
	assert.Equal(t, 10, f.stockDe(t, burger), "la reposición de Burger no pudo deshacerse")
	assert.Equal(t, 3, f.stockDe(t, papas))
}
