package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/repository"
	"github.com/koouhz/beefybeer-sub000/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cacheStub struct {
	mu          sync.Mutex
	valores     map[uuid.UUID]int
	invalidados int
}

func newCacheStub() *cacheStub { return &cacheStub{valores: make(map[uuid.UUID]int)} }

func (c *cacheStub) Obtener(_ context.Context, id uuid.UUID) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.valores[id]
	return n, ok
}

func (c *cacheStub) Guardar(_ context.Context, id uuid.UUID, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valores[id] = n
}

func (c *cacheStub) Invalidar(_ context.Context, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.valores, id)
	c.invalidados++
}

type relojManual struct{ ahora time.Time }

func (r *relojManual) now() time.Time { return r.ahora }

func dia(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestLedger_StockSinFilasEsCero(t *testing.T) {
	ledger := NewLedgerStore(memory.NewStore().Inventario, nil, LedgerConfig{}, nil)

	n, err := ledger.StockActual(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLedger_MovimientosAcumulanEnLaFilaDelDia(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	reloj := &relojManual{ahora: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	ledger := NewLedgerStore(store.Inventario, nil, LedgerConfig{Reloj: reloj.now}, nil)
	id := uuid.New()

	n, err := ledger.RegistrarMovimiento(ctx, id, 10, "compra")
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	n, err = ledger.RegistrarMovimiento(ctx, id, -4, "Venta pedido X")
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	fila, err := store.Inventario.FindByProductoFecha(ctx, id, dia(2026, 3, 10))
	require.NoError(t, err)
	assert.Equal(t, 10, fila.Entradas)
	assert.Equal(t, 4, fila.Salidas)
	assert.Equal(t, 6, fila.CantidadActual)
	assert.Equal(t,
		"[2026-03-10T09:00:00Z] +10 compra\n[2026-03-10T09:00:00Z] -4 Venta pedido X",
		fila.Observaciones)
}

func TestLedger_NuevoPeriodoArrastraCantidadYUmbrales(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	reloj := &relojManual{ahora: time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)}
	ledger := NewLedgerStore(store.Inventario, nil, LedgerConfig{Reloj: reloj.now}, nil)
	id := uuid.New()

	_, err := ledger.RegistrarMovimiento(ctx, id, 10, "compra")
	require.NoError(t, err)
	minimo, maximo := 5, 50
	_, err = ledger.DefinirUmbrales(ctx, id, &minimo, &maximo)
	require.NoError(t, err)

	reloj.ahora = reloj.ahora.Add(24 * time.Hour)
	n, err := ledger.RegistrarMovimiento(ctx, id, -3, "venta")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	hoy, err := store.Inventario.FindByProductoFecha(ctx, id, dia(2026, 3, 11))
	require.NoError(t, err)
	assert.Equal(t, 0, hoy.Entradas)
	assert.Equal(t, 3, hoy.Salidas)
	assert.Equal(t, 7, hoy.CantidadActual)
	require.NotNil(t, hoy.StockMinimo)
	require.NotNil(t, hoy.StockMaximo)
	assert.Equal(t, 5, *hoy.StockMinimo)
	assert.Equal(t, 50, *hoy.StockMaximo)

	ayer, err := store.Inventario.FindByProductoFecha(ctx, id, dia(2026, 3, 10))
	require.NoError(t, err)
	assert.Equal(t, 10, ayer.CantidadActual, "la fila anterior no se modifica")

	actual, err := ledger.StockActual(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 7, actual)
}

func TestLedger_PeriodoSegunZonaConfigurada(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	// 02:00 UTC is still the previous day four hours west of Greenwich.
	reloj := &relojManual{ahora: time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)}
	ledger := NewLedgerStore(store.Inventario, nil, LedgerConfig{
		Reloj: reloj.now,
		Zona:  time.FixedZone("UTC-4", -4*3600),
	}, nil)
	id := uuid.New()

	_, err := ledger.RegistrarMovimiento(ctx, id, 1, "compra")
	require.NoError(t, err)

	_, err = store.Inventario.FindByProductoFecha(ctx, id, dia(2026, 3, 9))
	assert.NoError(t, err)
}

func TestLedger_RechazaStockNegativo(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ledger := NewLedgerStore(store.Inventario, nil, LedgerConfig{}, nil)
	id := uuid.New()

	_, err := ledger.RegistrarMovimiento(ctx, id, 2, "compra")
	require.NoError(t, err)

	_, err = ledger.RegistrarMovimiento(ctx, id, -3, "venta")
	require.ErrorIs(t, err, ErrStockInsuficiente)
	var se *StockInsuficienteError
	require.ErrorAs(t, err, &se)
	require.Len(t, se.Faltantes, 1)
	assert.Equal(t, id, se.Faltantes[0].ProductoID)
	assert.Equal(t, 3, se.Faltantes[0].Requerido)
	assert.Equal(t, 2, se.Faltantes[0].Disponible)

	fila, err := store.Inventario.FindUltima(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, fila.CantidadActual)
	assert.Equal(t, 0, fila.Salidas)
}

func TestLedger_SalidaSinHistorialFalla(t *testing.T) {
	store := memory.NewStore()
	ledger := NewLedgerStore(store.Inventario, nil, LedgerConfig{}, nil)
	id := uuid.New()

	_, err := ledger.RegistrarMovimiento(context.Background(), id, -1, "venta")
	require.ErrorIs(t, err, ErrStockInsuficiente)

	_, err = store.Inventario.FindUltima(context.Background(), id)
	assert.ErrorIs(t, err, repository.ErrNotFound, "no se crea fila para un movimiento rechazado")
}

func TestLedger_MovimientoCeroInvalido(t *testing.T) {
	ledger := NewLedgerStore(memory.NewStore().Inventario, nil, LedgerConfig{}, nil)

	_, err := ledger.RegistrarMovimiento(context.Background(), uuid.New(), 0, "nada")
	assert.ErrorIs(t, err, ErrCantidadInvalida)
}

func TestLedger_UmbralesInvalidos(t *testing.T) {
	ledger := NewLedgerStore(memory.NewStore().Inventario, nil, LedgerConfig{}, nil)
	id := uuid.New()
	negativo, diez, cinco := -1, 10, 5

	_, err := ledger.DefinirUmbrales(context.Background(), id, &negativo, nil)
	assert.ErrorIs(t, err, ErrCantidadInvalida)

	_, err = ledger.DefinirUmbrales(context.Background(), id, &diez, &cinco)
	assert.ErrorIs(t, err, ErrCantidadInvalida)
}

func TestLedger_ObservacionesSeTruncanDesdeLasMasViejas(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ledger := NewLedgerStore(store.Inventario, nil, LedgerConfig{MaxObservaciones: 100}, nil)
	id := uuid.New()

	for i := 0; i < 10; i++ {
		_, err := ledger.RegistrarMovimiento(ctx, id, 1, "compra lote "+string(rune('a'+i)))
		require.NoError(t, err)
	}

	fila, err := store.Inventario.FindUltima(ctx, id)
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(fila.Observaciones)), 100)
	assert.True(t, strings.HasSuffix(fila.Observaciones, "compra lote j"))
	assert.True(t, strings.HasPrefix(fila.Observaciones, "["), "se descartan líneas completas")
	assert.NotContains(t, fila.Observaciones, "compra lote a")
	assert.Equal(t, 10, fila.CantidadActual)
}

func TestTruncarObservaciones(t *testing.T) {
	assert.Equal(t, "abc", truncarObservaciones("abc", 10))
	assert.Equal(t, "dos\ntres", truncarObservaciones("uno\ndos\ntres", 8))
	assert.Equal(t, "6789", truncarObservaciones("0123456789", 4))
}

func TestLedger_ReintentaConflictosDeVersion(t *testing.T) {
	ctx := context.Background()
	repo := &inventarioConflictos{InventarioRepository: memory.NewStore().Inventario}
	ledger := NewLedgerStore(repo, nil, LedgerConfig{MaxReintentos: 3}, nil)
	id := uuid.New()

	_, err := ledger.RegistrarMovimiento(ctx, id, 5, "compra")
	require.NoError(t, err)

	repo.restantes = 2
	n, err := ledger.RegistrarMovimiento(ctx, id, 1, "compra")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, 3, repo.intentos)
}

func TestLedger_AgotaReintentos(t *testing.T) {
	ctx := context.Background()
	repo := &inventarioConflictos{InventarioRepository: memory.NewStore().Inventario}
	ledger := NewLedgerStore(repo, nil, LedgerConfig{MaxReintentos: 2}, nil)
	id := uuid.New()

	_, err := ledger.RegistrarMovimiento(ctx, id, 5, "compra")
	require.NoError(t, err)

	repo.restantes = 10
	_, err = ledger.RegistrarMovimiento(ctx, id, -1, "venta")
	require.ErrorIs(t, err, ErrConflictoConcurrente)
	assert.Equal(t, 2, repo.intentos)

	repo.restantes = 0
	n, err := ledger.StockActual(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestLedger_CacheSeInvalidaEnCadaEscritura(t *testing.T) {
	ctx := context.Background()
	cache := newCacheStub()
	ledger := NewLedgerStore(memory.NewStore().Inventario, cache, LedgerConfig{}, nil)
	id := uuid.New()

	_, err := ledger.RegistrarMovimiento(ctx, id, 8, "compra")
	require.NoError(t, err)

	n, err := ledger.StockActual(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	cached, ok := cache.Obtener(ctx, id)
	require.True(t, ok)
	assert.Equal(t, 8, cached)

	_, err = ledger.RegistrarMovimiento(ctx, id, -2, "venta")
	require.NoError(t, err)
	_, ok = cache.Obtener(ctx, id)
	assert.False(t, ok)
	assert.Equal(t, 2, cache.invalidados)

	n, err = ledger.StockActual(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestLedger_MovimientosConcurrentesNoPierdenEscrituras(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedgerStore(memory.NewStore().Inventario, nil, LedgerConfig{}, nil)
	id := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.RegistrarMovimiento(ctx, id, 1, "compra")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	n, err := ledger.StockActual(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}
