package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/koouhz/beefybeer-sub000/internal/metrics"
	"github.com/koouhz/beefybeer-sub000/internal/model"
	"github.com/koouhz/beefybeer-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CacheStock is a snapshot cache of the current stock per product. The
// ledger invalidates an entry on every write; implementations are best-effort.
type CacheStock interface {
	Obtener(ctx context.Context, productoID uuid.UUID) (int, bool)
	Guardar(ctx context.Context, productoID uuid.UUID, cantidad int)
	Invalidar(ctx context.Context, productoID uuid.UUID)
}

// LedgerStore appends signed movements to the daily per-product ledger rows.
type LedgerStore interface {
	// StockActual is the CantidadActual of the product's most recent row, 0 when it has none.
	StockActual(ctx context.Context, productoID uuid.UUID) (int, error)
	// RegistrarMovimiento applies delta (positive entry, negative exit) on the
	// current period row and returns the resulting quantity. It fails with
	// *StockInsuficienteError, leaving the row untouched, when the result
	// would be negative.
	RegistrarMovimiento(ctx context.Context, productoID uuid.UUID, delta int, motivo string) (int, error)
	// DefinirUmbrales sets the optional min/max thresholds on the current row.
	DefinirUmbrales(ctx context.Context, productoID uuid.UUID, minimo, maximo *int) (*model.FilaInventario, error)
}

// LedgerConfig tunes the ledger. Zero values fall back to defaults.
type LedgerConfig struct {
	Reloj            func() time.Time
	Zona             *time.Location // defines where a daily period starts
	MaxObservaciones int            // characters kept in Observaciones
	MaxReintentos    int            // optimistic write attempts per movement
}

const (
	defaultMaxObservaciones = 2000
	defaultMaxReintentos    = 5
)

type ledgerStore struct {
	repo    repository.InventarioRepository
	cache   CacheStock
	cfg     LedgerConfig
	metrics *metrics.Metrics
	locks   sync.Map // uuid.UUID → *sync.Mutex
}

func NewLedgerStore(repo repository.InventarioRepository, cache CacheStock, cfg LedgerConfig, m *metrics.Metrics) LedgerStore {
	if cfg.Reloj == nil {
		cfg.Reloj = time.Now
	}
	if cfg.Zona == nil {
		cfg.Zona = time.UTC
	}
	if cfg.MaxObservaciones <= 0 {
		cfg.MaxObservaciones = defaultMaxObservaciones
	}
	if cfg.MaxReintentos <= 0 {
		cfg.MaxReintentos = defaultMaxReintentos
	}
	return &ledgerStore{repo: repo, cache: cache, cfg: cfg, metrics: m}
}

// periodo returns the current ledger date as midnight UTC of the local day.
func (s *ledgerStore) periodo() time.Time {
	now := s.cfg.Reloj().In(s.cfg.Zona)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *ledgerStore) lock(productoID uuid.UUID) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(productoID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *ledgerStore) StockActual(ctx context.Context, productoID uuid.UUID) (int, error) {
	if s.cache != nil {
		if n, ok := s.cache.Obtener(ctx, productoID); ok {
			return n, nil
		}
	}

	// Reading under the product lock keeps a concurrent writer from being
	// overwritten in the cache by this (older) snapshot.
	mu := s.lock(productoID)
	mu.Lock()
	defer mu.Unlock()

	cantidad := 0
	fila, err := s.repo.FindUltima(ctx, productoID)
	switch {
	case err == nil:
		cantidad = fila.CantidadActual
	case !errors.Is(err, repository.ErrNotFound):
		return 0, fmt.Errorf("leyendo inventario de %s: %w", productoID, err)
	}
	if s.cache != nil {
		s.cache.Guardar(ctx, productoID, cantidad)
	}
	return cantidad, nil
}

// ── RegistrarMovimiento ───────────────────────────────────────────────────────

func (s *ledgerStore) RegistrarMovimiento(ctx context.Context, productoID uuid.UUID, delta int, motivo string) (int, error) {
	if delta == 0 {
		return 0, fmt.Errorf("%w: el movimiento no puede ser cero", ErrCantidadInvalida)
	}

	fila, err := s.mutarPeriodo(ctx, productoID, func(f *model.FilaInventario) error {
		nuevo := f.CantidadActual + delta
		if nuevo < 0 {
			return &StockInsuficienteError{Faltantes: []Faltante{{
				ProductoID: productoID,
				Requerido:  -delta,
				Disponible: f.CantidadActual,
			}}}
		}
		f.CantidadActual = nuevo
		if delta > 0 {
			f.Entradas += delta
		} else {
			f.Salidas -= delta
		}
		f.Observaciones = s.anotar(f.Observaciones, fmt.Sprintf("%+d %s", delta, motivo))
		return nil
	})
	s.metrics.RecordMovimiento(ctx, delta, err == nil)
	if err != nil {
		return 0, err
	}

	if fila.StockMinimo != nil && fila.CantidadActual <= *fila.StockMinimo {
		log.Warn().
			Str("producto_id", productoID.String()).
			Int("cantidad_actual", fila.CantidadActual).
			Int("stock_minimo", *fila.StockMinimo).
			Msg("stock en o por debajo del mínimo")
	}
	return fila.CantidadActual, nil
}

// ── DefinirUmbrales ───────────────────────────────────────────────────────────

func (s *ledgerStore) DefinirUmbrales(ctx context.Context, productoID uuid.UUID, minimo, maximo *int) (*model.FilaInventario, error) {
	if (minimo != nil && *minimo < 0) || (maximo != nil && *maximo < 0) {
		return nil, fmt.Errorf("%w: los umbrales no pueden ser negativos", ErrCantidadInvalida)
	}
	if minimo != nil && maximo != nil && *minimo > *maximo {
		return nil, fmt.Errorf("%w: el mínimo supera al máximo", ErrCantidadInvalida)
	}

	return s.mutarPeriodo(ctx, productoID, func(f *model.FilaInventario) error {
		f.StockMinimo = copiarInt(minimo)
		f.StockMaximo = copiarInt(maximo)
		f.Observaciones = s.anotar(f.Observaciones,
			fmt.Sprintf("umbrales min=%s max=%s", formatearUmbral(minimo), formatearUmbral(maximo)))
		return nil
	})
}

// mutarPeriodo serializes writers of one product in this process and retries
// when another process won the compare-and-swap on the same row.
func (s *ledgerStore) mutarPeriodo(ctx context.Context, productoID uuid.UUID, mutar func(f *model.FilaInventario) error) (*model.FilaInventario, error) {
	mu := s.lock(productoID)
	mu.Lock()
	defer mu.Unlock()

	for intento := 1; intento <= s.cfg.MaxReintentos; intento++ {
		fila, err := s.escribirPeriodo(ctx, productoID, mutar)
		if errors.Is(err, repository.ErrVersionConflict) || errors.Is(err, repository.ErrDuplicate) {
			log.Debug().
				Str("producto_id", productoID.String()).
				Int("intento", intento).
				Msg("conflicto de versión en inventario, reintentando")
			continue
		}
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.Invalidar(ctx, productoID)
		}
		return fila, nil
	}
	return nil, fmt.Errorf("inventario de %s: %w", productoID, ErrConflictoConcurrente)
}

// escribirPeriodo applies mutar to the current period row, seeding a new row
// from the latest prior one (or zero) when the period has none yet. Nothing
// is written when mutar fails.
func (s *ledgerStore) escribirPeriodo(ctx context.Context, productoID uuid.UUID, mutar func(f *model.FilaInventario) error) (*model.FilaInventario, error) {
	fecha := s.periodo()

	fila, err := s.repo.FindByProductoFecha(ctx, productoID, fecha)
	if err == nil {
		version := fila.Version
		if err := mutar(fila); err != nil {
			return nil, err
		}
		if err := s.repo.UpdateVersioned(ctx, fila, version); err != nil {
			return nil, err
		}
		return fila, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	fila = &model.FilaInventario{ID: uuid.New(), ProductoID: productoID, Fecha: fecha}
	prev, err := s.repo.FindAnterior(ctx, productoID, fecha)
	switch {
	case err == nil:
		fila.CantidadActual = prev.CantidadActual
		fila.StockMinimo = copiarInt(prev.StockMinimo)
		fila.StockMaximo = copiarInt(prev.StockMaximo)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	if err := mutar(fila); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, fila); err != nil {
		return nil, err
	}
	return fila, nil
}

// anotar appends a timestamped line to the observations, dropping the oldest
// lines once the cap is exceeded.
func (s *ledgerStore) anotar(obs, texto string) string {
	texto = strings.Join(strings.Fields(texto), " ")
	linea := fmt.Sprintf("[%s] %s", s.cfg.Reloj().UTC().Format(time.RFC3339), texto)
	if obs != "" {
		obs += "\n"
	}
	return truncarObservaciones(obs+linea, s.cfg.MaxObservaciones)
}

func truncarObservaciones(obs string, max int) string {
	for utf8.RuneCountInString(obs) > max {
		i := strings.IndexByte(obs, '\n')
		if i < 0 {
			r := []rune(obs)
			return string(r[len(r)-max:])
		}
		obs = obs[i+1:]
	}
	return obs
}

func copiarInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func formatearUmbral(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}
