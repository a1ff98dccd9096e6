package infra

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const stockKeyPrefix = "stock:"

// StockCache keeps current-stock snapshots in Redis under stock:<producto_id>.
// Every operation goes through the circuit breaker and never fails the
// caller: a miss or an error simply sends the read to the store.
type StockCache struct {
	rdb *redis.Client
	cb  *Circuito
	ttl time.Duration
}

func NewStockCache(rdb *redis.Client, cb *Circuito, ttl time.Duration) *StockCache {
	if cb == nil {
		cb = NewCircuito(CircuitoConfig{Nombre: "redis_stock"})
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &StockCache{rdb: rdb, cb: cb, ttl: ttl}
}

func stockKey(productoID uuid.UUID) string {
	return stockKeyPrefix + productoID.String()
}

// Obtener returns the cached quantity, if present.
func (c *StockCache) Obtener(ctx context.Context, productoID uuid.UUID) (int, bool) {
	var cantidad int
	hit := false
	err := c.cb.Ejecutar(func() error {
		val, err := c.rdb.Get(ctx, stockKey(productoID)).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("stock cache: valor corrupto %q: %w", val, err)
		}
		cantidad, hit = n, true
		return nil
	})
	if err != nil {
		c.logError(err, "get", productoID)
		return 0, false
	}
	return cantidad, hit
}

func (c *StockCache) Guardar(ctx context.Context, productoID uuid.UUID, cantidad int) {
	err := c.cb.Ejecutar(func() error {
		return c.rdb.Set(ctx, stockKey(productoID), cantidad, c.ttl).Err()
	})
	if err != nil {
		c.logError(err, "set", productoID)
	}
}

// Invalidar drops the snapshot after a ledger write. When Redis is
// unreachable the stale entry expires with its TTL.
func (c *StockCache) Invalidar(ctx context.Context, productoID uuid.UUID) {
	err := c.cb.Ejecutar(func() error {
		return c.rdb.Del(context.WithoutCancel(ctx), stockKey(productoID)).Err()
	})
	if err != nil {
		c.logError(err, "del", productoID)
	}
}

// logError skips fast-failed calls: the circuit already logged opening.
func (c *StockCache) logError(err error, op string, productoID uuid.UUID) {
	if errors.Is(err, ErrCircuitoAbierto) {
		return
	}
	log.Warn().Err(err).
		Str("op", op).
		Str("key", stockKey(productoID)).
		Str("producto_id", productoID.String()).
		Str("circuito", c.cb.Nombre()).
		Str("estado_circuito", c.cb.Estado().String()).
		Msg("stock cache: redis no disponible, se lee del almacén")
}
