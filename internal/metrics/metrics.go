// Package metrics exposes the engine's OpenTelemetry instruments. Every method
// is safe on a nil *Metrics so services can run without instrumentation.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/koouhz/beefybeer-sub000"

// Metrics holds the counters and histograms recorded by the services.
type Metrics struct {
	transiciones           metric.Int64Counter
	duracionTransicion     metric.Float64Histogram
	movimientos            metric.Int64Counter
	compensaciones         metric.Int64Counter
	compensacionesFallidas metric.Int64Counter
	mesasReconciliadas     metric.Int64Counter
	cambiosCircuito        metric.Int64Counter
}

// New registers the instruments on the global meter provider. Without a
// configured provider otel hands out no-op instruments.
func New() (*Metrics, error) {
	return NewWithMeter(otel.Meter(meterName))
}

// NewWithMeter registers the instruments on meter.
func NewWithMeter(meter metric.Meter) (*Metrics, error) {
	transiciones, err := meter.Int64Counter(
		"pedido_transiciones_total",
		metric.WithDescription("Order state transitions by origin, target and outcome"),
	)
	if err != nil {
		return nil, err
	}

	duracion, err := meter.Float64Histogram(
		"pedido_transicion_duracion_seconds",
		metric.WithDescription("Order state transition duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	movimientos, err := meter.Int64Counter(
		"inventario_movimientos_total",
		metric.WithDescription("Ledger movements by direction and outcome"),
	)
	if err != nil {
		return nil, err
	}

	compensaciones, err := meter.Int64Counter(
		"compensaciones_total",
		metric.WithDescription("Compensations run after a partially applied operation"),
	)
	if err != nil {
		return nil, err
	}

	fallidas, err := meter.Int64Counter(
		"compensaciones_fallidas_total",
		metric.WithDescription("Compensations that could not be completed and need manual reconciliation"),
	)
	if err != nil {
		return nil, err
	}

	mesas, err := meter.Int64Counter(
		"mesas_reconciliadas_total",
		metric.WithDescription("Table state changes applied by the occupancy projector"),
	)
	if err != nil {
		return nil, err
	}

	circuito, err := meter.Int64Counter(
		"circuito_cambios_total",
		metric.WithDescription("Circuit breaker state changes by circuit and target state"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		transiciones:           transiciones,
		duracionTransicion:     duracion,
		movimientos:            movimientos,
		compensaciones:         compensaciones,
		compensacionesFallidas: fallidas,
		mesasReconciliadas:     mesas,
		cambiosCircuito:        circuito,
	}, nil
}

// RecordTransicion records one order transition attempt.
func (m *Metrics) RecordTransicion(ctx context.Context, desde, hacia string, d time.Duration, ok bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("desde", desde),
		attribute.String("hacia", hacia),
		attribute.Bool("ok", ok),
	)
	m.transiciones.Add(ctx, 1, attrs)
	m.duracionTransicion.Record(ctx, d.Seconds(), attrs)
}

// RecordMovimiento records one ledger write attempt.
func (m *Metrics) RecordMovimiento(ctx context.Context, delta int, ok bool) {
	if m == nil {
		return
	}
	direccion := "entrada"
	if delta < 0 {
		direccion = "salida"
	}
	m.movimientos.Add(ctx, 1, metric.WithAttributes(
		attribute.String("direccion", direccion),
		attribute.Bool("ok", ok),
	))
}

// RecordCompensacion records a compensation run; ok=false means it failed.
// tipo must come from a fixed set: it becomes a label.
func (m *Metrics) RecordCompensacion(ctx context.Context, tipo string, ok bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("operacion", tipo))
	m.compensaciones.Add(ctx, 1, attrs)
	if !ok {
		m.compensacionesFallidas.Add(ctx, 1, attrs)
	}
}

// RecordMesaReconciliada records a table state change made by the projector.
func (m *Metrics) RecordMesaReconciliada(ctx context.Context, estado string) {
	if m == nil {
		return
	}
	m.mesasReconciliadas.Add(ctx, 1, metric.WithAttributes(attribute.String("estado", estado)))
}

// RecordCircuito records a circuit breaker entering estado.
func (m *Metrics) RecordCircuito(ctx context.Context, circuito, estado string) {
	if m == nil {
		return
	}
	m.cambiosCircuito.Add(ctx, 1, metric.WithAttributes(
		attribute.String("circuito", circuito),
		attribute.String("estado", estado),
	))
}
