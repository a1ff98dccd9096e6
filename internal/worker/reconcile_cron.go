package worker

// reconcile_cron.go
// Background goroutine that periodically re-derives every table's state from
// its orders, healing drift left by manual edits or failed reconciliations.

import (
	"context"
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/dto"

	"github.com/rs/zerolog/log"
)

// Reconciliador is the occupancy sweep the cron drives.
type Reconciliador interface {
	ReconciliarTodas(ctx context.Context) (*dto.ReconciliacionTotalResponse, error)
}

// StartReconciliacionCron ticks every intervalo and runs a full sweep. A
// non-positive intervalo disables it. It respects ctx for graceful shutdown.
func StartReconciliacionCron(ctx context.Context, r Reconciliador, intervalo time.Duration) {
	if intervalo <= 0 {
		log.Info().Msg("reconcile_cron: disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(intervalo)
		defer ticker.Stop()

		log.Info().Dur("intervalo", intervalo).Msg("reconcile_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("reconcile_cron: shutting down")
				return
			case <-ticker.C:
				ReconciliarMesas(ctx, r)
			}
		}
	}()
}

// ReconciliarMesas runs one sweep and logs the outcome. Used at startup and
// by the cron.
func ReconciliarMesas(ctx context.Context, r Reconciliador) {
	resp, err := r.ReconciliarTodas(ctx)
	if err != nil {
		log.Error().Err(err).Msg("reconcile_cron: sweep finished with errors")
	}
	if resp == nil {
		return
	}
	ev := log.Debug()
	if resp.Cambiadas > 0 {
		ev = log.Info()
	}
	ev.Int("revisadas", resp.Revisadas).Int("cambiadas", resp.Cambiadas).Msg("reconcile_cron: sweep done")
}
