package service

import (
	"context"
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/metrics"
	"github.com/koouhz/beefybeer-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Alertador receives operational incidents that need a human.
type Alertador interface {
	NotificarIncidente(ctx context.Context, inc model.Incidente) error
}

// Publicador receives order lifecycle events after they are committed.
type Publicador interface {
	PublicarEvento(ctx context.Context, ev model.EventoPedido) error
}

// reportarCompensacionFallida logs, counts and forwards a failed compensation.
// It never fails: the caller returns the original error regardless.
func reportarCompensacionFallida(ctx context.Context, alertador Alertador, m *metrics.Metrics, err *CompensacionFallidaError) {
	fallos := make([]string, 0, len(err.Fallos))
	for _, f := range err.Fallos {
		fallos = append(fallos, f.Error())
	}
	causa := ""
	if err.Causa != nil {
		causa = err.Causa.Error()
	}

	log.Error().
		Str("tipo", err.Tipo).
		Str("operacion", err.Operacion).
		Str("causa", causa).
		Strs("fallos", fallos).
		Msg("compensación fallida: el inventario requiere conciliación manual")

	m.RecordCompensacion(ctx, err.Tipo, false)

	if alertador == nil {
		return
	}
	inc := model.Incidente{
		ID:         uuid.New(),
		Tipo:       err.Tipo,
		Operacion:  err.Operacion,
		Causa:      causa,
		Fallos:     fallos,
		OcurridoEn: time.Now().UTC(),
	}
	if aerr := alertador.NotificarIncidente(context.WithoutCancel(ctx), inc); aerr != nil {
		log.Error().Err(aerr).Str("incidente_id", inc.ID.String()).Msg("no se pudo encolar el incidente")
	}
}
