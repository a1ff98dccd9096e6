package worker

// incidente_worker.go
// Processes failed-compensation incidents from QueueIncidentes: keeps them in
// the open-incidents list and mails the operator when SMTP is configured.

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/koouhz/beefybeer-sub000/internal/infra"
	"github.com/koouhz/beefybeer-sub000/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	ListaIncidentesAbiertos = "incidentes:abiertos"
	maxIncidentesAbiertos   = 1000
)

type IncidenteWorker struct {
	rdb    *redis.Client
	mailer *infra.Mailer
	to     string
}

// NewIncidenteWorker creates the worker. mailer may be nil or unconfigured,
// and to may be empty; mail is skipped in both cases.
func NewIncidenteWorker(rdb *redis.Client, mailer *infra.Mailer, to string) *IncidenteWorker {
	return &IncidenteWorker{rdb: rdb, mailer: mailer, to: to}
}

func (w *IncidenteWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var inc model.Incidente
	if err := json.Unmarshal(raw, &inc); err != nil {
		return fmt.Errorf("%w: %v", errPayloadInvalido, err)
	}

	log.Error().
		Str("incidente_id", inc.ID.String()).
		Str("operacion", inc.Operacion).
		Str("causa", inc.Causa).
		Strs("fallos", inc.Fallos).
		Msg("incidente_worker: conciliación manual requerida")

	// LPUSH is not idempotent: a retried job may list the incident twice,
	// which is harmless for a human-read list.
	pipe := w.rdb.TxPipeline()
	pipe.LPush(ctx, ListaIncidentesAbiertos, []byte(raw))
	pipe.LTrim(ctx, ListaIncidentesAbiertos, 0, maxIncidentesAbiertos-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("incidente_worker: registrando incidente: %w", err)
	}

	if !w.mailer.Configurado() || w.to == "" {
		return nil
	}
	if err := w.mailer.EnviarIncidente(w.to, inc); err != nil {
		return fmt.Errorf("incidente_worker: enviando e-mail: %w", err)
	}
	log.Info().Str("incidente_id", inc.ID.String()).Str("to", w.to).Msg("incidente_worker: alerta enviada")
	return nil
}
