package worker

// dlq.go
// Dead letter queue: incident jobs that exhaust their attempts, or cannot be
// decoded, are parked in dlq:{original_queue}. An incident that lands here
// was never recorded nor mailed, so the entry keeps what an operator needs
// to chase it by hand.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry is one dead job.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	IncidenteID   string          `json:"incidente_id,omitempty"`
	Operacion     string          `json:"operacion,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      time.Time       `json:"failed_at"`
	Attempts      int             `json:"attempts"`
}

// referenciaIncidente pulls the id and operation out of an incident payload
// without requiring the rest of it to decode.
func referenciaIncidente(payload json.RawMessage) (id, operacion string) {
	var ref struct {
		ID        string `json:"id"`
		Operacion string `json:"operacion"`
	}
	if json.Unmarshal(payload, &ref) != nil {
		return "", ""
	}
	return ref.ID, ref.Operacion
}

func nuevaEntradaDLQ(queue string, job Job, reason string) DLQEntry {
	entry := DLQEntry{
		OriginalQueue: queue,
		JobType:       job.Type,
		Payload:       job.Payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC(),
		Attempts:      job.Attempts,
	}
	if job.Type == jobTypeIncidente {
		entry.IncidenteID, entry.Operacion = referenciaIncidente(job.Payload)
	}
	return entry
}

// SendToDLQ parks a failed job. A push failure is only logged: the incident
// is then known only through the compensation error log.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue string, job Job, reason string) {
	entry := nuevaEntradaDLQ(queue, job, reason)
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: failed to marshal entry")
		return
	}

	dlqKey := DLQPrefix + queue
	if err := rdb.LPush(context.WithoutCancel(ctx), dlqKey, data).Err(); err != nil {
		log.Error().Err(err).
			Str("dlq_key", dlqKey).
			Str("incidente_id", entry.IncidenteID).
			Msg("dlq: failed to push to DLQ")
		return
	}

	log.Error().
		Str("queue", queue).
		Str("job_type", entry.JobType).
		Str("incidente_id", entry.IncidenteID).
		Str("operacion", entry.Operacion).
		Str("reason", reason).
		Int("attempts", entry.Attempts).
		Msg("dlq: incidente sin procesar, revisar a mano")
}

// DLQLength is reported by /health.
func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}
