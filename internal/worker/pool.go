package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueIncidentes = "jobs:incidentes"

	jobTypeIncidente = "incidente"
	maxJobAttempts   = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// NotificarIncidente pushes a failed-compensation incident to Redis. With no
// Redis configured the incident is only logged by the caller.
func (d *Dispatcher) NotificarIncidente(ctx context.Context, inc model.Incidente) error {
	if d == nil || d.rdb == nil {
		return errors.New("dispatcher: redis no configurado")
	}
	return d.enqueue(ctx, QueueIncidentes, jobTypeIncidente, inc)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return pushJob(ctx, d.rdb, queue, Job{Type: jobType, Payload: data})
}

func pushJob(ctx context.Context, rdb *redis.Client, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, queue, encoded).Err()
}

// Handlers routes job types to their processors.
type Handlers struct {
	Incidentes *IncidenteWorker
}

// StartWorkerPool launches numWorkers goroutines consuming the job queues.
// Each goroutine blocks on BRPOP, so idle workers cost no CPU.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, h Handlers) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, h)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, h Handlers) {
	queues := []string{QueueIncidentes}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop; waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, h, result[0], result[1])
		}
	}
}

// processJob runs one job. A failing job is re-queued until maxJobAttempts,
// then moved to the dead letter queue; malformed envelopes go there directly.
func processJob(ctx context.Context, rdb *redis.Client, h Handlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		job = Job{Type: "desconocido", Payload: json.RawMessage(strconv.Quote(raw))}
		SendToDLQ(ctx, rdb, queue, job, "envelope inválido: "+err.Error())
		return
	}
	job.Attempts++

	err := dispatchJob(ctx, h, job)
	if err == nil {
		return
	}
	if errors.Is(err, errPayloadInvalido) || job.Attempts >= maxJobAttempts {
		SendToDLQ(ctx, rdb, queue, job, err.Error())
		return
	}
	log.Warn().Err(err).
		Str("queue", queue).
		Str("type", job.Type).
		Int("attempts", job.Attempts).
		Msg("job failed, re-queued")
	if perr := pushJob(ctx, rdb, queue, job); perr != nil {
		log.Error().Err(perr).Str("queue", queue).Msg("could not re-queue job")
	}
}

var errPayloadInvalido = errors.New("payload inválido")

func dispatchJob(ctx context.Context, h Handlers, job Job) error {
	switch job.Type {
	case jobTypeIncidente:
		if h.Incidentes == nil {
			return fmt.Errorf("%w: sin procesador para %s", errPayloadInvalido, job.Type)
		}
		return h.Incidentes.Process(ctx, job.Payload)
	default:
		return fmt.Errorf("%w: tipo de job desconocido %q", errPayloadInvalido, job.Type)
	}
}
