package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/koouhz/beefybeer-sub000/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// PublicadorKafka publishes order lifecycle events keyed by order id, so all
// events of one order land on the same partition in commit order.
type PublicadorKafka struct {
	writer *kafka.Writer
}

// NewPublicadorKafka returns nil when brokers is empty; callers treat a nil
// publisher as "events disabled". Writes are asynchronous: an unreachable
// broker never holds up a request, and failed deliveries are only logged.
func NewPublicadorKafka(brokers, topic string) *PublicadorKafka {
	addrs := make([]string, 0)
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	if len(addrs) == 0 {
		return nil
	}
	return &PublicadorKafka{writer: &kafka.Writer{
		Addr:                   kafka.TCP(addrs...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  true,
		Completion:             registrarEntrega,
	}}
}

// registrarEntrega is the writer's completion callback for each batch.
func registrarEntrega(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range msgs {
		tipo := ""
		for _, h := range m.Headers {
			if h.Key == "tipo" {
				tipo = string(h.Value)
			}
		}
		log.Warn().Err(err).
			Str("topic", m.Topic).
			Str("pedido_id", string(m.Key)).
			Str("tipo", tipo).
			Msg("no se pudo entregar el evento de pedido")
	}
}

func (p *PublicadorKafka) PublicarEvento(ctx context.Context, ev model.EventoPedido) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("serializando evento %s: %w", ev.Tipo, err)
	}
	return p.writer.WriteMessages(context.WithoutCancel(ctx), kafka.Message{
		Key:   []byte(ev.PedidoID.String()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "tipo", Value: []byte(ev.Tipo)},
		},
	})
}

func (p *PublicadorKafka) Close() error {
	return p.writer.Close()
}
