package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/ventas-api/pkg/logger"
)

// Handler procesa el payload de un mensaje entregado. La entrega es
// al-menos-una-vez: el handler debe tolerar reprocesos del mismo payload.
type Handler func(ctx context.Context, payload []byte) error

// Consumer implementa el lado de suscripción del canal de eventos. El nombre
// de cola se traduce al group ID del consumer group de Kafka.
type Consumer struct {
	reader     *kafka.Reader
	routingKey string
	log        *logger.Logger
}

// NewConsumer crea el suscriptor para (tópico, routing key, cola).
func NewConsumer(brokers []string, topic, routingKey, queueName string, log *logger.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     queueName,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     1 * time.Second,
		StartOffset: kafka.FirstOffset,
	})
	return &Consumer{reader: r, routingKey: routingKey, log: log}
}

// Run consume mensajes hasta que el contexto se cancele. Los errores del
// handler se registran y el mensaje se confirma igual: ningún efecto
// secundario depende de la redelivery y el loop nunca debe caerse por un
// payload malformado.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		if c.matches(msg) {
			if err := handler(ctx, msg.Value); err != nil {
				c.log.Error().Err(err).
					Str("routing_key", c.routingKey).
					Int64("offset", msg.Offset).
					Msg("handler de mensaje falló")
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.log.Error().Err(err).Int64("offset", msg.Offset).Msg("confirmar mensaje")
		}
	}
}

// matches filtra por routing key (key del mensaje o header routing_key).
func (c *Consumer) matches(msg kafka.Message) bool {
	if string(msg.Key) == c.routingKey {
		return true
	}
	for _, h := range msg.Headers {
		if h.Key == "routing_key" && string(h.Value) == c.routingKey {
			return true
		}
	}
	return false
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
