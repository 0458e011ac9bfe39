package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

var (
	eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Eventos publicados en el canal, por routing key",
	}, []string{"routing_key"})
	publishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_publish_errors_total",
		Help: "Publicaciones fallidas, por routing key",
	}, []string{"routing_key"})
)

// Publisher implementa el lado de publicación del canal de eventos sobre
// Kafka. El routing key viaja como key del mensaje y como header, para que
// los suscriptores filtren por él.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher construye el publisher. El tópico se indica por mensaje.
func NewPublisher(brokers []string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		MaxAttempts:            5,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w}
}

// Publish serializa el payload a JSON y lo escribe en el tópico.
func (p *Publisher) Publish(ctx context.Context, topic, routingKey string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		publishErrors.WithLabelValues(routingKey).Inc()
		return fmt.Errorf("serializar payload: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(routingKey),
		Value: value,
		Headers: []kafka.Header{
			{Key: "routing_key", Value: []byte(routingKey)},
		},
	})
	if err != nil {
		publishErrors.WithLabelValues(routingKey).Inc()
		return fmt.Errorf("escribir mensaje: %w", err)
	}
	eventsPublished.WithLabelValues(routingKey).Inc()
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
