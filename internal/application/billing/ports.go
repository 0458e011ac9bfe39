package billing

import (
	"context"
	"time"
)

// Routing keys del módulo de facturación.
const (
	RoutingKeyInvoiceCreated = "invoices.created"
	RoutingKeySalesSummary   = "sales.summary"
)

// EventPublisher publica mensajes en el canal de eventos dirigidos por
// (tópico, routing key). La entrega es al-menos-una-vez; el llamador trata la
// publicación como fire-and-forget.
type EventPublisher interface {
	Publish(ctx context.Context, topic, routingKey string, payload any) error
}

// RunLock candado compartido para ejecuciones únicas por periodo.
// Acquire devuelve false si otro proceso ya tomó la clave.
type RunLock interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// EventsConfig tópico y routing keys del módulo, inyectados en la
// construcción (sin estado global mutable).
type EventsConfig struct {
	Topic             string
	CreatedRoutingKey string
	SummaryRoutingKey string
}

// NopRunLock candado que siempre concede. Útil cuando no hay backend de
// candados configurado; el candado en proceso sigue evitando solapamientos.
type NopRunLock struct{}

func (NopRunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (NopRunLock) Release(ctx context.Context, key string) error { return nil }
