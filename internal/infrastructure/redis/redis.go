package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config conexión a Redis.
type Config struct {
	Addr     string
	Password string // opcional
	DB       int    // opcional
}

// NewClient crea y verifica el cliente.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// RunLock candado de ejecución sobre Redis (SETNX con TTL). Sirve para que
// el resumen de un día se publique una sola vez aunque el scheduler dispare
// de más.
type RunLock struct {
	client *redis.Client
}

// NewRunLock construye el candado con un cliente ya conectado.
func NewRunLock(client *redis.Client) *RunLock {
	return &RunLock{client: client}
}

// Acquire intenta tomar la clave. Devuelve false si ya estaba tomada.
func (l *RunLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := l.client.SetNX(ctx, key, "RUNNING", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return acquired, nil
}

// Release libera la clave para permitir un reintento dentro del mismo periodo.
func (l *RunLock) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}
