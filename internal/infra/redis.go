package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedis abre el cliente que respalda la cola de notificaciones y el
// rate limiter. Falla en el arranque si Redis no responde: arrancar sin
// cola dejaría las notificaciones de incidencias en silencio.
func NewRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis url inválida: %w", err)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis no responde: %w", err)
	}

	return rdb, nil
}
