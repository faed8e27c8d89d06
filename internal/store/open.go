package store

import (
	"context"
	"fmt"

	"github.com/justinabrahms/hotseatchess/internal/config"
)

// Open returns the store the configuration selects.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.RedisURL, cfg.TTL)
	case "postgres":
		return NewPostgresStore(ctx, cfg.PostgresURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
