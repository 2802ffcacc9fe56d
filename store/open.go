package store

import (
	"context"
	"fmt"

	"redgen/config"
	"redgen/db"
)

// Open builds the backend named by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "redis":
		s := NewRedis(cfg.Redis)
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			s.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		return s, nil
	case "mongo":
		cl, d, err := db.Connect(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		return NewMongo(cl, d, cfg.Mongo.Collection), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
