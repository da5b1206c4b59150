package db

import (
	"context"
	"fmt"

	"provas-server-go/config"
)

// Open builds the backend named by cfg.Backend and wraps it in a DocumentStore
func Open(ctx context.Context, cfg config.Storage) (*DocumentStore, error) {
	var (
		kv  KVStore
		err error
	)
	switch cfg.Backend {
	case "", "file":
		kv, err = NewFileStore(cfg.Dir)
	case "bolt":
		kv, err = NewBoltStore(cfg.BoltPath)
	case "redis":
		client, cerr := InitializeRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if cerr != nil {
			return nil, cerr
		}
		kv = NewRedisService(client)
	case "mongo":
		kv, err = ConnectMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	return NewDocumentStore(kv), nil
}
