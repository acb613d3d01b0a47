package main

import (
	"context"
	"fmt"

	"tiermask/internal/platform/config"
	"tiermask/internal/platform/kafka"
	"tiermask/internal/platform/postgres"
	redisclient "tiermask/internal/platform/redis"
	"tiermask/pkg/platform/audit"
	kafkastore "tiermask/pkg/platform/audit/store/kafka"
	"tiermask/pkg/platform/audit/store/memory"
	pgstore "tiermask/pkg/platform/audit/store/postgres"
	redisstore "tiermask/pkg/platform/audit/store/redis"
)

// auditBackend is the configured audit store plus the connection that
// backs it.
type auditBackend struct {
	store  audit.Store
	health func(context.Context) error
	close  func()
}

func openAuditBackend(ctx context.Context, cfg *config.Config) (*auditBackend, error) {
	switch cfg.Audit.Backend {
	case config.BackendMemory:
		return &auditBackend{store: memory.NewInMemoryStore(), close: func() {}}, nil

	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		st := pgstore.New(db)
		if err := st.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &auditBackend{store: st, health: db.PingContext, close: func() { _ = db.Close() }}, nil

	case config.BackendRedis:
		client, err := redisclient.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		st := redisstore.New(client,
			redisstore.WithStream(cfg.Redis.Stream),
			redisstore.WithMaxLen(cfg.Redis.MaxLen),
		)
		return &auditBackend{store: st, health: client.Health, close: func() { _ = client.Close() }}, nil

	case config.BackendKafka:
		cl, err := kafka.NewClient(ctx, cfg.Kafka)
		if err != nil {
			return nil, err
		}
		if err := kafka.EnsureTopic(ctx, cl, cfg.Kafka.Topic, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			cl.Close()
			return nil, err
		}
		return &auditBackend{store: kafkastore.New(cl, cfg.Kafka.Topic), health: cl.Ping, close: cl.Close}, nil
	}
	return nil, fmt.Errorf("unsupported audit backend %q", cfg.Audit.Backend)
}
