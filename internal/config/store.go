package config

import (
	"context"
	"fmt"

	"github.com/imrishuroy/go-order-saga/internal/aws"
	"github.com/imrishuroy/go-order-saga/internal/store"
)

// OpenStore builds the configured store backend. The dynamodb backend runs on
// dynamo, usually the process's shared aws.Clients.DynamoDB; when nil a client
// is built from the default AWS config. The returned close func is never nil.
func OpenStore(ctx context.Context, cfg Config, dynamo aws.DynamoDBAPI) (store.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.StoreBackend {
	case BackendMemory:
		return store.NewMemoryStore(), noop, nil

	case BackendSQLite, BackendPostgres:
		dsn := cfg.StoreDSN
		if dsn == "" {
			if cfg.StoreBackend == BackendPostgres {
				return nil, noop, fmt.Errorf("STORE_DSN is required for the %s backend", cfg.StoreBackend)
			}
			dsn = DefaultSQLiteDSN
		}
		s, err := store.OpenSQL(ctx, cfg.StoreBackend, dsn)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil

	case BackendDynamoDB, "":
		if dynamo == nil {
			clients, err := aws.NewClients(ctx)
			if err != nil {
				return nil, noop, err
			}
			dynamo = clients.DynamoDB
		}
		return store.NewDynamoStore(dynamo), noop, nil

	default:
		return nil, noop, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}
