package config

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-order-saga/internal/saga"
	"github.com/imrishuroy/go-order-saga/internal/store"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ORDERS_TABLE_NAME", "FAILED_ORDERS_TABLE_NAME", "IDEMPOTENCY_TABLE_NAME",
		"ORDERS_QUEUE_URL", "DLQ_URL", "SUCCESS_RATE", "STORE_BACKEND", "STORE_DSN",
		"SAGA_RETRY_MAX_ATTEMPTS", "SAGA_RETRY_BASE_DELAY", "SAGA_RETRY_MAX_DELAY",
		"WORKER_CONCURRENCY", "METRICS_NAMESPACE", "RUN_LOCAL",
	} {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, store.Table{Name: "orders", Key: "order_id"}, cfg.OrdersTable)
	assert.Equal(t, store.Table{Name: "failed_orders", Key: "failed_order_id"}, cfg.FailedOrdersTable)
	assert.Equal(t, "idempotency", cfg.IdempotencyTable.Name)
	assert.Equal(t, 0.7, cfg.SuccessProbability)
	assert.Equal(t, BackendDynamoDB, cfg.StoreBackend)
	assert.Equal(t, saga.DefaultMaxAttempts, cfg.Retry.MaxAttempts)
	assert.Equal(t, DefaultWorkerConcurrency, cfg.WorkerConcurrency)
	assert.False(t, cfg.RunLocal)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ORDERS_TABLE_NAME", "prod-orders")
	t.Setenv("SUCCESS_RATE", "1")
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("SAGA_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("SAGA_RETRY_BASE_DELAY", "50ms")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("RUN_LOCAL", "yes")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "prod-orders", cfg.OrdersTable.Name)
	assert.Equal(t, "order_id", cfg.OrdersTable.Key)
	assert.Equal(t, 1.0, cfg.SuccessProbability)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 50*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 8, cfg.WorkerConcurrency)
	assert.True(t, cfg.RunLocal)
}

func TestFromEnv_RejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"SUCCESS_RATE":            "1.5",
		"STORE_BACKEND":           "mongo",
		"SAGA_RETRY_MAX_ATTEMPTS": "0",
		"SAGA_RETRY_MAX_DELAY":    "soon",
		"WORKER_CONCURRENCY":      "-2",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestParseSuccessProbability(t *testing.T) {
	for _, raw := range []string{"0", "0.25", "1"} {
		_, err := ParseSuccessProbability(raw)
		assert.NoError(t, err, raw)
	}
	for _, raw := range []string{"-0.1", "1.01", "abc", ""} {
		_, err := ParseSuccessProbability(raw)
		assert.Error(t, err, raw)
	}
}

func TestFromEnv_BoundsRetryAttempts(t *testing.T) {
	clearEnv(t)
	t.Setenv("SAGA_RETRY_MAX_ATTEMPTS", "20")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, saga.MaxRetryAttempts, cfg.Retry.MaxAttempts)

	t.Setenv("SAGA_RETRY_MAX_ATTEMPTS", "21")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "SAGA_RETRY_MAX_ATTEMPTS")
}

func TestOpenStore_Memory(t *testing.T) {
	s, closeFn, err := OpenStore(context.Background(), Config{StoreBackend: BackendMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)
	assert.NoError(t, closeFn())
}

func TestOpenStore_PostgresNeedsDSN(t *testing.T) {
	_, closeFn, err := OpenStore(context.Background(), Config{StoreBackend: BackendPostgres}, nil)
	require.Error(t, err)
	assert.NotNil(t, closeFn)
}

// recordingDynamo satisfies aws.DynamoDBAPI and counts the reads it serves.
type recordingDynamo struct {
	gets int
}

func (d *recordingDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return &dynamodb.PutItemOutput{}, nil
}

func (d *recordingDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	d.gets++
	return &dynamodb.GetItemOutput{}, nil
}

func (d *recordingDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return &dynamodb.UpdateItemOutput{}, nil
}

func TestOpenStore_DynamoUsesSharedClient(t *testing.T) {
	client := &recordingDynamo{}
	s, closeFn, err := OpenStore(context.Background(), Config{StoreBackend: BackendDynamoDB}, client)
	require.NoError(t, err)
	require.IsType(t, &store.DynamoStore{}, s)
	assert.NoError(t, closeFn())

	err = s.Get(context.Background(), store.Table{Name: "orders", Key: "order_id"}, "o1", nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 1, client.gets)
}
