// Package config resolves process configuration from the environment, after
// loading an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/imrishuroy/go-order-saga/internal/fulfillment"
	"github.com/imrishuroy/go-order-saga/internal/idempotency"
	"github.com/imrishuroy/go-order-saga/internal/orders"
	"github.com/imrishuroy/go-order-saga/internal/saga"
	"github.com/imrishuroy/go-order-saga/internal/store"
)

// Store backends
const (
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// DefaultSQLiteDSN is used when the sqlite backend is selected without STORE_DSN.
const DefaultSQLiteDSN = "orders.db"

// DefaultWorkerConcurrency bounds concurrent saga runs per received batch.
const DefaultWorkerConcurrency = 4

// Config is everything the binaries read from the environment.
type Config struct {
	OrdersTable        store.Table
	FailedOrdersTable  store.Table
	IdempotencyTable   store.Table
	OrdersQueueURL     string
	DLQURL             string
	SuccessProbability float64
	StoreBackend       string
	StoreDSN           string
	Retry              saga.RetryPolicy
	WorkerConcurrency  int
	MetricsNamespace   string
	RunLocal           bool
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("config.Load: no .env file loaded", "error", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables alone.
func FromEnv() (Config, error) {
	cfg := Config{
		OrdersTable:       tableFromEnv("ORDERS_TABLE_NAME", orders.OrdersTable),
		FailedOrdersTable: tableFromEnv("FAILED_ORDERS_TABLE_NAME", orders.FailedOrdersTable),
		IdempotencyTable:  tableFromEnv("IDEMPOTENCY_TABLE_NAME", idempotency.Table),
		OrdersQueueURL:    os.Getenv("ORDERS_QUEUE_URL"),
		DLQURL:            os.Getenv("DLQ_URL"),
		StoreDSN:          os.Getenv("STORE_DSN"),
		MetricsNamespace:  os.Getenv("METRICS_NAMESPACE"),
		RunLocal:          ParseBoolEnv("RUN_LOCAL", false),
	}

	var err error
	if cfg.SuccessProbability, err = successProbability(); err != nil {
		return Config{}, err
	}
	if cfg.StoreBackend, err = backend(); err != nil {
		return Config{}, err
	}

	retry := saga.DefaultRetryPolicy()
	if retry.MaxAttempts, err = intEnv("SAGA_RETRY_MAX_ATTEMPTS", retry.MaxAttempts); err != nil {
		return Config{}, err
	}
	if retry.MaxAttempts > saga.MaxRetryAttempts {
		return Config{}, fmt.Errorf("SAGA_RETRY_MAX_ATTEMPTS: at most %d, got %d", saga.MaxRetryAttempts, retry.MaxAttempts)
	}
	if retry.BaseDelay, err = durationEnv("SAGA_RETRY_BASE_DELAY", retry.BaseDelay); err != nil {
		return Config{}, err
	}
	if retry.MaxDelay, err = durationEnv("SAGA_RETRY_MAX_DELAY", retry.MaxDelay); err != nil {
		return Config{}, err
	}
	cfg.Retry = retry

	if cfg.WorkerConcurrency, err = intEnv("WORKER_CONCURRENCY", DefaultWorkerConcurrency); err != nil {
		return Config{}, err
	}

	slog.Debug("config.FromEnv: loaded",
		"orders_table", cfg.OrdersTable.Name,
		"failed_orders_table", cfg.FailedOrdersTable.Name,
		"idempotency_table", cfg.IdempotencyTable.Name,
		"orders_queue_set", cfg.OrdersQueueURL != "",
		"dlq_set", cfg.DLQURL != "",
		"success_probability", cfg.SuccessProbability,
		"store_backend", cfg.StoreBackend,
		"store_dsn_set", cfg.StoreDSN != "",
		"retry_max_attempts", cfg.Retry.MaxAttempts,
		"worker_concurrency", cfg.WorkerConcurrency,
		"run_local", cfg.RunLocal)

	return cfg, nil
}

// ParseSuccessProbability parses a probability and rejects values outside [0,1].
func ParseSuccessProbability(raw string) (float64, error) {
	p, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid success probability %q: %w", raw, err)
	}
	if p < 0 || p > 1 {
		return 0, fmt.Errorf("success probability %v out of range [0,1]", p)
	}
	return p, nil
}

// ParseBoolEnv parses a boolean environment variable with a default value.
// Accepts: true/1/yes/on and false/0/no/off (case-insensitive). Invalid values return default.
func ParseBoolEnv(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		slog.Warn("ParseBoolEnv: invalid boolean value, using default", "key", key, "value", val, "default", defaultValue)
		return defaultValue
	}
}

func successProbability() (float64, error) {
	raw := os.Getenv("SUCCESS_RATE")
	if raw == "" {
		return fulfillment.DefaultSuccessProbability, nil
	}
	p, err := ParseSuccessProbability(raw)
	if err != nil {
		return 0, fmt.Errorf("SUCCESS_RATE: %w", err)
	}
	return p, nil
}

func backend() (string, error) {
	b := strings.ToLower(strings.TrimSpace(os.Getenv("STORE_BACKEND")))
	switch b {
	case "":
		return BackendDynamoDB, nil
	case BackendDynamoDB, BackendMemory, BackendSQLite, BackendPostgres:
		return b, nil
	default:
		return "", fmt.Errorf("STORE_BACKEND: unsupported backend %q", b)
	}
}

func tableFromEnv(key string, def store.Table) store.Table {
	if name := os.Getenv(key); name != "" {
		def.Name = name
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s: expected a positive integer, got %q", key, raw)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%s: expected a non-negative duration, got %q", key, raw)
	}
	return d, nil
}
