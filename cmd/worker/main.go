package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/imrishuroy/go-order-saga/internal/app"
	"github.com/imrishuroy/go-order-saga/internal/aws"
	"github.com/imrishuroy/go-order-saga/internal/config"
	"github.com/imrishuroy/go-order-saga/internal/queue"
	"github.com/imrishuroy/go-order-saga/internal/saga"
)

func main() {
	logger := app.InitLogger(os.Getenv("DEBUG") == "true")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	clients, err := aws.NewClients(ctx)
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}
	st, closeStore, err := config.OpenStore(ctx, cfg, clients.DynamoDB)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer closeStore()

	deps := app.Deps{
		Config:   cfg,
		Store:    st,
		Recorder: aws.NewMetricsRecorder(clients.CloudWatch, cfg.MetricsNamespace),
		Logger:   logger,
	}
	// Without a DLQ the driver writes dead letters straight to the failed-order table.
	if cfg.DLQURL != "" {
		deps.DeadLetters = saga.NewQueueSink(aws.NewPublisher(clients.SQS, cfg.DLQURL))
	}
	proc := NewProcessor(app.NewDriver(deps), cfg.WorkerConcurrency)

	// if RUN_LOCAL is set, poll the orders queue directly instead of running under Lambda.
	if cfg.RunLocal {
		if cfg.OrdersQueueURL == "" {
			log.Fatalf("ORDERS_QUEUE_URL is required when RUN_LOCAL=true")
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("worker: polling orders queue", "queue_url", cfg.OrdersQueueURL)
		ch := queue.NewSQSChannel(clients.SQS, cfg.OrdersQueueURL)
		if err := queue.Consume(ctx, ch, cfg.WorkerConcurrency, proc.HandleMessage); err != nil {
			log.Fatalf("worker stopped: %v", err)
		}
		return
	}

	lambda.Start(proc.Handle)
}
