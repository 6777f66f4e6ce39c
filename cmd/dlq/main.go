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

	h := newDLQHandler(app.NewDeadLetterHandler(cfg, st))

	if cfg.RunLocal {
		if cfg.DLQURL == "" {
			log.Fatalf("DLQ_URL is required when RUN_LOCAL=true")
		}
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger.Info("dlq: polling dead-letter queue", "queue_url", cfg.DLQURL)
		ch := queue.NewSQSChannel(clients.SQS, cfg.DLQURL)
		if err := queue.Consume(ctx, ch, 1, h.HandleMessage); err != nil {
			log.Fatalf("dlq consumer stopped: %v", err)
		}
		return
	}

	lambda.Start(h.Handle)
}
