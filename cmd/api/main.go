package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-order-saga/internal/app"
	"github.com/imrishuroy/go-order-saga/internal/aws"
	"github.com/imrishuroy/go-order-saga/internal/config"
	"github.com/imrishuroy/go-order-saga/internal/handlers"
	"github.com/imrishuroy/go-order-saga/internal/idempotency"
	"github.com/imrishuroy/go-order-saga/internal/orders"
)

func setupRouter(cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), handlers.CORS())

	handlers.RegisterHealthRoute(r)
	handlers.RegisterOrdersRoutes(r, cfg)

	return r
}

func main() {
	app.InitLogger(os.Getenv("DEBUG") == "true")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.OrdersQueueURL == "" {
		log.Fatalf("ORDERS_QUEUE_URL is required")
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

	r := setupRouter(handlers.HandlerConfig{
		Publisher:   aws.NewPublisher(clients.SQS, cfg.OrdersQueueURL),
		Orders:      orders.NewGateway(st, cfg.OrdersTable),
		Idempotency: idempotency.NewStore(st, cfg.IdempotencyTable, 48*time.Hour),
	})

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if cfg.RunLocal {
		addr := os.Getenv("API_ADDR")
		if addr == "" {
			addr = ":8080"
		}
		log.Printf("running local server on %s", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
