package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-order-saga/internal/apperr"
	"github.com/imrishuroy/go-order-saga/internal/idempotency"
	"github.com/imrishuroy/go-order-saga/internal/orders"
	"github.com/imrishuroy/go-order-saga/internal/validation"
)

// IntakeSource tags every message published by the intake API.
const IntakeSource = "api-gateway"

// Publisher enqueues an order message. *aws.Publisher satisfies it.
type Publisher interface {
	Send(ctx context.Context, body []byte, attributes map[string]string) error
}

// OrderReader loads stored orders. *orders.Gateway satisfies it.
type OrderReader interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
}

// HandlerConfig groups dependencies for the orders handler.
// Idempotency and Orders are optional; without Orders the status route is not registered.
type HandlerConfig struct {
	Publisher   Publisher
	Orders      OrderReader
	Idempotency *idempotency.Store
	Validator   *validatorv10.Validate
	NowFunc     func() time.Time
	NewID       func() string
}

// Envelope is the message published for each accepted order.
type Envelope struct {
	Order     EnvelopeOrder `json:"order"`
	Timestamp string        `json:"timestamp"`
	Source    string        `json:"source"`
}

// EnvelopeOrder is the order as submitted, before the saga stores it.
type EnvelopeOrder struct {
	OrderID    string        `json:"order_id"`
	CustomerID string        `json:"customer_id"`
	Items      []orders.Item `json:"items"`
	Timestamp  string        `json:"timestamp"`
}

// AcceptedResponse is returned for every order handed to the saga.
type AcceptedResponse struct {
	Message string `json:"message"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// RegisterOrdersRoutes registers routes for order API.
func RegisterOrdersRoutes(r *gin.Engine, cfg HandlerConfig) {
	if cfg.Validator == nil {
		cfg.Validator = validation.New()
	}
	if cfg.NowFunc == nil {
		cfg.NowFunc = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	r.POST("/orders", createOrder(cfg))
	if cfg.Orders != nil {
		r.GET("/orders/:id", getOrder(cfg.Orders))
	}
}

func createOrder(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		// Bind + validate request
		var req validation.CreateOrderRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		orderID := cfg.NewID()
		idempKey := c.GetHeader("Idempotency-Key")
		if idempKey != "" && cfg.Idempotency != nil {
			rec, created, err := cfg.Idempotency.Claim(ctx, idempKey, orderID)
			if err != nil {
				slog.Error("orders.create: idempotency claim failed", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process order"})
				return
			}
			if !created {
				replay(c, rec)
				return
			}
		}

		timestamp := cfg.NowFunc().UTC().Format(time.RFC3339Nano)
		items := make([]orders.Item, 0, len(req.Items))
		for _, it := range req.Items {
			items = append(items, orders.Item{ProductID: it.ProductID, Quantity: it.Quantity})
		}
		body, err := json.Marshal(Envelope{
			Order: EnvelopeOrder{
				OrderID:    orderID,
				CustomerID: req.CustomerID,
				Items:      items,
				Timestamp:  timestamp,
			},
			Timestamp: timestamp,
			Source:    IntakeSource,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		attrs := map[string]string{
			"order_id":        orderID,
			"idempotency_key": idempKey,
			"correlation_id":  c.GetHeader("X-Request-Id"),
		}
		if err := cfg.Publisher.Send(ctx, body, attrs); err != nil {
			slog.Error("orders.create: enqueue failed", "order_id", orderID, "error", err)
			if idempKey != "" && cfg.Idempotency != nil {
				// mark idempotency failed so client can retry
				if merr := cfg.Idempotency.MarkFailed(ctx, idempKey, fmt.Sprintf("enqueue_failed: %v", err)); merr != nil {
					slog.Warn("orders.create: mark idempotency failed", "error", merr)
				}
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process order"})
			return
		}

		resp := AcceptedResponse{
			Message: "Order received and processing started",
			OrderID: orderID,
			Status:  "processing",
		}
		if idempKey != "" && cfg.Idempotency != nil {
			stored, _ := json.Marshal(resp)
			if err := cfg.Idempotency.MarkDone(ctx, idempKey, string(stored), http.StatusOK); err != nil {
				slog.Warn("orders.create: mark idempotency done", "error", err)
			}
		}

		slog.Info("orders.create: order accepted", "order_id", orderID, "customer_id", req.CustomerID)
		c.Header("Location", fmt.Sprintf("/orders/%s", orderID))
		c.JSON(http.StatusOK, resp)
	}
}

// replay answers a retried request from its idempotency record.
func replay(c *gin.Context, rec *idempotency.Record) {
	switch rec.Status {
	case idempotency.StatusDone:
		if rec.ResponseBody != "" && json.Valid([]byte(rec.ResponseBody)) {
			c.Data(rec.ResponseStatus, "application/json", []byte(rec.ResponseBody))
			return
		}
		c.JSON(http.StatusOK, gin.H{"order_id": rec.OrderID})
	case idempotency.StatusInProgress:
		c.JSON(http.StatusAccepted, gin.H{"message": "request already in progress", "order_id": rec.OrderID})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unknown_idempotency_status"})
	}
}

func getOrder(reader OrderReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		o, err := reader.Get(c.Request.Context(), id)
		if err != nil {
			status := apperr.HTTPStatus(err)
			if errors.Is(err, apperr.ErrNotFound) {
				c.JSON(status, gin.H{"error": "order not found", "order_id": id})
				return
			}
			slog.Error("orders.get: lookup failed", "order_id", id, "error", err)
			c.JSON(status, gin.H{"error": apperr.Kind(err)})
			return
		}
		c.JSON(http.StatusOK, o)
	}
}
