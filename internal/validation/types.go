package validation

// ItemRequest is a single line of an intake request.
type ItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"` // must be >= 1
}

// CreateOrderRequest is the payload for POST /orders. Business rules (customer id
// length, total quantity) are enforced later by the saga's Validator.
type CreateOrderRequest struct {
	CustomerID string        `json:"customer_id" validate:"required"`
	Items      []ItemRequest `json:"items" validate:"required,min=1,dive"` // at least one item
}
