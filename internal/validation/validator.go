package validation

import (
	"bytes"
	"fmt"
	"strconv"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/tidwall/gjson"

	"github.com/imrishuroy/go-order-saga/internal/orders"
)

// New returns the validator used for intake request structs.
func New() *validatorv10.Validate {
	return validatorv10.New()
}

// Validator checks raw order payloads before they are stored. It works on the
// JSON text so an integer quantity can be told apart from 5.0.
type Validator struct {
	v *validatorv10.Validate
}

// NewValidator returns a Validator.
func NewValidator() *Validator {
	return &Validator{v: New()}
}

var requiredFields = []string{"order_id", "customer_id", "items"}

// Validate runs the order rules in order and stops at the first failure, which is
// returned as *Error. It has no side effects.
func (val *Validator) Validate(raw []byte) (*orders.Order, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil, fail(RulePresent, "No order data provided")
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() || len(doc.Map()) == 0 {
		return nil, fail(RulePresent, "No order data provided")
	}

	for _, field := range requiredFields {
		if !doc.Get(field).Exists() {
			return nil, fail(RuleRequiredFields, "Missing required field: "+field)
		}
	}
	orderID := doc.Get("order_id")
	if orderID.Type != gjson.String || val.v.Var(orderID.Str, "required") != nil {
		return nil, fail(RuleRequiredFields, "Invalid order_id format")
	}

	customerID := doc.Get("customer_id")
	if customerID.Type != gjson.String || val.v.Var(customerID.Str, "required,min=3") != nil {
		return nil, fail(RuleCustomerID, "Invalid customer_id format")
	}

	rawItems := doc.Get("items")
	if !rawItems.IsArray() || val.v.Var(rawItems.Array(), "min=1") != nil {
		return nil, fail(RuleItems, "Items must be a non-empty array")
	}

	items := make([]orders.Item, 0, len(rawItems.Array()))
	total := 0
	for i, it := range rawItems.Array() {
		if !it.IsObject() {
			return nil, failItem(RuleItemShape, i, fmt.Sprintf("Item %d must be an object", i))
		}
		productID, quantity := it.Get("product_id"), it.Get("quantity")
		if !productID.Exists() || !quantity.Exists() {
			return nil, failItem(RuleItemShape, i, fmt.Sprintf("Item %d missing product_id or quantity", i))
		}
		q, ok := positiveInt(quantity, val.v)
		if !ok {
			return nil, failItem(RuleQuantity, i, fmt.Sprintf("Item %d quantity must be a positive integer", i))
		}
		items = append(items, orders.Item{ProductID: productID.String(), Quantity: q})

		// Saturate just above the limit so huge quantities cannot wrap the sum.
		total += q
		if q > orders.MaxTotalQuantity || total > orders.MaxTotalQuantity {
			total = orders.MaxTotalQuantity + 1
		}
	}

	if err := val.v.Var(total, fmt.Sprintf("lte=%d", orders.MaxTotalQuantity)); err != nil {
		return nil, fail(RuleTotalQuantity, fmt.Sprintf("Order total quantity cannot exceed %d items", orders.MaxTotalQuantity))
	}

	o := &orders.Order{
		OrderID:    orderID.Str,
		CustomerID: customerID.Str,
		Items:      items,
	}
	if ts := doc.Get("timestamp"); ts.Type == gjson.String {
		o.Timestamp = ts.Str
	}
	return o, nil
}

// positiveInt accepts only JSON integers (no fraction, no exponent) above zero.
func positiveInt(r gjson.Result, v *validatorv10.Validate) (int, bool) {
	if r.Type != gjson.Number {
		return 0, false
	}
	n, err := strconv.Atoi(r.Raw)
	if err != nil {
		return 0, false
	}
	if v.Var(n, "gt=0") != nil {
		return 0, false
	}
	return n, true
}
