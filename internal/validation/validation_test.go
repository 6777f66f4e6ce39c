package validation

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/imrishuroy/go-order-saga/internal/apperr"
)

const validOrder = `{"order_id":"o1","customer_id":"cust1","items":[{"product_id":"p1","quantity":5},{"product_id":"p2","quantity":3}],"timestamp":"2024-06-01T10:00:00Z"}`

func TestValidate_Valid(t *testing.T) {
	o, err := NewValidator().Validate([]byte(validOrder))
	if err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
	if o.OrderID != "o1" || o.CustomerID != "cust1" || len(o.Items) != 2 {
		t.Fatalf("unexpected order: %+v", o)
	}
	if o.Items[0].ProductID != "p1" || o.Items[1].Quantity != 3 {
		t.Fatalf("items not decoded: %+v", o.Items)
	}
	if o.Timestamp != "2024-06-01T10:00:00Z" {
		t.Fatalf("timestamp not carried: %q", o.Timestamp)
	}
}

func TestValidate_EachRule(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		rule   string
		index  int
		reason string
	}{
		{"empty input", ``, RulePresent, -1, "No order data provided"},
		{"empty object", `{}`, RulePresent, -1, "No order data provided"},
		{"not json", `order please`, RulePresent, -1, "No order data provided"},
		{"missing order_id", `{"customer_id":"cust1","items":[{"product_id":"p1","quantity":1}]}`, RuleRequiredFields, -1, "Missing required field: order_id"},
		{"missing customer_id", `{"order_id":"o1","items":[{"product_id":"p1","quantity":1}]}`, RuleRequiredFields, -1, "Missing required field: customer_id"},
		{"missing items", `{"order_id":"o1","customer_id":"cust1"}`, RuleRequiredFields, -1, "Missing required field: items"},
		{"numeric order_id", `{"order_id":12345,"customer_id":"cust1","items":[{"product_id":"p1","quantity":1}]}`, RuleRequiredFields, -1, "Invalid order_id format"},
		{"empty order_id", `{"order_id":"","customer_id":"cust1","items":[{"product_id":"p1","quantity":1}]}`, RuleRequiredFields, -1, "Invalid order_id format"},
		{"short customer", `{"order_id":"o1","customer_id":"ab","items":[{"product_id":"p1","quantity":1}]}`, RuleCustomerID, -1, "Invalid customer_id format"},
		{"numeric customer", `{"order_id":"o1","customer_id":12345,"items":[{"product_id":"p1","quantity":1}]}`, RuleCustomerID, -1, "Invalid customer_id format"},
		{"empty items", `{"order_id":"o1","customer_id":"cust1","items":[]}`, RuleItems, -1, "Items must be a non-empty array"},
		{"items not array", `{"order_id":"o1","customer_id":"cust1","items":"p1"}`, RuleItems, -1, "Items must be a non-empty array"},
		{"item not object", `{"order_id":"o1","customer_id":"cust1","items":[{"product_id":"p1","quantity":1},"p2"]}`, RuleItemShape, 1, "Item 1 must be an object"},
		{"item missing quantity", `{"order_id":"o1","customer_id":"cust1","items":[{"product_id":"p1"}]}`, RuleItemShape, 0, "Item 0 missing product_id or quantity"},
		{"float quantity", `{"order_id":"o1","customer_id":"cust1","items":[{"product_id":"p1","quantity":2.5}]}`, RuleQuantity, 0, "Item 0 quantity must be a positive integer"},
		{"integral float quantity", `{"order_id":"o1","customer_id":"cust1","items":[{"product_id":"p1","quantity":5.0}]}`, RuleQuantity, 0, "Item 0 quantity must be a positive integer"},
		{"zero quantity", `{"order_id":"o1","customer_id":"cust1","items":[{"product_id":"p1","quantity":1},{"product_id":"p2","quantity":0}]}`, RuleQuantity, 1, "Item 1 quantity must be a positive integer"},
		{"negative quantity", `{"order_id":"o1","customer_id":"cust1","items":[{"product_id":"p1","quantity":-4}]}`, RuleQuantity, 0, "Item 0 quantity must be a positive integer"},
		{"string quantity", `{"order_id":"o1","customer_id":"cust1","items":[{"product_id":"p1","quantity":"4"}]}`, RuleQuantity, 0, "Item 0 quantity must be a positive integer"},
		{"total over limit", `{"order_id":"o1","customer_id":"cust1","items":[{"product_id":"p1","quantity":60},{"product_id":"p2","quantity":41}]}`, RuleTotalQuantity, -1, "Order total quantity cannot exceed 100 items"},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Validate([]byte(tt.input))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("error does not match ErrValidation: %v", err)
			}
			var ve *Error
			if !errors.As(err, &ve) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if ve.Rule != tt.rule || ve.Index != tt.index || ve.Reason != tt.reason {
				t.Fatalf("got rule=%s index=%d reason=%q, want rule=%s index=%d reason=%q",
					ve.Rule, ve.Index, ve.Reason, tt.rule, tt.index, tt.reason)
			}
		})
	}
}

func TestValidate_TotalQuantityBoundary(t *testing.T) {
	v := NewValidator()
	build := func(qs ...int) []byte {
		parts := make([]string, len(qs))
		for i, q := range qs {
			parts[i] = fmt.Sprintf(`{"product_id":"p%d","quantity":%d}`, i, q)
		}
		return []byte(`{"order_id":"o1","customer_id":"cust1","items":[` + strings.Join(parts, ",") + `]}`)
	}

	if _, err := v.Validate(build(100)); err != nil {
		t.Fatalf("total of 100 should pass: %v", err)
	}
	for _, split := range [][]int{{101}, {100, 1}, {50, 50, 1}, {1, 1, 99}} {
		_, err := v.Validate(build(split...))
		var ve *Error
		if !errors.As(err, &ve) || ve.Rule != RuleTotalQuantity {
			t.Fatalf("split %v: expected total quantity failure, got %v", split, err)
		}
	}

	// quantities whose sum wraps int64
	huge := []byte(`{"order_id":"o1","customer_id":"cust1","items":[` +
		`{"product_id":"p1","quantity":9223372036854775807},` +
		`{"product_id":"p2","quantity":9223372036854775807}]}`)
	o, err := v.Validate(huge)
	var ve *Error
	if !errors.As(err, &ve) || ve.Rule != RuleTotalQuantity {
		t.Fatalf("overflowing quantities: expected total quantity failure, got order=%+v err=%v", o, err)
	}
	if _, err := v.Validate(build(101, 1)); err == nil {
		t.Fatalf("single item over the limit should fail")
	}
}

func TestCreateOrderRequest_Valid(t *testing.T) {
	v := New()

	req := CreateOrderRequest{
		CustomerID: "cust-123",
		Items: []ItemRequest{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
	}

	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestCreateOrderRequest_MissingFields(t *testing.T) {
	v := New()

	req := CreateOrderRequest{
		// CustomerID missing
		Items: []ItemRequest{},
	}

	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation errors for missing required fields, got nil")
	}
}

func TestCreateOrderRequest_ZeroQuantity(t *testing.T) {
	v := New()

	req := CreateOrderRequest{
		CustomerID: "cust-123",
		Items:      []ItemRequest{{ProductID: "p1", Quantity: 0}},
	}

	err := v.Struct(req)
	if err == nil {
		t.Fatal("expected validation error for zero quantity, got nil")
	}
	if got := firstReason(err); got != "quantity must be a positive integer" {
		t.Fatalf("firstReason = %q", got)
	}
}
