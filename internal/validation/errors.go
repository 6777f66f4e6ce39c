package validation

import "github.com/imrishuroy/go-order-saga/internal/apperr"

// Rules, in the order Validate checks them.
const (
	RulePresent        = "order_present"
	RuleRequiredFields = "required_fields"
	RuleCustomerID     = "customer_id"
	RuleItems          = "items_non_empty"
	RuleItemShape      = "item_shape"
	RuleQuantity       = "item_quantity"
	RuleTotalQuantity  = "total_quantity"
)

// Error names the rule an order broke. Index is the offending item position for
// item-level rules and -1 otherwise.
type Error struct {
	Rule   string
	Index  int
	Reason string
}

func (e *Error) Error() string { return e.Reason }

// Is lets callers match any validation failure with errors.Is(err, apperr.ErrValidation).
func (e *Error) Is(target error) bool { return target == apperr.ErrValidation }

func fail(rule, reason string) *Error {
	return &Error{Rule: rule, Index: -1, Reason: reason}
}

func failItem(rule string, index int, reason string) *Error {
	return &Error{Rule: rule, Index: index, Reason: reason}
}
