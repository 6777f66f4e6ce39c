package validation

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// BindAndValidate binds JSON body into `out` and runs validation.
// If validation fails, it writes a 400 response and returns an error for the handler to short-circuit.
func BindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	if err := c.ShouldBindJSON(out); err != nil {
		if errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Request body is required"})
			return err
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid JSON in request body",
			"msg":   err.Error(),
		})
		return err
	}

	if err := v.Struct(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  firstReason(err),
			"fields": validationErrorsToMap(err),
		})
		return err
	}
	return nil
}

// firstReason renders the first failing field in the wording the intake API has
// always used.
func firstReason(err error) string {
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err.Error()
	}
	fe := ve[0]
	switch fe.Field() {
	case "CustomerID":
		return "customer_id and items are required"
	case "Items":
		return "items must be a non-empty array"
	case "ProductID":
		return "Each item must have product_id and quantity"
	case "Quantity":
		return "quantity must be a positive integer"
	default:
		return fmt.Sprintf("invalid field %s", fe.Field())
	}
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fe.StructNamespace()] = fe.Error()
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}
