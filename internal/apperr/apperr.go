// Package apperr holds the error taxonomy shared by every saga stage.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateOrder     = errors.New("order already exists")
	ErrNotFound           = errors.New("order not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrDecode             = errors.New("malformed payload")
)

// Kind values.
const (
	KindValidation         = "validation"
	KindDuplicateOrder     = "duplicate_order"
	KindNotFound           = "not_found"
	KindStorageUnavailable = "storage_unavailable"
	KindDecode             = "decode"
	KindTimeout            = "timeout"
	KindCanceled           = "canceled"
	KindInternal           = "internal"
)

// retryable lists the kinds an external driver may re-run a stage for.
var retryable = map[string]bool{
	KindValidation:         false,
	KindDuplicateOrder:     false,
	KindNotFound:           false,
	KindStorageUnavailable: true,
	KindDecode:             false,
	KindTimeout:            false,
	KindCanceled:           false,
	KindInternal:           false,
}

func Kind(err error) string {
	switch {
	case err == nil:
		return ""

	case errors.Is(err, ErrValidation):
		return KindValidation

	case errors.Is(err, ErrDuplicateOrder):
		return KindDuplicateOrder

	case errors.Is(err, ErrNotFound):
		return KindNotFound

	case errors.Is(err, ErrStorageUnavailable):
		return KindStorageUnavailable

	case errors.Is(err, ErrDecode):
		return KindDecode

	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout

	case errors.Is(err, context.Canceled):
		return KindCanceled

	default:
		return KindInternal
	}
}

// Retryable reports whether re-running the same stage with the same input can succeed.
func Retryable(err error) bool {
	return retryable[Kind(err)]
}

func HTTPStatus(err error) int {
	switch Kind(err) {
	case "":
		return http.StatusOK
	case KindValidation, KindDecode:
		return http.StatusBadRequest
	case KindDuplicateOrder:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindStorageUnavailable:
		return http.StatusServiceUnavailable
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
