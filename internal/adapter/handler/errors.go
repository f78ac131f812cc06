package handler

import (
	"errors"
	"net/http"

	"github.com/rl1809/sales-ledger/internal/core/domain"
	"github.com/rl1809/sales-ledger/internal/core/service"
)

// Codes returned to clients alongside Success=false.
const (
	CodeInvalidQuantity    = "invalid_quantity"
	CodeInvalidPrice       = "invalid_price"
	CodeNotFound           = "not_found"
	CodeInsufficientStock  = "insufficient_stock"
	CodeStaleRead          = "stale_read"
	CodeDuplicateRequest   = "duplicate_request"
	CodePartialWrite       = "partial_write"
	CodeCatalogUnavailable = "catalog_unavailable"
	CodeWriteFailed        = "write_failed"
	CodeInternal           = "internal_error"
)

type failure struct {
	status  int
	code    string
	message string
}

func classify(err error) failure {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return failure{http.StatusBadRequest, CodeInvalidQuantity, "quantity must be a positive whole number"}
	case errors.Is(err, domain.ErrInvalidPrice):
		return failure{http.StatusBadRequest, CodeInvalidPrice, "price must be zero or more"}
	case errors.Is(err, domain.ErrNotFound):
		return failure{http.StatusNotFound, CodeNotFound, "item not found"}
	case errors.Is(err, domain.ErrInsufficientStock):
		return failure{http.StatusUnprocessableEntity, CodeInsufficientStock, err.Error()}
	case errors.Is(err, domain.ErrStaleRead):
		return failure{http.StatusConflict, CodeStaleRead, "stock changed since the catalog was loaded, reload and retry"}
	case errors.Is(err, domain.ErrDuplicateCommit):
		return failure{http.StatusConflict, CodeDuplicateRequest, err.Error()}
	case errors.Is(err, domain.ErrPartialWrite):
		return failure{http.StatusFailedDependency, CodePartialWrite, "stock updated but the sale was not logged, retry the ledger entry"}
	case errors.Is(err, domain.ErrLoad), errors.Is(err, service.ErrNoSnapshot):
		return failure{http.StatusServiceUnavailable, CodeCatalogUnavailable, err.Error()}
	case errors.Is(err, domain.ErrWrite):
		return failure{http.StatusBadGateway, CodeWriteFailed, "backing store write failed"}
	}
	return failure{http.StatusInternalServerError, CodeInternal, "internal error"}
}
