package httpx

import (
	"errors"
	"net/http"

	"github.com/factora-erp/factora/internal/platform/db"
	"github.com/factora-erp/factora/internal/shared"
)

// RespondError maps cross-cutting errors to HTTP responses. Business errors
// specific to one domain (insufficient stock, unbalanced entry) are mapped
// by the owning handler before falling through to this function.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	case errors.Is(err, db.ErrTransient):
		Problem(w, http.StatusServiceUnavailable, "Temporarily Unavailable", "operation timed out on a contended row, retry")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// Unprocessable reports a business-rule violation the operator can act on.
func Unprocessable(w http.ResponseWriter, detail string) {
	Problem(w, http.StatusUnprocessableEntity, "Business Rule Violation", detail)
}
