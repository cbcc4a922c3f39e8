package httpx

import (
	"errors"
	"net/http"

	"github.com/wardflow/wardflow/internal/shared"
)

// RespondError maps cross-module errors to HTTP responses. Domain-specific
// errors are mapped by their own handlers before falling through here.
func RespondError(w http.ResponseWriter, err error) {
	var pe *shared.PersistenceError
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &pe) && pe.Retriable:
		Problem(w, http.StatusServiceUnavailable, "Store Unavailable", "the operation is safe to retry")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
