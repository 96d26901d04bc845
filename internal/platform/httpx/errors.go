// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/stockroom-hq/stockroom/internal/shared"
)

// RespondError maps core errors to HTTP responses using RFC7807. Internal
// store errors never leak past this boundary.
func RespondError(w http.ResponseWriter, err error) {
	var (
		validation   *shared.ValidationError
		notFound     *shared.NotFoundError
		insufficient *shared.InsufficientStockError
		transition   *shared.InvalidTransitionError
		conflict     *shared.ConflictError
	)
	switch {
	case errors.As(err, &validation):
		Problem(w, http.StatusBadRequest, "Validation Failed", validation.Error())
	case errors.As(err, &notFound):
		Problem(w, http.StatusNotFound, "Not Found", notFound.Error())
	case errors.As(err, &insufficient):
		Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", insufficient.Error())
	case errors.As(err, &transition):
		Problem(w, http.StatusConflict, "Invalid Transition", transition.Error())
	case errors.As(err, &conflict):
		Problem(w, http.StatusConflict, "Conflict", conflict.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
