package errs

import (
	"errors"
	"net/http"
)

// HTTPStatus maps an error to the status code handlers report:
// validation 400, not found 404, conflict 409, anything else 500.
// Invariant violations are internal faults and stay 500.
func HTTPStatus(err error) int {
	var (
		ve *ValidationError
		nf *NotFoundError
		ce *ConflictError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &ce):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
