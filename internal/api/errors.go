package api

import (
	"errors"
	"net/http"

	"ratelens/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var filter *domain.FilterError
	var validation *domain.ValidationError
	var noData *domain.NoDataError

	switch {
	case errors.As(err, &filter):
		return http.StatusBadRequest
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &noData):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
