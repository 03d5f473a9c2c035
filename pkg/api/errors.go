package api

import (
	"errors"

	"mercator-hq/crucible/pkg/api/types"
	"mercator-hq/crucible/pkg/catalog"
	"mercator-hq/crucible/pkg/experiment"
)

// HandleError converts lifecycle errors to API error responses:
//
//	*experiment.ValidationError      422 with every violation
//	*experiment.AdmissionDeniedError 429
//	*experiment.InvalidStateError    409
//	*experiment.NotFoundError        404
//	*catalog.UnavailableError        503
//	*RequestError                    400
//	anything else                    500, details withheld
//
// Example usage:
//
//	if err != nil {
//	    WriteErrorResponse(w, HandleError(err))
//	    return
//	}
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	var validationErr *experiment.ValidationError
	if errors.As(err, &validationErr) {
		return types.NewValidationError(validationErr.Error(), validationErr.Violations)
	}

	var deniedErr *experiment.AdmissionDeniedError
	if errors.As(err, &deniedErr) {
		return types.NewErrorResponse(types.ErrorTypeAdmissionDenied, deniedErr.Error())
	}

	var stateErr *experiment.InvalidStateError
	if errors.As(err, &stateErr) {
		return types.NewErrorResponse(types.ErrorTypeInvalidState, stateErr.Error())
	}

	var notFoundErr *experiment.NotFoundError
	if errors.As(err, &notFoundErr) {
		return types.NewErrorResponse(types.ErrorTypeNotFound, notFoundErr.Error())
	}

	if errors.Is(err, catalog.ErrUnavailable) {
		return types.NewErrorResponse(types.ErrorTypeCatalogUnavailable, err.Error())
	}

	// Default to internal server error for unknown errors
	return types.NewServerError(
		"An internal error occurred. Please try again later.",
	)
}
