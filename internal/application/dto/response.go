// Package dto defines the request and response shapes crossing the
// presentation boundary.
package dto

import "github.com/edusight/edusight/pkg/errors"

// ErrorBody is the uniform error envelope returned by every endpoint.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorResponse builds the envelope from a structured error. Unexpected
// errors collapse to a generic internal failure so no internal state leaks.
func ErrorResponse(err error) ErrorBody {
	if app, ok := errors.AsAppError(err); ok {
		return ErrorBody{
			Error:   string(app.Code()),
			Message: app.Message(),
		}
	}
	return ErrorBody{
		Error:   string(errors.CodeInternal),
		Message: "internal error",
	}
}
