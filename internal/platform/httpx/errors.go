// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusCoder is implemented by errors that carry their own HTTP status,
// such as relayed upstream failures.
type StatusCoder interface {
	HTTPStatus() int
}

// FieldErrorer is implemented by errors that carry per-field codes.
type FieldErrorer interface {
	FieldErrors() map[string]string
}

type userMessager interface {
	UserMessage() string
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	p := ProblemFor(err)
	ProblemJSON(w, p.Status, p)
}

// ProblemFor builds the problem details err maps to without writing them,
// so handlers can extend the body.
func ProblemFor(err error) ProblemDetail {
	var (
		coder  StatusCoder
		fields FieldErrorer
	)
	if errors.As(err, &fields) && len(fields.FieldErrors()) > 0 {
		status := http.StatusUnprocessableEntity
		if errors.As(err, &coder) {
			status = coder.HTTPStatus()
		}
		return ProblemDetail{Title: "Validation Failed", Status: status, Detail: detailOf(err), Errors: fields.FieldErrors()}
	}
	if errors.As(err, &coder) {
		status := coder.HTTPStatus()
		return ProblemDetail{Title: http.StatusText(status), Status: status, Detail: detailOf(err)}
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return ProblemDetail{Title: "Not Found", Status: http.StatusNotFound, Detail: err.Error()}
	case errors.Is(err, ErrConflict):
		return ProblemDetail{Title: "Conflict", Status: http.StatusConflict, Detail: err.Error()}
	case errors.Is(err, ErrValidation):
		return ProblemDetail{Title: "Validation Failed", Status: http.StatusBadRequest, Detail: err.Error()}
	case errors.Is(err, ErrForbidden):
		return ProblemDetail{Title: "Forbidden", Status: http.StatusForbidden, Detail: err.Error()}
	case errors.Is(err, ErrUnauthorized):
		return ProblemDetail{Title: "Unauthorized", Status: http.StatusUnauthorized, Detail: err.Error()}
	default:
		return ProblemDetail{Title: "Internal Error", Status: http.StatusInternalServerError}
	}
}

func detailOf(err error) string {
	var msg userMessager
	if errors.As(err, &msg) {
		return msg.UserMessage()
	}
	return err.Error()
}
