package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/restq/restq/pkg/entity"
	"github.com/restq/restq/pkg/query"
)

// Error names on the wire.
const (
	NameValidation     = "ValidationError"
	NameNotFound       = "NotFoundError"
	NameNotImplemented = "NotImplementedError"
	NameConfiguration  = "ConfigurationError"
	NameDatabase       = "DatabaseError"
	NameInternal       = "InternalError"
)

// Postgres error codes treated as client conflicts rather than server
// failures.
const (
	pgUniqueViolation  = "23505"
	pgNotNullViolation = "23502"
)

// Error is a classified request failure: the envelope fields exposed to the
// client plus the HTTP status to respond with. Hooks may return one to
// control the response directly.
type Error struct {
	Name    string `json:"name"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`

	status int
	cause  error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Name + ": " + e.Message
	}
	return e.Name
}

func (e *Error) Unwrap() error { return e.cause }

// Status returns the HTTP status the error maps to.
func (e *Error) Status() int {
	if e.status == 0 {
		return http.StatusInternalServerError
	}
	return e.status
}

// Validationf builds a 400 ValidationError with a formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{
		Name:    NameValidation,
		Message: fmt.Sprintf(format, args...),
		status:  http.StatusBadRequest,
	}
}

// NotFound reports that no record matched the requested key.
func NotFound() *Error {
	return &Error{
		Name:    NameNotFound,
		Message: "no matching record",
		status:  http.StatusNotFound,
	}
}

// NotImplemented reports an endpoint the server deliberately does not
// support.
func NotImplemented(message string) *Error {
	return &Error{
		Name:    NameNotImplemented,
		Message: message,
		status:  http.StatusNotImplemented,
	}
}

// Unavailable reports a dependency the server could not reach.
func Unavailable(message string) *Error {
	return &Error{
		Name:    NameDatabase,
		Message: message,
		status:  http.StatusServiceUnavailable,
	}
}

// classify maps any error raised during request handling onto the wire
// taxonomy. Database errors expose only their name and SQLSTATE code, never
// the driver's message text.
func classify(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	switch {
	case entity.IsValidation(err),
		errors.Is(err, query.ErrInvalidFilter),
		errors.Is(err, query.ErrInvalidSort),
		errors.Is(err, query.ErrInvalidPage),
		errors.Is(err, query.ErrInvalidBody):
		return &Error{Name: NameValidation, Message: err.Error(), status: http.StatusBadRequest, cause: err}

	case errors.Is(err, entity.ErrConfig), errors.Is(err, query.ErrNoMode):
		return &Error{Name: NameConfiguration, status: http.StatusInternalServerError, cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		status := http.StatusInternalServerError
		if pgErr.Code == pgUniqueViolation || pgErr.Code == pgNotNullViolation {
			status = http.StatusBadRequest
		}
		return &Error{Name: NameDatabase, Code: pgErr.Code, status: status, cause: err}
	}

	return &Error{Name: NameInternal, status: http.StatusInternalServerError, cause: err}
}
