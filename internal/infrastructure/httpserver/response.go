package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/useradmin/internal/domain/errs"
)

// Response is the JSON envelope of the API routes.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Error represents an error in the API response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Fields carries per-field problems of a rejected form.
	Fields map[string]string `json:"fields,omitempty"`
}

// HTTPError lets an error choose its own HTTP representation.
type HTTPError interface {
	error
	HTTPStatus() int
	HTTPCode() string
	HTTPMessage() string
}

// FieldError is implemented by errors that carry field-level problems.
type FieldError interface {
	error
	FieldErrors() map[string]string
}

// RespondJSON sends a successful JSON response.
func RespondJSON(c echo.Context, code int, data any) error {
	return c.JSON(code, Response{
		Success: true,
		Data:    data,
	})
}

// RespondOK sends a 200 OK response with data.
func RespondOK(c echo.Context, data any) error {
	return RespondJSON(c, http.StatusOK, data)
}

// RespondError sends an error JSON response based on the error type.
func RespondError(c echo.Context, err error) error {
	statusCode, apiError := mapError(err)
	return c.JSON(statusCode, Response{
		Success: false,
		Error:   apiError,
	})
}

// StatusOf returns the HTTP status RespondError would use for err.
func StatusOf(err error) int {
	status, _ := mapError(err)
	return status
}

// RespondErrorWithCode sends an error JSON response with a specific HTTP status code.
func RespondErrorWithCode(c echo.Context, code int, errorCode, message string) error {
	return c.JSON(code, Response{
		Success: false,
		Error: &Error{
			Code:    errorCode,
			Message: message,
		},
	})
}

// mapError maps domain errors to HTTP status codes and API errors.
func mapError(err error) (int, *Error) {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.HTTPStatus(), &Error{
			Code:    httpErr.HTTPCode(),
			Message: httpErr.HTTPMessage(),
		}
	}

	switch {
	case errors.Is(err, errs.ErrValidationFailed):
		apiErr := &Error{
			Code:    "VALIDATION_FAILED",
			Message: "The form contains invalid fields",
		}
		var fieldErr FieldError
		if errors.As(err, &fieldErr) {
			apiErr.Fields = fieldErr.FieldErrors()
		}
		return http.StatusUnprocessableEntity, apiErr

	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, &Error{
			Code:    "NOT_FOUND",
			Message: "The requested resource was not found",
		}

	case errors.Is(err, errs.ErrInvalidInput):
		return http.StatusBadRequest, &Error{
			Code:    "INVALID_INPUT",
			Message: "Invalid input data",
		}

	case errors.Is(err, errs.ErrInvalidState):
		return http.StatusConflict, &Error{
			Code:    "INVALID_STATE",
			Message: "Operation not allowed in current state",
		}

	case errors.Is(err, errs.ErrFetchFailed):
		return http.StatusBadGateway, &Error{
			Code:    "FETCH_FAILED",
			Message: "The users API could not be reached",
		}

	case errors.Is(err, errs.ErrDeleteFailed):
		return http.StatusBadGateway, &Error{
			Code:    "DELETE_FAILED",
			Message: "The users API rejected the delete",
		}

	default:
		return http.StatusInternalServerError, &Error{
			Code:    "INTERNAL_ERROR",
			Message: "An internal error occurred",
		}
	}
}
