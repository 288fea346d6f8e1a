package apperror

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

type errorBody struct {
	Error        string `json:"error"`
	Kind         string `json:"kind"`
	Field        string `json:"field,omitempty"`
	CurrentState string `json:"current_state,omitempty"`
}

func kindString(k Kind) string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	}
	return "internal"
}

func statusFor(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	}
	return http.StatusInternalServerError
}

// HTTPErrorHandler maps taxonomy errors onto HTTP responses. Echo's own
// *HTTPError values (auth middleware, binding) pass through untouched;
// anything unrecognized becomes an opaque 500 and is logged.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, map[string]interface{}{"error": he.Message})
			return
		}

		var e *Error
		if errors.As(err, &e) {
			body := errorBody{
				Error:        e.Error(),
				Kind:         kindString(e.Kind),
				Field:        e.Field,
				CurrentState: e.CurrentState,
			}
			_ = c.JSON(statusFor(e.Kind), body)
			return
		}

		logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("unhandled error")
		_ = c.JSON(http.StatusInternalServerError, errorBody{Error: "internal server error", Kind: "internal"})
	}
}
