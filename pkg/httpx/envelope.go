package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/complyhub/platform/pkg/logging"
)

// Envelope is the body shape of every JSON response.
type Envelope struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Data    any          `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

func OK(c echo.Context, code int, message string, data any) error {
	return c.JSON(code, Envelope{Code: code, Message: message, Data: data})
}

// ErrorHandler renders errors returned by handlers and middleware as an Envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	body := Envelope{Code: code, Message: http.StatusText(code)}

	var ve *ValidationError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &ve):
		body = Envelope{Code: http.StatusBadRequest, Message: ve.Message, Errors: ve.Fields}
	case errors.As(err, &he):
		body = Envelope{Code: he.Code, Message: messageOf(he)}
	default:
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "error", err)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(body.Code)
	} else {
		werr = c.JSON(body.Code, body)
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("write_error_response", "error", werr)
	}
}

func messageOf(he *echo.HTTPError) string {
	switch m := he.Message.(type) {
	case string:
		return m
	case nil:
		return http.StatusText(he.Code)
	default:
		return fmt.Sprint(m)
	}
}
