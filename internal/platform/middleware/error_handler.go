package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/recon/internal/platform/outcome"
)

// ErrorHandler renders every error that reaches echo as an outcome body.
// Messages of non-HTTP errors are logged, never sent.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		diagnostics := http.StatusText(status)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			diagnostics = fmt.Sprint(he.Message)
		} else {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).Str("request_id", rid).Msg("unhandled error")
		}

		body := outcome.New(outcome.SeverityError, codeForStatus(status), diagnostics)

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return outcome.CodeInvalid
	case http.StatusNotFound:
		return outcome.CodeNotFound
	case http.StatusMethodNotAllowed, http.StatusUnsupportedMediaType:
		return outcome.CodeNotSupported
	case http.StatusRequestEntityTooLarge:
		return outcome.CodeTooCostly
	case http.StatusTooManyRequests:
		return outcome.CodeThrottled
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return outcome.CodeTimeout
	default:
		if status >= 500 {
			return outcome.CodeException
		}
		return outcome.CodeProcessing
	}
}
