package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"

	"github.com/labstack/echo/v4"
)

// DefaultStackSize is the default stack trace size (4KB).
const DefaultStackSize = 4 << 10

// internalErrorHTML is shown inside the page when a partial request panics.
const internalErrorHTML = `<div class="alert alert-error" role="alert">Внутренняя ошибка. Обновите страницу.</div>`

// RecoveryConfig holds configuration for the recovery middleware.
type RecoveryConfig struct {
	// Logger is the structured logger to use for panic logging.
	Logger *slog.Logger

	// StackSize is the maximum size of the stack trace to capture.
	StackSize int

	// DisableStackAll disables capturing all goroutines stack traces.
	DisableStackAll bool

	// DisablePrintStack disables printing the stack trace to the logger.
	DisablePrintStack bool
}

// DefaultRecoveryConfig returns a RecoveryConfig with sensible defaults.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		Logger:            slog.Default(),
		StackSize:         DefaultStackSize,
		DisableStackAll:   true,
		DisablePrintStack: false,
	}
}

// Recovery returns a middleware that recovers from panics and logs the error.
func Recovery(logger *slog.Logger) echo.MiddlewareFunc {
	config := DefaultRecoveryConfig()
	config.Logger = logger
	return RecoveryWithConfig(config)
}

// RecoveryWithConfig returns a recovery middleware with custom configuration.
// Browser and htmx requests get an HTML fragment, everything else the JSON envelope.
func RecoveryWithConfig(config RecoveryConfig) echo.MiddlewareFunc {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.StackSize == 0 {
		config.StackSize = DefaultStackSize
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				r := recover()
				if r == nil {
					return
				}

				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("%v", r)
				}

				stack := make([]byte, config.StackSize)
				length := runtime.Stack(stack, !config.DisableStackAll)
				stack = stack[:length]

				req := c.Request()
				requestID := c.Response().Header().Get(echo.HeaderXRequestID)
				if requestID == "" {
					requestID = req.Header.Get(echo.HeaderXRequestID)
				}

				logAttrs := []any{
					slog.String("error", err.Error()),
					slog.String("method", req.Method),
					slog.String("path", req.URL.Path),
					slog.String("remote_ip", c.RealIP()),
				}
				if requestID != "" {
					logAttrs = append(logAttrs, slog.String("request_id", requestID))
				}
				if !config.DisablePrintStack {
					logAttrs = append(logAttrs, slog.String("stack", string(stack)))
				}

				config.Logger.Error("panic recovered", logAttrs...)

				if c.Response().Committed {
					return
				}

				if WantsHTML(c) {
					_ = c.HTML(http.StatusInternalServerError, internalErrorHTML)
					return
				}

				_ = c.JSON(http.StatusInternalServerError, map[string]any{
					"success": false,
					"error": map[string]string{
						"code":    "INTERNAL_ERROR",
						"message": "An internal error occurred",
					},
				})
			}()

			return next(c)
		}
	}
}

// WantsHTML reports whether the request came from htmx or a browser navigation.
func WantsHTML(c echo.Context) bool {
	req := c.Request()
	//nolint:canonicalheader // HTMX uses non-canonical header names
	if req.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}
