package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout returns middleware that puts a deadline on each request
// context. A handler that outlives the deadline gets its context cancelled
// and the caller receives a 504 Gateway Timeout.
//
// Long-lived routes are exempt: the bed board WebSocket stays open for the
// life of the browser session. Handlers that legitimately need more time,
// such as history exports, can derive their own context with a longer
// deadline.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return RequestTimeoutWithSkipper(timeout, isStreamingPath)
}

// RequestTimeoutWithSkipper is RequestTimeout with a caller-supplied
// predicate for routes that must not carry a deadline.
func RequestTimeoutWithSkipper(timeout time.Duration, skip func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skip != nil && skip(c) {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
					// Client went away; nothing useful to write.
					return ctx.Err()
				}
				if c.Response().Committed {
					return nil
				}
				return echo.NewHTTPError(http.StatusGatewayTimeout,
					"request processing exceeded the allowed time limit")
			}
		}
	}
}

// isStreamingPath reports whether the route is long-lived. The WebSocket
// endpoint is registered at /ws.
func isStreamingPath(c echo.Context) bool {
	return strings.HasSuffix(c.Request().URL.Path, "/ws")
}
