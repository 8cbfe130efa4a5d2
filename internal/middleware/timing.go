package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kisara-app/kisara-api/internal/utils"
)

// RequestStart records the arrival time of every request so response
// envelopes can report execution_time_ms. Register it first, before any
// middleware that may short-circuit.
func RequestStart() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(utils.RequestStartKey, time.Now().UTC())
			return next(c)
		}
	}
}
