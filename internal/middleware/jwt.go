package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kisara-app/kisara-api/internal/model"
	"github.com/kisara-app/kisara-api/internal/utils"
)

// Context keys populated by JWTAuth for downstream handlers.
const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextRole   = "role"
)

// UserLoader resolves the email claim of a verified token to a full user
// record, so handlers also get the user id without another lookup.
type UserLoader interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// JWTAuth validates a Bearer access token and injects the authenticated
// user's id, email and role into the request context. Every verification
// failure — missing header, bad signature, expiry, unknown user — yields
// the same 401; the specific cause is only logged.
func JWTAuth(secret string, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return utils.Fail(c, http.StatusUnauthorized, "Missing bearer token")
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			email, _, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				log.Printf("auth: token rejected: %v", err)
				return utils.Fail(c, http.StatusUnauthorized, "Invalid or expired token")
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.GetByEmail(ctx, email)
			if err != nil {
				log.Printf("auth: no user for verified token email: %v", err)
				return utils.Fail(c, http.StatusUnauthorized, "Invalid or expired token")
			}

			c.Set(ContextUserID, u.ID)
			c.Set(ContextEmail, u.Email)
			c.Set(ContextRole, u.Role)
			return next(c)
		}
	}
}
