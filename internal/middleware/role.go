package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kisara-app/kisara-api/internal/utils"
)

// RequireRole enforces that the authenticated user carries one of the
// given roles. It assumes JWTAuth ran earlier and stored the role in the
// context; a missing or unknown role is rejected with 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(ContextRole).(string)
			if !ok || !allowed[role] {
				return utils.Fail(c, http.StatusForbidden, "Forbidden")
			}
			return next(c)
		}
	}
}
