package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// RequireRole gates a route group to callers holding at least one of the
// given roles. Admin always passes.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := IdentityFromContext(c.Request().Context())
			if id.IsAdmin() {
				return next(c)
			}
			for _, required := range roles {
				if id.HasRole(required) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
