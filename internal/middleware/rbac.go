package middleware

import (
	"github.com/deppfellow/backend-resources/internal/errs"
	"github.com/labstack/echo/v4"
)

// RequireRole allows the request when the caller holds any of roles.
// It must run after RequireAuth: a missing principal yields 401, a principal
// without a matching role 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal := GetPrincipal(c)
			if principal == nil {
				return errs.NewUnauthorizedError("Unauthorized", false)
			}

			if !principal.HasAnyRole(roles...) {
				GetLogger(c).Warn().
					Strs("required_roles", roles).
					Strs("roles", principal.Roles).
					Msg("access denied")
				return errs.NewForbiddenError("Forbidden", false)
			}

			return next(c)
		}
	}
}
