package middleware

import (
	"strings"
	"time"

	"github.com/deppfellow/backend-resources/internal/errs"
	"github.com/deppfellow/backend-resources/internal/lib/auth"
	"github.com/deppfellow/backend-resources/internal/server"
	"github.com/labstack/echo/v4"
)

const (
	PrincipalKey = "principal"
	bearerPrefix = "Bearer "
)

// AuthMiddleware authenticates requests carrying a Keycloak access token.
type AuthMiddleware struct {
	server   *server.Server
	verifier auth.TokenVerifier
}

func NewAuthMiddleware(s *server.Server, verifier auth.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		server:   s,
		verifier: verifier,
	}
}

// RequireAuth rejects requests without a valid bearer token with 401 and
// exposes the caller to later handlers through GetPrincipal.
func (a *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		logger := GetLogger(c)

		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, bearerPrefix) {
			logger.Warn().
				Str("function", "RequireAuth").
				Dur("duration", time.Since(start)).
				Msg("missing bearer token")
			return errs.NewUnauthorizedError("Unauthorized", false)
		}

		principal, err := a.verifier.Verify(c.Request().Context(), strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
		if err != nil {
			logger.Warn().
				Err(err).
				Str("function", "RequireAuth").
				Dur("duration", time.Since(start)).
				Msg("token verification failed")
			return errs.NewUnauthorizedError("Unauthorized", false)
		}

		SetPrincipal(c, principal, a.server.Config.Auth.RequiredRole)

		GetLogger(c).Debug().
			Str("function", "RequireAuth").
			Dur("duration", time.Since(start)).
			Msg("user authenticated successfully")

		return next(c)
	}
}

// SetPrincipal stores the caller on both the echo and the request context
// and tags the request logger with the caller's identity.
func SetPrincipal(c echo.Context, principal *auth.Principal, preferredRole string) {
	c.Set(PrincipalKey, principal)
	c.Set(UserIDKey, principal.Subject)
	c.Set(UserRoleKey, principal.PrimaryRole(preferredRole))

	ctx := auth.WithPrincipal(c.Request().Context(), principal)
	c.SetRequest(c.Request().WithContext(ctx))

	enrichLogger(c)
}

// GetPrincipal returns the authenticated caller or nil.
func GetPrincipal(c echo.Context) *auth.Principal {
	if p, ok := c.Get(PrincipalKey).(*auth.Principal); ok {
		return p
	}
	return nil
}
