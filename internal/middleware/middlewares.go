// Package middleware holds the echo middleware of the API: request ids,
// request-scoped logging, tracing, rate limiting, bearer authentication,
// role checks and the global error handler.
package middleware

import (
	"github.com/deppfellow/backend-resources/internal/lib/auth"
	"github.com/deppfellow/backend-resources/internal/server"
)

type Middlewares struct {
	Global          *GlobalMiddlewares
	Auth            *AuthMiddleware
	ContextEnhancer *ContextEnhancer
	Tracing         *TracingMiddleware
	RateLimit       *RateLimitMiddleware
}

// NewMiddlewares builds every middleware once for the router. verifier
// checks the bearer tokens of protected routes.
func NewMiddlewares(s *server.Server, verifier auth.TokenVerifier) *Middlewares {
	return &Middlewares{
		Global:          NewGlobalMiddlewares(s),
		Auth:            NewAuthMiddleware(s, verifier),
		ContextEnhancer: NewContextEnhancer(s),
		Tracing:         NewTracingMiddleware(s, s.LoggerService.GetApplication()),
		RateLimit:       NewRateLimitMiddleware(s),
	}
}
