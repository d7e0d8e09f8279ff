package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deppfellow/backend-resources/internal/config"
	"github.com/deppfellow/backend-resources/internal/errs"
	"github.com/deppfellow/backend-resources/internal/lib/auth"
	"github.com/deppfellow/backend-resources/internal/server"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVerifier map[string]*auth.Principal

func (s stubVerifier) Verify(_ context.Context, rawToken string) (*auth.Principal, error) {
	if p, ok := s[rawToken]; ok {
		return p, nil
	}
	return nil, auth.ErrInvalidToken
}

func testServer() *server.Server {
	logger := zerolog.Nop()
	return &server.Server{
		Config: &config.Config{
			Primary: config.Primary{Env: "test"},
			Server: config.ServerConfig{
				CORSAllowedOrigins: []string{"*"},
			},
			Auth:          config.AuthConfig{RequiredRole: "MODERATOR"},
			Observability: config.DefaultObservabilityConfig(),
		},
		Logger: &logger,
	}
}

func newTestEcho(s *server.Server, verifier auth.TokenVerifier) (*echo.Echo, *Middlewares) {
	mw := NewMiddlewares(s, verifier)

	e := echo.New()
	e.HTTPErrorHandler = mw.Global.GlobalErrorHandler
	e.Use(RequestID(), mw.ContextEnhancer.EnhanceContext(), mw.RateLimit.Limit())
	return e, mw
}

func serve(e *echo.Echo, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthAndRoleGuard(t *testing.T) {
	verifier := stubVerifier{
		"moderator": {Subject: "sub-1", Username: "testModerator", Roles: []string{"ROLE_MODERATOR"}},
		"reader":    {Subject: "sub-2", Username: "reader", Roles: []string{"USER"}},
	}
	s := testServer()
	e, mw := newTestEcho(s, verifier)

	var seen *auth.Principal
	e.GET("/protected", func(c echo.Context) error {
		seen = GetPrincipal(c)
		fromCtx, ok := auth.FromContext(c.Request().Context())
		require.True(t, ok)
		assert.Same(t, seen, fromCtx)
		assert.Equal(t, "sub-1", GetUserID(c))
		return c.String(http.StatusOK, seen.Username)
	}, mw.Auth.RequireAuth, RequireRole("MODERATOR"))

	tests := []struct {
		name   string
		token  string
		status int
		body   string
	}{
		{"missing token", "", http.StatusUnauthorized, "Unauthorized"},
		{"unknown token", "forged", http.StatusUnauthorized, "Unauthorized"},
		{"missing role", "reader", http.StatusForbidden, "Forbidden"},
		{"moderator", "moderator", http.StatusOK, "testModerator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, "/protected", tt.token)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}

	require.NotNil(t, seen)
}

func TestRequireRoleWithoutAuth(t *testing.T) {
	e, _ := newTestEcho(testServer(), stubVerifier{})
	e.GET("/guarded", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, RequireRole("MODERATOR"))

	rec := serve(e, http.MethodGet, "/guarded", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGlobalErrorHandler(t *testing.T) {
	e, _ := newTestEcho(testServer(), stubVerifier{})

	e.GET("/fields", func(c echo.Context) error {
		return errs.NewBadRequestError("Validation failed", true, nil, []errs.FieldError{
			{Field: "email", Error: "Email should be valid"},
			{Field: "firstName", Error: "must not be blank"},
		})
	})
	e.GET("/missing", func(c echo.Context) error {
		return errs.NewNotFoundError("User not found", true, nil)
	})
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("connection reset by peer")
	})
	e.GET("/duplicate", func(c echo.Context) error {
		return fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", TableName: "audit_events"})
	})
	e.GET("/echo", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "payload too large")
	})

	t.Run("field errors render as a json map", func(t *testing.T) {
		rec := serve(e, http.MethodGet, "/fields", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
		assert.JSONEq(t, `{"email":"Email should be valid","firstName":"must not be blank"}`, rec.Body.String())
	})

	t.Run("other errors render as plain text", func(t *testing.T) {
		rec := serve(e, http.MethodGet, "/missing", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMETextPlain)
		assert.Equal(t, "User not found", rec.Body.String())
	})

	t.Run("unknown errors are hidden", func(t *testing.T) {
		rec := serve(e, http.MethodGet, "/boom", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal Server Error", rec.Body.String())
	})

	t.Run("database errors are translated", func(t *testing.T) {
		rec := serve(e, http.MethodGet, "/duplicate", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("echo errors keep their status", func(t *testing.T) {
		rec := serve(e, http.MethodGet, "/echo", "")
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, "payload too large", rec.Body.String())
	})

	t.Run("unknown routes", func(t *testing.T) {
		rec := serve(e, http.MethodGet, "/nowhere", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Route not found", rec.Body.String())
	})
}

func TestRequestID(t *testing.T) {
	e, _ := newTestEcho(testServer(), stubVerifier{})
	e.GET("/id", func(c echo.Context) error {
		return c.String(http.StatusOK, GetRequestID(c))
	})

	rec := serve(e, http.MethodGet, "/id", "")
	generated := rec.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestRateLimit(t *testing.T) {
	s := testServer()
	s.Config.Server.RateLimit = 1
	s.Config.Server.RateLimitBurst = 1

	e, _ := newTestEcho(s, stubVerifier{})
	e.GET("/limited", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/status", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/limited", "").Code)

	rec := serve(e, http.MethodGet, "/limited", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "Too many requests", rec.Body.String())

	for range 3 {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/status", "").Code)
	}
}

func TestLoggerFromContextFallback(t *testing.T) {
	fallback := zerolog.Nop()
	assert.Same(t, &fallback, LoggerFromContext(context.Background(), &fallback))
}
