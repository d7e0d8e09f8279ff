package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deppfellow/backend-resources/internal/config"
	"github.com/deppfellow/backend-resources/internal/model/user"
	"github.com/deppfellow/backend-resources/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer() *server.Server {
	logger := zerolog.Nop()
	return &server.Server{
		Config: &config.Config{
			Primary:       config.Primary{Env: "test"},
			Observability: config.DefaultObservabilityConfig(),
		},
		Logger: &logger,
	}
}

func TestNewRequestAllocatesFreshPayload(t *testing.T) {
	template := &user.GetUserRequest{ID: "stale"}

	first := newRequest(template)
	second := newRequest(template)

	assert.NotSame(t, template, first)
	assert.NotSame(t, first, second)
	assert.Empty(t, first.ID)
}

func TestCheckHealth(t *testing.T) {
	tests := []struct {
		name    string
		checks  map[string]HealthCheck
		status  int
		overall string
	}{
		{
			name: "all healthy",
			checks: map[string]HealthCheck{
				"database": func(context.Context) error { return nil },
				"keycloak": func(context.Context) error { return nil },
			},
			status:  http.StatusOK,
			overall: "healthy",
		},
		{
			name: "keycloak down",
			checks: map[string]HealthCheck{
				"database": func(context.Context) error { return nil },
				"keycloak": func(context.Context) error { return errors.New("connection refused") },
			},
			status:  http.StatusServiceUnavailable,
			overall: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(testServer(), tt.checks)

			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/status", nil), rec)

			require.NoError(t, h.CheckHealth(c))
			assert.Equal(t, tt.status, rec.Code)

			var body struct {
				Status string                       `json:"status"`
				Checks map[string]map[string]string `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.overall, body.Status)
			assert.Len(t, body.Checks, len(tt.checks))
		})
	}
}

func TestCheckHealthSkipsDisabledChecks(t *testing.T) {
	s := testServer()
	s.Config.Observability.HealthChecks.Checks = []string{"database"}

	h := NewHealthHandler(s, map[string]HealthCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("unreachable") },
	})

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/status", nil), rec)

	require.NoError(t, h.CheckHealth(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "redis")
}

func TestHandleTextWritesPlainBody(t *testing.T) {
	e := echo.New()
	h := NewHandler(testServer())

	e.GET("/hello", HandleText(h, func(c echo.Context, _ *user.HelloRequest) (string, error) {
		return "testModerator", nil
	}, &user.HelloRequest{}))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/hello", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMETextPlain)
	assert.Equal(t, "testModerator", rec.Body.String())
}
