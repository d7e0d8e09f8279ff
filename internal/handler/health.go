package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/deppfellow/backend-resources/internal/middleware"
	"github.com/deppfellow/backend-resources/internal/server"
	"github.com/labstack/echo/v4"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports the service and its dependencies. Dependencies
// disabled in the observability config are skipped.
type HealthHandler struct {
	Handler
	checks map[string]HealthCheck
}

func NewHealthHandler(s *server.Server, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
		checks:  checks,
	}
}

func defaultHealthChecks(s *server.Server) map[string]HealthCheck {
	checks := map[string]HealthCheck{}
	if s.DB != nil {
		checks["database"] = s.DB.Ping
	}
	if s.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return s.Redis.Ping(ctx).Err()
		}
	}
	if s.Keycloak != nil {
		checks["keycloak"] = s.Keycloak.Ping
	}
	return checks
}

func (h *HealthHandler) enabledChecks() []string {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		if h.server.Config.Observability.HealthCheckEnabled(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// CheckHealth answers 200 when every enabled check passes and 503
// otherwise.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()
	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	timeout := h.server.Config.Observability.HealthChecks.Timeout
	checks := make(map[string]interface{})
	isHealthy := true

	for _, name := range h.enabledChecks() {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		checkStart := time.Now()
		err := h.checks[name](ctx)
		cancel()

		result := map[string]interface{}{
			"status":        "healthy",
			"response_time": time.Since(checkStart).String(),
		}

		if err != nil {
			isHealthy = false
			result["status"] = "unhealthy"
			result["error"] = err.Error()

			logger.Error().
				Err(err).
				Str("check", name).
				Dur("response_time", time.Since(checkStart)).
				Msg("health check failed")

			if app := h.server.LoggerService.GetApplication(); app != nil {
				app.RecordCustomEvent("HealthCheckError", map[string]interface{}{
					"check_type":       name,
					"operation":        "health_check",
					"error_type":       name + "_unhealthy",
					"response_time_ms": time.Since(checkStart).Milliseconds(),
					"error_message":    err.Error(),
				})
			}
		}

		checks[name] = result
	}

	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": h.server.Config.Primary.Env,
		"checks":      checks,
	}

	if !isHealthy {
		response["status"] = "unhealthy"
		logger.Warn().Dur("total_duration", time.Since(start)).Msg("health check failed")
		return c.JSON(http.StatusServiceUnavailable, response)
	}

	logger.Debug().Dur("total_duration", time.Since(start)).Msg("health check passed")
	return c.JSON(http.StatusOK, response)
}
