package router

import (
	"github.com/deppfellow/backend-resources/internal/handler"
	"github.com/deppfellow/backend-resources/static"
	"github.com/labstack/echo/v4"
)

// registerSystemRoutes exposes the unauthenticated health and documentation
// endpoints.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET("/status", h.Health.CheckHealth)
	r.StaticFS("/static", static.Files)
	r.GET("/docs", h.OpenAPI.ServeOpenAPIUI)
}
