package handler

import (
	"net/http"

	"github.com/deppfellow/backend-resources/internal/server"
	"github.com/deppfellow/backend-resources/static"
	"github.com/labstack/echo/v4"
)

// OpenAPIHandler serves the interactive API documentation.
type OpenAPIHandler struct {
	Handler
}

func NewOpenAPIHandler(s *server.Server) *OpenAPIHandler {
	return &OpenAPIHandler{
		Handler: NewHandler(s),
	}
}

// ServeOpenAPIUI writes the documentation page. It loads /static/openapi.json
// in the browser.
func (h *OpenAPIHandler) ServeOpenAPIUI(c echo.Context) error {
	page, err := static.Files.ReadFile("openapi.html")
	if err != nil {
		return err
	}

	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.HTMLBlob(http.StatusOK, page)
}
