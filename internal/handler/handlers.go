package handler

import (
	"github.com/deppfellow/backend-resources/internal/server"
	"github.com/deppfellow/backend-resources/internal/service"
)

type Handlers struct {
	User    *UserHandler
	Health  *HealthHandler
	OpenAPI *OpenAPIHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		User:    NewUserHandler(s, services.User),
		Health:  NewHealthHandler(s, defaultHealthChecks(s)),
		OpenAPI: NewOpenAPIHandler(s),
	}
}
