// Package service holds the business operations behind the HTTP handlers.
//
// Handlers pass it validated input; it talks to Keycloak, records the audit
// trail and schedules background work, returning *errs.HTTPError for every
// failure the caller should see.
package service

import (
	"github.com/deppfellow/backend-resources/internal/repository"
	"github.com/deppfellow/backend-resources/internal/server"
)

type Services struct {
	User *UserService
}

func NewServices(s *server.Server, repos *repository.Repositories) *Services {
	return &Services{
		User: NewUserService(s.Logger, s.Keycloak, repos.Audit, s.Job.Client),
	}
}
