// Package repository holds the SQL that reads and writes the service's own
// tables. Identity data lives in Keycloak and never passes through here.
package repository

import (
	"github.com/deppfellow/backend-resources/internal/server"
)

type Repositories struct {
	Audit *AuditRepository
}

func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		Audit: NewAuditRepository(s.DB.Pool),
	}
}
