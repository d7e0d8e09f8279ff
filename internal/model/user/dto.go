package user

import (
	"github.com/deppfellow/backend-resources/internal/validation"
	"github.com/google/uuid"
)

// UserRequest is the payload for creating an identity.
type UserRequest struct {
	Username  string `json:"username" validate:"min=2,max=30"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"min=5"`
	FirstName string `json:"firstName" validate:"notblank"`
	LastName  string `json:"lastName" validate:"notblank"`
}

func (r *UserRequest) Validate() error {
	return validation.ValidateStruct(r)
}

func (r *UserRequest) ValidationMessages() map[string]string {
	return map[string]string{
		"email":    "Email should be valid",
		"username": "Username should be between 2 and 30 characters long",
		"password": "Password should be greater than 4 characters long",
	}
}

// GetUserRequest addresses a single identity by its provider id. The id is
// accepted in either letter case.
type GetUserRequest struct {
	ID string `param:"id" validate:"required,uuid_rfc4122"`
}

func (r *GetUserRequest) Validate() error {
	return validation.ValidateStruct(r)
}

// UserID is the canonical lower-case id. It is only meaningful after
// Validate succeeded.
func (r *GetUserRequest) UserID() uuid.UUID {
	return uuid.MustParse(r.ID)
}

// AuditTrailRequest addresses the audit events of one identity. Limit is
// optional and capped at 100.
type AuditTrailRequest struct {
	ID    string `param:"id" validate:"required,uuid_rfc4122"`
	Limit int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

func (r *AuditTrailRequest) Validate() error {
	return validation.ValidateStruct(r)
}

func (r *AuditTrailRequest) UserID() uuid.UUID {
	return uuid.MustParse(r.ID)
}

// HelloRequest carries nothing; the caller is taken from the token.
type HelloRequest struct{}

func (r *HelloRequest) Validate() error {
	return nil
}
