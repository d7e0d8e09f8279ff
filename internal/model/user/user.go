package user

import (
	"github.com/Nerzal/gocloak/v13"
)

// UserResponse is the public view of an identity. Role and group data are
// only exposed through UserAccessResponse.
type UserResponse struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// UserAccessResponse adds the realm roles and group names of the identity.
type UserAccessResponse struct {
	UserResponse
	Role   []string `json:"role"`
	Groups []string `json:"groups"`
}

// FromRepresentation maps a Keycloak user onto the public view.
func FromRepresentation(rep *gocloak.User) *UserResponse {
	return &UserResponse{
		FirstName: gocloak.PString(rep.FirstName),
		LastName:  gocloak.PString(rep.LastName),
		Email:     gocloak.PString(rep.Email),
	}
}

// Representation builds the Keycloak user for a creation request. The
// account is enabled with a permanent password.
func (r *UserRequest) Representation() gocloak.User {
	return gocloak.User{
		Username:  gocloak.StringP(r.Username),
		Email:     gocloak.StringP(r.Email),
		FirstName: gocloak.StringP(r.FirstName),
		LastName:  gocloak.StringP(r.LastName),
		Enabled:   gocloak.BoolP(true),
		Credentials: &[]gocloak.CredentialRepresentation{
			{
				Type:      gocloak.StringP("password"),
				Value:     gocloak.StringP(r.Password),
				Temporary: gocloak.BoolP(false),
			},
		},
	}
}
