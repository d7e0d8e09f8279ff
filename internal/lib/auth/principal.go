// Package auth verifies Keycloak-issued bearer tokens and models the
// authenticated caller.
package auth

import (
	"context"
	"slices"
	"strings"
)

// Principal is the caller described by a verified access token.
type Principal struct {
	Subject  string
	Username string
	Email    string
	Roles    []string
}

// HasRole matches case-insensitively and ignores a "ROLE_" prefix on
// either side, so "MODERATOR", "moderator" and "ROLE_MODERATOR" are equal.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	want := normalizeRole(role)
	return slices.ContainsFunc(p.Roles, func(r string) bool {
		return normalizeRole(r) == want
	})
}

// HasAnyRole reports whether the principal holds at least one of roles.
func (p *Principal) HasAnyRole(roles ...string) bool {
	return slices.ContainsFunc(roles, p.HasRole)
}

// PrimaryRole returns preferred when held, otherwise the first role. It tags
// logs and traces.
func (p *Principal) PrimaryRole(preferred string) string {
	if p.HasRole(preferred) {
		return preferred
	}
	if p == nil || len(p.Roles) == 0 {
		return ""
	}
	return p.Roles[0]
}

func normalizeRole(role string) string {
	role = strings.ToUpper(strings.TrimSpace(role))
	return strings.TrimPrefix(role, "ROLE_")
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal stored by the auth middleware, if any.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}
