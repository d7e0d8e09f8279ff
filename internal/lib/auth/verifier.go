package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/deppfellow/backend-resources/internal/config"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenVerifier turns a raw bearer token into a Principal.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*Principal, error)
}

// OIDCVerifier checks signature, issuer, expiry and (optionally) audience
// against the realm's published keys.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
	clientID string
}

type accessClaims struct {
	Subject           string `json:"sub"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	ResourceAccess map[string]struct {
		Roles []string `json:"roles"`
	} `json:"resource_access"`
}

// NewOIDCVerifier fetches signing keys lazily from the realm JWKS endpoint,
// so construction never blocks on Keycloak.
func NewOIDCVerifier(ctx context.Context, cfg config.AuthConfig) *OIDCVerifier {
	keySet := oidc.NewRemoteKeySet(ctx, cfg.JWKSURL())
	return NewOIDCVerifierWithKeySet(cfg, keySet)
}

// NewOIDCVerifierWithKeySet uses the given key set, e.g. an oidc.StaticKeySet.
func NewOIDCVerifierWithKeySet(cfg config.AuthConfig, keySet oidc.KeySet) *OIDCVerifier {
	oidcConfig := &oidc.Config{
		ClientID:          cfg.Audience,
		SkipClientIDCheck: cfg.Audience == "",
	}

	return &OIDCVerifier{
		verifier: oidc.NewVerifier(cfg.Issuer, keySet, oidcConfig),
		clientID: cfg.ClientID,
	}
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Principal, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	var claims accessClaims
	if err := token.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: decode claims: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	roles := slices.Clone(claims.RealmAccess.Roles)
	if client, ok := claims.ResourceAccess[v.clientID]; ok && v.clientID != "" {
		roles = append(roles, client.Roles...)
	}

	return &Principal{
		Subject:  claims.Subject,
		Username: claims.PreferredUsername,
		Email:    claims.Email,
		Roles:    roles,
	}, nil
}
