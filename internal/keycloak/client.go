// Package keycloak talks to the Keycloak admin REST API.
//
// Keycloak is the system of record for identities. This package only
// proxies lookups, creation and removal; it never stores user data.
// Admin calls authenticate with a service-account token obtained through the
// OAuth2 client-credentials grant with the caller's context, and cached until
// it expires.
package keycloak

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/Nerzal/gocloak/v13"
	"github.com/deppfellow/backend-resources/internal/config"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var (
	// ErrNotFound is returned when the realm holds no matching identity.
	ErrNotFound = errors.New("keycloak: not found")
	// ErrConflict is returned when Keycloak rejects a duplicate username or email.
	ErrConflict = errors.New("keycloak: conflict")
)

// Client is a realm-scoped admin client.
type Client struct {
	gc          *gocloak.GoCloak
	realm       string
	credentials clientcredentials.Config
	httpClient  *http.Client
	logger      *zerolog.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

// New builds a client for cfg.Realm. No request is made until the first call.
func New(cfg config.KeycloakConfig, logger *zerolog.Logger) *Client {
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: newrelic.NewRoundTripper(http.DefaultTransport),
	}

	gc := gocloak.NewClient(strings.TrimRight(cfg.BaseURL, "/"))
	gc.RestyClient().SetTimeout(cfg.Timeout)
	gc.RestyClient().SetTransport(httpClient.Transport)

	return &Client{
		gc:    gc,
		realm: cfg.Realm,
		credentials: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL(),
		},
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *Client) Realm() string {
	return c.realm
}

// accessToken returns the cached service-account token, fetching a new one
// with ctx once it has expired.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token.Valid() {
		return c.token.AccessToken, nil
	}

	token, err := c.credentials.Token(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient))
	if err != nil {
		return "", fmt.Errorf("keycloak: obtain service account token: %w", err)
	}

	c.token = token
	return token.AccessToken, nil
}

// Ping authenticates and reads at most one user from the realm, so an
// unreachable Keycloak fails even while a token is cached.
func (c *Client) Ping(ctx context.Context) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	if _, err := c.gc.GetUsers(ctx, token, c.realm, gocloak.GetUsersParams{
		Max:                 gocloak.IntP(1),
		BriefRepresentation: gocloak.BoolP(true),
	}); err != nil {
		return translate("ping", err)
	}
	return nil
}

// Search returns identities whose username matches exactly. Keycloak
// stores usernames lower-cased, so the lookup ignores case.
func (c *Client) Search(ctx context.Context, username string) ([]*gocloak.User, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	users, err := c.gc.GetUsers(ctx, token, c.realm, gocloak.GetUsersParams{
		Username: gocloak.StringP(strings.ToLower(username)),
		Exact:    gocloak.BoolP(true),
	})
	if err != nil {
		return nil, translate("search users", err)
	}
	return users, nil
}

func (c *Client) Get(ctx context.Context, id string) (*gocloak.User, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	user, err := c.gc.GetUserByID(ctx, token, c.realm, id)
	if err != nil {
		return nil, translate("get user", err)
	}
	return user, nil
}

// Create registers the identity and returns the id Keycloak assigned.
func (c *Client) Create(ctx context.Context, user gocloak.User) (string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	id, err := c.gc.CreateUser(ctx, token, c.realm, user)
	if err != nil {
		return "", translate("create user", err)
	}

	c.logger.Debug().Str("realm", c.realm).Str("user_id", id).Msg("keycloak user created")
	return id, nil
}

func (c *Client) Remove(ctx context.Context, id string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	if err := c.gc.DeleteUser(ctx, token, c.realm, id); err != nil {
		return translate("delete user", err)
	}
	return nil
}

// RealmRoles lists the names of realm roles mapped to the identity.
func (c *Client) RealmRoles(ctx context.Context, id string) ([]string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	roles, err := c.gc.GetRealmRolesByUserID(ctx, token, c.realm, id)
	if err != nil {
		return nil, translate("get realm roles", err)
	}

	names := make([]string, 0, len(roles))
	for _, role := range roles {
		if name := gocloak.PString(role.Name); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// Groups lists the names of groups the identity belongs to.
func (c *Client) Groups(ctx context.Context, id string) ([]string, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := c.gc.GetUserGroups(ctx, token, c.realm, id, gocloak.GetGroupsParams{})
	if err != nil {
		return nil, translate("get user groups", err)
	}

	names := make([]string, 0, len(groups))
	for _, group := range groups {
		if name := gocloak.PString(group.Name); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func translate(op string, err error) error {
	var apiErr *gocloak.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		case http.StatusConflict:
			return fmt.Errorf("%s: %w: %s", op, ErrConflict, apiErr.Message)
		}
	}
	return fmt.Errorf("keycloak: %s: %w", op, err)
}
