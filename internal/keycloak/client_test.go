package keycloak

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Nerzal/gocloak/v13"
	"github.com/deppfellow/backend-resources/internal/config"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRealm = "ITM"

// fakeKeycloak emulates the slice of the admin API the client uses.
type fakeKeycloak struct {
	mu         sync.Mutex
	users      map[string]gocloak.User
	tokenCalls atomic.Int32
	server     *httptest.Server
}

func newFakeKeycloak(t *testing.T) *fakeKeycloak {
	t.Helper()

	fk := &fakeKeycloak{users: map[string]gocloak.User{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /realms/{realm}/protocol/openid-connect/token", fk.token)
	mux.HandleFunc("GET /admin/realms/{realm}/users", fk.authorized(fk.search))
	mux.HandleFunc("POST /admin/realms/{realm}/users", fk.authorized(fk.create))
	mux.HandleFunc("GET /admin/realms/{realm}/users/{id}", fk.authorized(fk.get))
	mux.HandleFunc("DELETE /admin/realms/{realm}/users/{id}", fk.authorized(fk.remove))
	mux.HandleFunc("GET /admin/realms/{realm}/users/{id}/role-mappings/realm", fk.authorized(fk.roles))
	mux.HandleFunc("GET /admin/realms/{realm}/users/{id}/groups", fk.authorized(fk.groups))

	fk.server = httptest.NewServer(mux)
	t.Cleanup(fk.server.Close)
	return fk
}

func (fk *fakeKeycloak) token(w http.ResponseWriter, r *http.Request) {
	fk.tokenCalls.Add(1)

	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
		http.Error(w, `{"error":"unsupported_grant_type"}`, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": "admin-token",
		"token_type":   "Bearer",
		"expires_in":   300,
	})
}

func (fk *fakeKeycloak) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("realm") != testRealm {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Realm not found."})
			return
		}
		if r.Header.Get("Authorization") != "Bearer admin-token" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "HTTP 401 Unauthorized"})
			return
		}
		next(w, r)
	}
}

func (fk *fakeKeycloak) search(w http.ResponseWriter, r *http.Request) {
	fk.mu.Lock()
	defer fk.mu.Unlock()

	username := strings.ToLower(r.URL.Query().Get("username"))
	found := []gocloak.User{}
	for _, u := range fk.users {
		if gocloak.PString(u.Username) == username {
			found = append(found, u)
		}
	}
	writeJSON(w, http.StatusOK, found)
}

func (fk *fakeKeycloak) create(w http.ResponseWriter, r *http.Request) {
	var u gocloak.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"errorMessage": err.Error()})
		return
	}

	fk.mu.Lock()
	defer fk.mu.Unlock()

	username := strings.ToLower(gocloak.PString(u.Username))
	email := strings.ToLower(gocloak.PString(u.Email))
	for _, existing := range fk.users {
		if gocloak.PString(existing.Username) == username {
			writeJSON(w, http.StatusConflict, map[string]string{"errorMessage": "User exists with same username"})
			return
		}
		if gocloak.PString(existing.Email) == email {
			writeJSON(w, http.StatusConflict, map[string]string{"errorMessage": "User exists with same email"})
			return
		}
	}

	id := uuid.NewString()
	u.ID = gocloak.StringP(id)
	u.Username = gocloak.StringP(username)
	u.Email = gocloak.StringP(email)
	u.Credentials = nil
	fk.users[id] = u

	w.Header().Set("Location", fk.server.URL+"/admin/realms/"+testRealm+"/users/"+id)
	w.WriteHeader(http.StatusCreated)
}

func (fk *fakeKeycloak) lookup(w http.ResponseWriter, r *http.Request) (gocloak.User, bool) {
	fk.mu.Lock()
	defer fk.mu.Unlock()

	u, ok := fk.users[r.PathValue("id")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "User not found"})
	}
	return u, ok
}

func (fk *fakeKeycloak) get(w http.ResponseWriter, r *http.Request) {
	if u, ok := fk.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, u)
	}
}

func (fk *fakeKeycloak) remove(w http.ResponseWriter, r *http.Request) {
	if _, ok := fk.lookup(w, r); !ok {
		return
	}

	fk.mu.Lock()
	delete(fk.users, r.PathValue("id"))
	fk.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (fk *fakeKeycloak) roles(w http.ResponseWriter, r *http.Request) {
	if _, ok := fk.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, []map[string]string{
			{"id": uuid.NewString(), "name": "default-roles-itm"},
			{"id": uuid.NewString(), "name": "MODERATOR"},
		})
	}
}

func (fk *fakeKeycloak) groups(w http.ResponseWriter, r *http.Request) {
	if _, ok := fk.lookup(w, r); ok {
		writeJSON(w, http.StatusOK, []map[string]string{
			{"id": uuid.NewString(), "name": "moderators", "path": "/moderators"},
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, fk *fakeKeycloak) *Client {
	t.Helper()

	logger := zerolog.Nop()
	return New(config.KeycloakConfig{
		BaseURL:      fk.server.URL,
		Realm:        testRealm,
		ClientID:     "backend-resources",
		ClientSecret: "secret",
		Timeout:      5 * time.Second,
	}, &logger)
}

func newUser(username, email string) gocloak.User {
	return gocloak.User{
		Username:  gocloak.StringP(username),
		Email:     gocloak.StringP(email),
		FirstName: gocloak.StringP("testFirstName"),
		LastName:  gocloak.StringP("testLastName"),
		Enabled:   gocloak.BoolP(true),
	}
}

func TestClientLifecycle(t *testing.T) {
	fk := newFakeKeycloak(t)
	client := newTestClient(t, fk)
	ctx := t.Context()

	id, err := client.Create(ctx, newUser("testUsername", "Test@Example.com"))
	require.NoError(t, err)
	require.NoError(t, uuid.Validate(id))

	found, err := client.Search(ctx, "testUsername")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "testusername", gocloak.PString(found[0].Username))

	got, err := client.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", gocloak.PString(got.Email))
	assert.Equal(t, "testFirstName", gocloak.PString(got.FirstName))

	roles, err := client.RealmRoles(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"default-roles-itm", "MODERATOR"}, roles)

	groups, err := client.Groups(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"moderators"}, groups)

	require.NoError(t, client.Remove(ctx, id))

	_, err = client.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, int32(1), fk.tokenCalls.Load(), "service account token should be reused")
}

func TestClientCreateConflict(t *testing.T) {
	fk := newFakeKeycloak(t)
	client := newTestClient(t, fk)
	ctx := t.Context()

	_, err := client.Create(ctx, newUser("testUsername", "test@example.com"))
	require.NoError(t, err)

	_, err = client.Create(ctx, newUser("TESTUSERNAME", "other@example.com"))
	assert.ErrorIs(t, err, ErrConflict)

	_, err = client.Create(ctx, newUser("someoneElse", "TEST@example.com"))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestClientRemoveMissing(t *testing.T) {
	fk := newFakeKeycloak(t)
	client := newTestClient(t, fk)

	err := client.Remove(t.Context(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientPing(t *testing.T) {
	fk := newFakeKeycloak(t)
	client := newTestClient(t, fk)
	require.NoError(t, client.Ping(t.Context()))

	fk.server.Close()
	assert.Error(t, client.Ping(t.Context()), "a cached token must not hide an unreachable realm")
	assert.Equal(t, int32(1), fk.tokenCalls.Load())
}

func TestClientHonoursCallerContext(t *testing.T) {
	fk := newFakeKeycloak(t)
	client := newTestClient(t, fk)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := client.Search(ctx, "testUsername")
	require.Error(t, err)
	assert.Equal(t, int32(0), fk.tokenCalls.Load())

	_, err = client.Search(t.Context(), "testUsername")
	assert.NoError(t, err)
}
