package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardforgehq/cardforge/app/models"
	"github.com/cardforgehq/cardforge/internal/pkg/usercontext"
)

type fakeUserRepo struct {
	mu      sync.Mutex
	upserts []*models.User
	failAll bool
}

func (f *fakeUserRepo) Upsert(user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("db down")
	}
	f.upserts = append(f.upserts, user)
	return nil
}

func (f *fakeUserRepo) GetByID(id string) (*models.User, error) {
	return nil, errors.New("not found")
}

func (f *fakeUserRepo) Count() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.upserts)), nil
}

func newIdentityApp(users *fakeUserRepo) *fiber.App {
	// In-memory session storage is enough here; production uses Redis.
	store := fibersession.New()
	app := fiber.New()
	app.Use(UserContext(store, users))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.JSON(usercontext.Current(c))
	})
	app.Get("/protected", RequireAPIAuth, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestUserContextResolvesProxyHeaders(t *testing.T) {
	users := &fakeUserRepo{}
	app := newIdentityApp(users)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(HeaderAuthUser, "auth0|u1")
	req.Header.Set(HeaderAuthEmail, "u1@example.com")
	req.Header.Set(HeaderAuthPreferredUsername, "player one")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Len(t, users.upserts, 1)
	assert.Equal(t, "auth0|u1", users.upserts[0].ID)
	assert.Equal(t, "player one", users.upserts[0].Name)
	assert.Equal(t, "u1@example.com", users.upserts[0].Email)
}

func TestUserContextAnonymousWithoutHeaders(t *testing.T) {
	users := &fakeUserRepo{}
	app := newIdentityApp(users)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, users.upserts)
}

func TestUserContextSessionSurvivesWithoutHeaders(t *testing.T) {
	users := &fakeUserRepo{}
	app := newIdentityApp(users)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(HeaderAuthUser, "auth0|u1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Replay the session cookie without the proxy headers; the identity is
	// read from the session and no second upsert happens.
	cookie := resp.Header.Get(fiber.HeaderSetCookie)
	require.NotEmpty(t, cookie)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(fiber.HeaderCookie, cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, users.upserts, 1)
}

func TestUserContextUpsertFailureFallsBackToAnonymous(t *testing.T) {
	users := &fakeUserRepo{failAll: true}
	app := newIdentityApp(users)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(HeaderAuthUser, "auth0|u1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
