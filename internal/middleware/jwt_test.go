package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kisara-app/kisara-api/internal/model"
	"github.com/kisara-app/kisara-api/internal/repository"
	"github.com/kisara-app/kisara-api/internal/utils"
)

const testSecret = "test-secret"

type fakeUserLoader struct {
	users map[string]model.User
}

func (f *fakeUserLoader) GetByEmail(_ context.Context, email string) (model.User, error) {
	u, ok := f.users[email]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func authRequest(t *testing.T, loader *fakeUserLoader, header string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := JWTAuth(testSecret, loader)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, c
}

func TestJWTAuthValidToken(t *testing.T) {
	loader := &fakeUserLoader{users: map[string]model.User{
		"alice@example.com": {ID: "u1", Email: "alice@example.com", Role: model.RoleUser},
	}}
	tok, err := utils.NewAccessToken(testSecret, "alice@example.com", model.RoleUser, 15)
	require.NoError(t, err)

	rec, c := authRequest(t, loader, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", c.Get(ContextUserID))
	assert.Equal(t, "alice@example.com", c.Get(ContextEmail))
	assert.Equal(t, model.RoleUser, c.Get(ContextRole))
}

func TestJWTAuthMissingHeader(t *testing.T) {
	rec, _ := authRequest(t, &fakeUserLoader{}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthMalformedToken(t *testing.T) {
	rec, _ := authRequest(t, &fakeUserLoader{}, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthWrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("other-secret", "alice@example.com", model.RoleUser, 15)
	require.NoError(t, err)

	rec, _ := authRequest(t, &fakeUserLoader{}, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthUnknownUser(t *testing.T) {
	tok, err := utils.NewAccessToken(testSecret, "ghost@example.com", model.RoleUser, 15)
	require.NoError(t, err)

	rec, _ := authRequest(t, &fakeUserLoader{users: map[string]model.User{}}, "Bearer "+tok.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	h := RequireRole(model.RoleUser, model.RoleAdmin)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	run := func(role any) int {
		req := httptest.NewRequest(http.MethodGet, "/user", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if role != nil {
			c.Set(ContextRole, role)
		}
		require.NoError(t, h(c))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, run(model.RoleUser))
	assert.Equal(t, http.StatusOK, run(model.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, run(model.RoleBot))
	assert.Equal(t, http.StatusForbidden, run(nil))
}
