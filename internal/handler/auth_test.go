package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kisara-app/kisara-api/internal/auth"
	"github.com/kisara-app/kisara-api/internal/config"
	"github.com/kisara-app/kisara-api/internal/model"
	"github.com/kisara-app/kisara-api/internal/utils"
)

func testAuthHandler(users *fakeUsers, tokens *fakeTokens, resolver *fakeResolver) *AuthHandler {
	cfg := config.Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 365,
	}
	return NewAuthHandler(cfg, users, tokens, resolver)
}

func TestGoogleURL(t *testing.T) {
	h := testAuthHandler(newFakeUsers(), newFakeTokens(), &fakeResolver{})

	rec, env := doRequest(t, h.GoogleURL, testRequest{method: http.MethodGet, path: "/auth/google/url"})
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Contains(t, data.URL, "state=")
}

func TestGoogleMobileLogin(t *testing.T) {
	users := newFakeUsers()
	tokens := newFakeTokens()
	resolver := &fakeResolver{idTokens: map[string]auth.Profile{
		"id-tok": {Email: "alice@example.com", Name: "Alice", Picture: "https://img.example.com/a.png"},
	}}
	h := testAuthHandler(users, tokens, resolver)

	rec, env := doRequest(t, h.GoogleMobile, testRequest{
		method: http.MethodPost, path: "/auth/google/mobile",
		body: map[string]string{"id_token": "id-tok"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		AccessToken  string   `json:"access_token"`
		RefreshToken string   `json:"refresh_token"`
		ExpiresIn    int      `json:"expires_in"`
		User         userPart `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))

	assert.Equal(t, 900, data.ExpiresIn)
	assert.Len(t, data.RefreshToken, 128)
	assert.Equal(t, "alice@example.com", data.User.Email)
	assert.Equal(t, "Alice", data.User.Name)
	assert.Len(t, data.User.LinkID, 7)
	assert.Equal(t, model.RoleUser, data.User.Role)

	email, role, err := utils.ParseAccessToken("test-secret", data.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)
	assert.Equal(t, model.RoleUser, role)

	// Only the hash of the refresh token is stored.
	_, ok := tokens.byHash[data.RefreshToken]
	assert.False(t, ok)
	_, ok = tokens.byHash[utils.HashRefreshRaw(data.RefreshToken)]
	assert.True(t, ok)
}

func TestGoogleMobileInvalidToken(t *testing.T) {
	h := testAuthHandler(newFakeUsers(), newFakeTokens(), &fakeResolver{})

	rec, _ := doRequest(t, h.GoogleMobile, testRequest{
		method: http.MethodPost, path: "/auth/google/mobile",
		body: map[string]string{"id_token": "forged"},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGoogleMobileMissingBody(t *testing.T) {
	h := testAuthHandler(newFakeUsers(), newFakeTokens(), &fakeResolver{})

	rec, env := doRequest(t, h.GoogleMobile, testRequest{
		method: http.MethodPost, path: "/auth/google/mobile",
		body: map[string]string{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, env.Errors, 1)
	assert.Equal(t, "id_token", env.Errors[0].Field)
}

func TestGoogleCallback(t *testing.T) {
	resolver := &fakeResolver{codes: map[string]auth.Profile{
		"the-code": {Email: "alice@example.com", Name: "Alice"},
	}}
	h := testAuthHandler(newFakeUsers(), newFakeTokens(), resolver)

	rec, env := doRequest(t, h.GoogleCallback, testRequest{
		method: http.MethodPost, path: "/auth/google/callback",
		body: map[string]string{"code": "the-code"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 900, data.ExpiresIn)
	assert.NotEmpty(t, data.AccessToken)
}

func TestGoogleLoginIsUpsert(t *testing.T) {
	users := newFakeUsers()
	resolver := &fakeResolver{idTokens: map[string]auth.Profile{
		"id-tok": {Email: "alice@example.com", Name: "Alice"},
	}}
	h := testAuthHandler(users, newFakeTokens(), resolver)

	for i := 0; i < 2; i++ {
		rec, _ := doRequest(t, h.GoogleMobile, testRequest{
			method: http.MethodPost, path: "/auth/google/mobile",
			body: map[string]string{"id_token": "id-tok"},
		})
		require.Equal(t, http.StatusOK, rec.Code)
	}
	n, _ := users.Count(context.Background())
	assert.Equal(t, int64(1), n)
}

func TestRefresh(t *testing.T) {
	users := newFakeUsers()
	tokens := newFakeTokens()
	resolver := &fakeResolver{idTokens: map[string]auth.Profile{
		"id-tok": {Email: "alice@example.com", Name: "Alice"},
	}}
	h := testAuthHandler(users, tokens, resolver)

	_, env := doRequest(t, h.GoogleMobile, testRequest{
		method: http.MethodPost, path: "/auth/google/mobile",
		body: map[string]string{"id_token": "id-tok"},
	})
	var login struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))

	rec, env := doRequest(t, h.Refresh, testRequest{
		method: http.MethodPost, path: "/auth/google/refresh",
		body: map[string]string{"refresh_token": login.RefreshToken},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.NotEmpty(t, data.AccessToken)
	assert.Equal(t, 900, data.ExpiresIn)
	// The refresh token is not rotated; the client keeps the one it has.
	assert.Empty(t, data.RefreshToken)

	// Same token keeps working.
	rec, _ = doRequest(t, h.Refresh, testRequest{
		method: http.MethodPost, path: "/auth/google/refresh",
		body: map[string]string{"refresh_token": login.RefreshToken},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRefreshUnknownToken(t *testing.T) {
	h := testAuthHandler(newFakeUsers(), newFakeTokens(), &fakeResolver{})

	rec, env := doRequest(t, h.Refresh, testRequest{
		method: http.MethodPost, path: "/auth/google/refresh",
		body: map[string]string{"refresh_token": "never-issued"},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid refresh token", env.Message)
}

func TestLogoutRevokesToken(t *testing.T) {
	users := newFakeUsers()
	tokens := newFakeTokens()
	resolver := &fakeResolver{idTokens: map[string]auth.Profile{
		"id-tok": {Email: "alice@example.com", Name: "Alice"},
	}}
	h := testAuthHandler(users, tokens, resolver)

	_, env := doRequest(t, h.GoogleMobile, testRequest{
		method: http.MethodPost, path: "/auth/google/mobile",
		body: map[string]string{"id_token": "id-tok"},
	})
	var login struct {
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))

	rec, _ := doRequest(t, h.Logout, testRequest{
		method: http.MethodPost, path: "/auth/google/logout",
		body: map[string]string{"refresh_token": login.RefreshToken},
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	// The revoked token no longer refreshes.
	rec, _ = doRequest(t, h.Refresh, testRequest{
		method: http.MethodPost, path: "/auth/google/refresh",
		body: map[string]string{"refresh_token": login.RefreshToken},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Logging out twice is fine.
	rec, _ = doRequest(t, h.Logout, testRequest{
		method: http.MethodPost, path: "/auth/google/logout",
		body: map[string]string{"refresh_token": login.RefreshToken},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}
