package v1_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/citylaw/docket/internal/api/v1"
	"github.com/citylaw/docket/internal/auth"
)

// ---------------------------------------------------------------------------
// POST /auth/login
// ---------------------------------------------------------------------------

func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t)
		v1.RegisterAuthRoutes(api, &mockAuthService{
			loginFunc: func(_ context.Context, email, password string) (*auth.TokenPair, error) {
				assert.Equal(t, "ada@city.gov", email)
				assert.Equal(t, "correct horse battery", password)
				return &auth.TokenPair{AccessToken: "access-tok", RefreshToken: "refresh-tok"}, nil
			},
		})

		resp := api.Post("/auth/login", map[string]any{
			"email":    "ada@city.gov",
			"password": "correct horse battery",
		})
		require.Equal(t, http.StatusOK, resp.Code)

		var body auth.TokenPair
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "access-tok", body.AccessToken)
		assert.Equal(t, "refresh-tok", body.RefreshToken)
	})

	t.Run("bad_credentials", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t)
		v1.RegisterAuthRoutes(api, &mockAuthService{
			loginFunc: func(context.Context, string, string) (*auth.TokenPair, error) {
				return nil, fmt.Errorf("auth.Login: %w", auth.ErrInvalidCredentials)
			},
		})

		resp := api.Post("/auth/login", map[string]any{"email": "ada@city.gov", "password": "nope"})
		require.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Equal(t, "authentication failed", jsonBody(t, resp.Body.Bytes())["error"])
	})

	t.Run("missing_password", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t)
		v1.RegisterAuthRoutes(api, &mockAuthService{})

		resp := api.Post("/auth/login", map[string]any{"email": "ada@city.gov"})
		require.Equal(t, http.StatusBadRequest, resp.Code)
		assert.NotEmpty(t, jsonBody(t, resp.Body.Bytes())["details"])
	})
}

// ---------------------------------------------------------------------------
// POST /auth/refresh
// ---------------------------------------------------------------------------

func TestRefresh(t *testing.T) {
	t.Parallel()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t)
		v1.RegisterAuthRoutes(api, &mockAuthService{
			refreshTokenFunc: func(_ context.Context, token string) (string, error) {
				assert.Equal(t, "refresh-tok", token)
				return "new-access", nil
			},
		})

		resp := api.Post("/auth/refresh", map[string]any{"refreshToken": "refresh-tok"})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, `{"accessToken":"new-access"}`, resp.Body.String())
	})

	t.Run("invalid_token", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t)
		v1.RegisterAuthRoutes(api, &mockAuthService{
			refreshTokenFunc: func(context.Context, string) (string, error) {
				return "", auth.ErrInvalidToken
			},
		})

		resp := api.Post("/auth/refresh", map[string]any{"refreshToken": "garbage"})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// Single sign-on
// ---------------------------------------------------------------------------

func TestSSORoutes(t *testing.T) {
	t.Parallel()

	t.Run("start", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t)
		v1.RegisterSSORoutes(api, &mockSSO{
			startFunc: func(_ context.Context, provider string) (string, error) {
				assert.Equal(t, "microsoft", provider)
				return "https://login.microsoftonline.com/authorize?state=abc", nil
			},
		})

		resp := api.Get("/auth/sso/microsoft/start")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, jsonBody(t, resp.Body.Bytes())["authorizationUrl"], "state=abc")
	})

	t.Run("unconfigured_provider", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t)
		v1.RegisterSSORoutes(api, &mockSSO{
			startFunc: func(context.Context, string) (string, error) { return "", auth.ErrUnknownProvider },
		})

		resp := api.Get("/auth/sso/google/start")
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("unsupported_provider", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t)
		v1.RegisterSSORoutes(api, &mockSSO{})

		resp := api.Get("/auth/sso/github/start")
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("callback", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t)
		v1.RegisterSSORoutes(api, &mockSSO{
			completeFunc: func(_ context.Context, provider, state, code string) (*auth.TokenPair, error) {
				assert.Equal(t, "google", provider)
				assert.Equal(t, "st4te", state)
				assert.Equal(t, "c0de", code)
				return &auth.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
			},
		})

		resp := api.Get("/auth/sso/google/callback?state=st4te&code=c0de")
		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, `{"accessToken":"a","refreshToken":"r"}`, resp.Body.String())
	})

	t.Run("callback_unknown_user", func(t *testing.T) {
		t.Parallel()

		api := newAPI(t)
		v1.RegisterSSORoutes(api, &mockSSO{
			completeFunc: func(context.Context, string, string, string) (*auth.TokenPair, error) {
				return nil, auth.ErrInvalidCredentials
			},
		})

		resp := api.Get("/auth/sso/google/callback?state=s&code=c")
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}
