package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/citylaw/docket/internal/auth"
)

// --- Auth URL tests ---

func TestNewGoogleProvider_AuthURL(t *testing.T) {
	t.Parallel()

	p := auth.NewGoogleProvider("google-client-id", "google-secret", "https://example.com/callback")
	authURL := p.AuthorizationURL("test-state")

	require.NotEmpty(t, authURL)
	assert.Contains(t, authURL, "accounts.google.com")
	assert.Contains(t, authURL, "client_id=google-client-id")
	assert.Contains(t, authURL, "state=test-state")
	assert.Contains(t, authURL, "redirect_uri="+url.QueryEscape("https://example.com/callback"))
	assert.Contains(t, authURL, "response_type=code")
	assert.Equal(t, "google", p.Name)
}

func TestNewMicrosoftProvider_AuthURL(t *testing.T) {
	t.Parallel()

	p := auth.NewMicrosoftProvider("contoso", "ms-client-id", "ms-secret", "https://example.com/ms-callback")
	authURL := p.AuthorizationURL("ms-state")

	require.NotEmpty(t, authURL)
	assert.Contains(t, authURL, "login.microsoftonline.com/contoso/oauth2/v2.0/authorize")
	assert.Contains(t, authURL, "client_id=ms-client-id")
	assert.Contains(t, authURL, "state=ms-state")
	assert.Contains(t, authURL, "User.Read")
	assert.Equal(t, "microsoft", p.Name)
}

func TestMicrosoftProvider_DefaultTenant(t *testing.T) {
	t.Parallel()

	p := auth.NewMicrosoftProvider("", "cid", "csec", "https://example.com/cb")

	assert.Contains(t, p.AuthorizationURL("s"), "login.microsoftonline.com/common/")
}

func TestGoogleProvider_AuthURL_ContainsScopes(t *testing.T) {
	t.Parallel()

	p := auth.NewGoogleProvider("cid", "csec", "https://example.com/cb")
	authURL := p.AuthorizationURL("s")

	assert.Contains(t, authURL, "scope=")
	assert.Contains(t, authURL, "openid")
	assert.Contains(t, authURL, "email")
	assert.Contains(t, authURL, "profile")
}

// --- ExchangeCode tests ---
//
// ExchangeCode does two HTTP calls:
//   1. Token exchange (POST to TokenURL) -- handled by oauth2 library.
//   2. User info fetch (GET to UserInfoURL) -- handled by OAuthProvider.
//
// The token endpoint is redirected to an httptest server through the
// oauth2.HTTPClient context value; user info goes through an injected
// HTTPClient.

// mockHTTPClient implements auth.HTTPClient for testing user info responses.
type mockHTTPClient struct {
	handler http.Handler
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	m.handler.ServeHTTP(rec, req)
	return rec.Result(), nil
}

// tokenRedirectTransport redirects all HTTP requests to a test server.
type tokenRedirectTransport struct {
	targetBaseURL string
}

func (tr *tokenRedirectTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	newURL := tr.targetBaseURL + req.URL.Path
	if req.URL.RawQuery != "" {
		newURL += "?" + req.URL.RawQuery
	}

	newReq, err := http.NewRequestWithContext(req.Context(), req.Method, newURL, req.Body)
	if err != nil {
		return nil, err
	}
	newReq.Header = req.Header

	return http.DefaultTransport.RoundTrip(newReq)
}

// oauthCtx returns a context with an HTTP client that routes all oauth2 token
// exchange requests to the given test server URL.
func oauthCtx(t *testing.T, tokenServerURL string) context.Context {
	t.Helper()
	transport := &tokenRedirectTransport{targetBaseURL: tokenServerURL}
	client := &http.Client{Transport: transport}
	return context.WithValue(t.Context(), oauth2.HTTPClient, client)
}

// newFakeTokenServer returns an httptest server that returns a valid OAuth2 token.
func newFakeTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "fake-access-token",
			"token_type":   "Bearer",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newErrorTokenServer returns an httptest server that returns an OAuth2 error.
func newErrorTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "code is expired or invalid",
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func jsonHandler(body any) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})
}

func TestGoogleProvider_ExchangeCode_HappyPath(t *testing.T) {
	t.Parallel()

	tokenSrv := newFakeTokenServer(t)
	ctx := oauthCtx(t, tokenSrv.URL)

	var gotAuth string
	mock := &mockHTTPClient{
		handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			jsonHandler(map[string]string{
				"id":    "google-123",
				"email": "alice@city.gov",
				"name":  "Alice Smith",
			}).ServeHTTP(w, r)
		}),
	}

	p := auth.NewGoogleProvider("test-id", "test-secret", "https://example.com/cb")
	p.HTTPClient = mock

	info, err := p.ExchangeCode(ctx, "valid-code")

	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "google-123", info.ProviderID)
	assert.Equal(t, "alice@city.gov", info.Email)
	assert.Equal(t, "Alice Smith", info.Name)
	assert.Equal(t, "Bearer fake-access-token", gotAuth)
}

func TestMicrosoftProvider_ExchangeCode_HappyPath(t *testing.T) {
	t.Parallel()

	tokenSrv := newFakeTokenServer(t)
	ctx := oauthCtx(t, tokenSrv.URL)

	p := auth.NewMicrosoftProvider("contoso", "test-id", "test-secret", "https://example.com/cb")
	p.HTTPClient = &mockHTTPClient{handler: jsonHandler(map[string]any{
		"id":                "ms-42",
		"displayName":       "Bob Jones",
		"mail":              "bob@city.gov",
		"userPrincipalName": "bjones@city.onmicrosoft.com",
	})}

	info, err := p.ExchangeCode(ctx, "ms-valid-code")

	require.NoError(t, err)
	assert.Equal(t, "ms-42", info.ProviderID)
	assert.Equal(t, "bob@city.gov", info.Email)
	assert.Equal(t, "Bob Jones", info.Name)
}

func TestMicrosoftProvider_ExchangeCode_FallsBackToUPN(t *testing.T) {
	t.Parallel()

	tokenSrv := newFakeTokenServer(t)
	ctx := oauthCtx(t, tokenSrv.URL)

	p := auth.NewMicrosoftProvider("contoso", "test-id", "test-secret", "https://example.com/cb")
	p.HTTPClient = &mockHTTPClient{handler: jsonHandler(map[string]any{
		"id":                "ms-43",
		"displayName":       "Clerk",
		"mail":              nil,
		"userPrincipalName": "clerk@city.gov",
	})}

	info, err := p.ExchangeCode(ctx, "code")

	require.NoError(t, err)
	assert.Equal(t, "clerk@city.gov", info.Email, "should fall back to UPN when mail is empty")
}

func TestExchangeCode_InvalidCode_TokenError(t *testing.T) {
	t.Parallel()

	tokenSrv := newErrorTokenServer(t)
	ctx := oauthCtx(t, tokenSrv.URL)

	p := auth.NewGoogleProvider("test-id", "test-secret", "https://example.com/cb")

	info, err := p.ExchangeCode(ctx, "bad-code")

	require.Error(t, err)
	assert.Nil(t, info)
	assert.Contains(t, err.Error(), "auth.ExchangeCode")
}

func TestExchangeCode_UserInfoHTTPError(t *testing.T) {
	t.Parallel()

	tokenSrv := newFakeTokenServer(t)
	ctx := oauthCtx(t, tokenSrv.URL)

	mock := &mockHTTPClient{
		handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}),
	}

	p := auth.NewGoogleProvider("test-id", "test-secret", "https://example.com/cb")
	p.HTTPClient = mock

	info, err := p.ExchangeCode(ctx, "valid-code")

	require.Error(t, err)
	assert.Nil(t, info)
	assert.Contains(t, err.Error(), "user info returned 500")
}

func TestExchangeCode_MalformedResponse(t *testing.T) {
	t.Parallel()

	broken := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{not valid json`))
	})

	tests := []struct {
		name     string
		provider *auth.OAuthProvider
		want     string
	}{
		{"google", auth.NewGoogleProvider("id", "sec", "https://example.com/cb"), "parseGoogleUserInfo"},
		{"microsoft", auth.NewMicrosoftProvider("", "id", "sec", "https://example.com/cb"), "parseMicrosoftUserInfo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tokenSrv := newFakeTokenServer(t)
			ctx := oauthCtx(t, tokenSrv.URL)
			tt.provider.HTTPClient = &mockHTTPClient{handler: broken}

			info, err := tt.provider.ExchangeCode(ctx, "valid-code")

			require.Error(t, err)
			assert.Nil(t, info)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
