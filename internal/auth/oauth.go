package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
)

// HTTPClient fetches the provider's user info. It defaults to the
// token-bearing client built by oauth2.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// UserInfo is the identity a provider vouches for.
type UserInfo struct {
	ProviderID string
	Email      string
	Name       string
}

// OAuthProvider holds the configuration for an OAuth2 identity provider.
type OAuthProvider struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
	RedirectURL  string

	HTTPClient HTTPClient

	// oauthConfig is the compiled oauth2.Config.
	oauthConfig *oauth2.Config
}

// NewGoogleProvider returns an OAuth2 configuration for Google Workspace.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *OAuthProvider {
	p := &OAuthProvider{
		Name:         "google",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthURL:      google.Endpoint.AuthURL,
		TokenURL:     google.Endpoint.TokenURL,
		UserInfoURL:  "https://www.googleapis.com/oauth2/v2/userinfo",
		Scopes:       []string{"openid", "email", "profile"},
		RedirectURL:  redirectURL,
	}
	p.oauthConfig = p.buildConfig()
	return p
}

// NewMicrosoftProvider returns an OAuth2 configuration for Microsoft Entra ID.
// An empty tenant means "common".
func NewMicrosoftProvider(tenant, clientID, clientSecret, redirectURL string) *OAuthProvider {
	endpoint := microsoft.AzureADEndpoint(tenant)
	p := &OAuthProvider{
		Name:         "microsoft",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthURL:      endpoint.AuthURL,
		TokenURL:     endpoint.TokenURL,
		UserInfoURL:  "https://graph.microsoft.com/v1.0/me",
		Scopes:       []string{"openid", "email", "profile", "User.Read"},
		RedirectURL:  redirectURL,
	}
	p.oauthConfig = p.buildConfig()
	return p
}

func (p *OAuthProvider) buildConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.AuthURL,
			TokenURL: p.TokenURL,
		},
		Scopes:      p.Scopes,
		RedirectURL: p.RedirectURL,
	}
}

// AuthorizationURL returns the OAuth2 authorization URL with the given state parameter.
func (p *OAuthProvider) AuthorizationURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for tokens and fetches user info.
func (p *OAuthProvider) ExchangeCode(ctx context.Context, code string) (*UserInfo, error) {
	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth.ExchangeCode: %w", err)
	}

	client := p.HTTPClient
	if client == nil {
		client = p.oauthConfig.Client(ctx, token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth.ExchangeCode: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth.ExchangeCode: fetching user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth.ExchangeCode: user info returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("auth.ExchangeCode: reading user info: %w", err)
	}

	switch p.Name {
	case "google":
		return parseGoogleUserInfo(body)
	case "microsoft":
		return parseMicrosoftUserInfo(body)
	default:
		return nil, fmt.Errorf("auth.ExchangeCode: unsupported provider %q", p.Name)
	}
}

type googleUserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func parseGoogleUserInfo(data []byte) (*UserInfo, error) {
	var info googleUserInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("auth.parseGoogleUserInfo: %w", err)
	}

	return &UserInfo{ProviderID: info.ID, Email: info.Email, Name: info.Name}, nil
}

type microsoftUserInfo struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

func parseMicrosoftUserInfo(data []byte) (*UserInfo, error) {
	var info microsoftUserInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("auth.parseMicrosoftUserInfo: %w", err)
	}

	// Accounts without a mailbox only carry the UPN.
	email := info.Mail
	if email == "" {
		email = info.UserPrincipalName
	}

	return &UserInfo{ProviderID: info.ID, Email: email, Name: info.DisplayName}, nil
}
