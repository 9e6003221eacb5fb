package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/citylaw/docket/internal/auth"
)

type LoginInput struct {
	Body struct {
		Email    string `json:"email" minLength:"3" maxLength:"255" doc:"Work email"`
		Password string `json:"password" minLength:"1" maxLength:"128" doc:"Password"` //nolint:gosec // G117: login credential DTO
	}
}

type TokenOutput struct {
	Body *auth.TokenPair
}

type RefreshInput struct {
	Body struct {
		RefreshToken string `json:"refreshToken" minLength:"1" doc:"Refresh token"` //nolint:gosec // G117: token refresh DTO
	}
}

type RefreshOutput struct {
	Body struct {
		AccessToken string `json:"accessToken"` //nolint:gosec // G117: auth response DTO
	}
}

type SSOStartInput struct {
	Provider string `path:"provider" enum:"google,microsoft" doc:"Identity provider"`
}

type SSOStartOutput struct {
	Body struct {
		AuthorizationURL string `json:"authorizationUrl"`
	}
}

type SSOCallbackInput struct {
	Provider string `path:"provider" enum:"google,microsoft" doc:"Identity provider"`
	State    string `query:"state" required:"true" doc:"State issued by the start endpoint"`
	Code     string `query:"code" required:"true" doc:"Authorization code"`
}

func RegisterAuthRoutes(api huma.API, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Exchange credentials for tokens",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *LoginInput) (*TokenOutput, error) {
		tokens, err := authSvc.Login(ctx, input.Body.Email, input.Body.Password)
		if err != nil {
			return nil, toHTTPError(err, "user")
		}
		return &TokenOutput{Body: tokens}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refresh-token",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Issue a new access token",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *RefreshInput) (*RefreshOutput, error) {
		access, err := authSvc.RefreshToken(ctx, input.Body.RefreshToken)
		if err != nil {
			return nil, toHTTPError(err, "user")
		}

		out := &RefreshOutput{}
		out.Body.AccessToken = access
		return out, nil
	})
}

// RegisterSSORoutes exposes the single sign-on handshake. It is only mounted
// when at least one provider is configured.
func RegisterSSORoutes(api huma.API, sso SSOService) {
	huma.Register(api, huma.Operation{
		OperationID: "sso-start",
		Method:      http.MethodGet,
		Path:        "/auth/sso/{provider}/start",
		Summary:     "Begin single sign-on",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *SSOStartInput) (*SSOStartOutput, error) {
		url, err := sso.Start(ctx, input.Provider)
		if err != nil {
			return nil, toHTTPError(err, "provider")
		}

		out := &SSOStartOutput{}
		out.Body.AuthorizationURL = url
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "sso-callback",
		Method:      http.MethodGet,
		Path:        "/auth/sso/{provider}/callback",
		Summary:     "Complete single sign-on",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *SSOCallbackInput) (*TokenOutput, error) {
		tokens, err := sso.Complete(ctx, input.Provider, input.State, input.Code)
		if err != nil {
			return nil, toHTTPError(err, "user")
		}
		return &TokenOutput{Body: tokens}, nil
	})
}
