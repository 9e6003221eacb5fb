package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/citylaw/docket/internal/access"
	"github.com/citylaw/docket/internal/domain"
)

type jwtClaims struct {
	jwt.RegisteredClaims
	UserID       string `json:"uid"`
	Role         string `json:"role"`
	DepartmentID string `json:"dept,omitempty"`
	TokenType    string `json:"typ"`
}

// Auth authenticates the request from a bearer access token. Browsers cannot
// set headers on a WebSocket upgrade, so a "token" query parameter is accepted
// as well.
func Auth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := extractBearer(r)
			if tok == "" {
				tok = r.URL.Query().Get("token")
			}
			if tok != "" {
				if p, ok := authenticateJWT(tok, jwtSecret); ok {
					next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
					return
				}
			}

			writeError(w, http.StatusUnauthorized, "missing or invalid credentials")
		})
	}
}

func extractBearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return auth[7:]
	}
	return ""
}

func authenticateJWT(tokenStr, secret string) (access.Principal, bool) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return access.Principal{}, false
	}

	// Refresh tokens are only good for /auth/refresh.
	if claims.TokenType != "access" {
		return access.Principal{}, false
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return access.Principal{}, false
	}

	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return access.Principal{}, false
	}

	p := access.Principal{UserID: userID, Role: role}
	if claims.DepartmentID != "" {
		dept, err := uuid.Parse(claims.DepartmentID)
		if err != nil {
			return access.Principal{}, false
		}
		p.DepartmentID = &dept
	}
	return p, true
}

// UserLookup loads the account behind a principal.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}
