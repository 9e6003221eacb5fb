package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/citylaw/docket/internal/domain"
)

// Claims holds the JWT token payload. Field types and JSON tags are compatible
// with the middleware's jwtClaims so tokens issued here are parsed correctly.
type Claims struct {
	jwt.RegisteredClaims
	UserID       string `json:"uid"`
	Role         string `json:"role"`
	DepartmentID string `json:"dept,omitempty"`
	TokenType    string `json:"typ"` // "access" or "refresh"
}

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	issuer = "docket"
)

// ErrInvalidToken is returned when a JWT cannot be parsed or has expired.
var ErrInvalidToken = errors.New("auth: invalid or expired token")

// IssueAccessToken creates a signed JWT access token for u.
func IssueAccessToken(secret string, u *domain.User, ttl time.Duration) (string, error) {
	return issueToken(secret, u.ID, u.Role, u.DepartmentID, tokenTypeAccess, ttl)
}

// IssueRefreshToken creates a signed JWT refresh token for u.
func IssueRefreshToken(secret string, u *domain.User, ttl time.Duration) (string, error) {
	return issueToken(secret, u.ID, u.Role, u.DepartmentID, tokenTypeRefresh, ttl)
}

func issueToken(secret string, userID uuid.UUID, role domain.Role, departmentID *uuid.UUID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
		UserID:    userID.String(),
		Role:      string(role),
		TokenType: tokenType,
	}
	if departmentID != nil {
		claims.DepartmentID = departmentID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth.issueToken: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and validates a JWT token string. Returns the embedded claims.
func ValidateToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	if !token.Valid {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	return claims, nil
}
