package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/argon2"

	"github.com/citylaw/docket/internal/domain"
	"github.com/citylaw/docket/internal/patch"
)

// Sentinel errors for the auth package.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrUserAlreadyExists  = errors.New("auth: user already exists")
	ErrUserNotFound       = errors.New("auth: user not found")
)

// argon2id parameters following OWASP recommendations.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MiB
	argonThreads = 4
	argonKeyLen  = 32
	argonSaltLen = 16
)

const minPasswordLen = 12

// TokenPair is what a successful sign-in yields.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Service provides authentication and staff account operations.
type Service struct {
	userRepo   domain.UserRepository
	jwtSecret  string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewService creates a new auth service.
func NewService(userRepo domain.UserRepository, jwtSecret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		userRepo:   userRepo,
		jwtSecret:  jwtSecret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// NewUser is the admin payload for a staff account. Password may be empty
// for accounts that only sign in through SSO.
type NewUser struct {
	Email        string
	Password     string
	Name         string
	Role         domain.Role
	DepartmentID *uuid.UUID
	SlackUserID  string
}

// Register creates a staff account. The password is hashed with argon2id
// before storage.
func (s *Service) Register(ctx context.Context, in NewUser) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("auth.Register: %w", domain.NewValidationError("email", "email", "a valid email is required"))
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("auth.Register: %w", domain.NewValidationError("name", "required", "name is required"))
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("auth.Register: %w", domain.NewValidationError("role", "oneof", "unknown role"))
	}
	if in.Role == domain.RoleClientDept && in.DepartmentID == nil {
		return nil, fmt.Errorf("auth.Register: %w",
			domain.NewValidationError("departmentId", "required", "client department users need a department"))
	}
	if in.Password != "" && len(in.Password) < minPasswordLen {
		return nil, fmt.Errorf("auth.Register: %w",
			domain.NewValidationError("password", "min", fmt.Sprintf("password must be at least %d characters", minPasswordLen)))
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, fmt.Errorf("auth.Register: %w", ErrUserAlreadyExists)
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	var hash string
	if in.Password != "" {
		if hash, err = hashPassword(in.Password); err != nil {
			return nil, fmt.Errorf("auth.Register: %w", err)
		}
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Role:         in.Role,
		DepartmentID: in.DepartmentID,
		SlackUserID:  in.SlackUserID,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("auth.Register: %w", ErrUserAlreadyExists)
		}
		return nil, fmt.Errorf("auth.Register: %w", err)
	}

	return user, nil
}

// UserUpdate is a partial change to a staff account.
type UserUpdate struct {
	Name         patch.Field[string]
	Role         patch.Field[domain.Role]
	DepartmentID patch.Field[uuid.UUID]
	SlackUserID  patch.Field[string]
	Active       patch.Field[bool]
	Password     patch.Field[string]
}

// UpdateUser applies upd to the account id.
func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, upd UserUpdate) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("auth.UpdateUser: %w", err)
	}

	if upd.Name.Set && (upd.Name.Null || strings.TrimSpace(upd.Name.Value) == "") {
		return nil, fmt.Errorf("auth.UpdateUser: %w", domain.NewValidationError("name", "required", "name cannot be empty"))
	}
	if upd.Role.Set && (upd.Role.Null || !upd.Role.Value.Valid()) {
		return nil, fmt.Errorf("auth.UpdateUser: %w", domain.NewValidationError("role", "oneof", "unknown role"))
	}
	if upd.Password.HasValue() && len(upd.Password.Value) < minPasswordLen {
		return nil, fmt.Errorf("auth.UpdateUser: %w",
			domain.NewValidationError("password", "min", fmt.Sprintf("password must be at least %d characters", minPasswordLen)))
	}

	if upd.Name.HasValue() {
		user.Name = strings.TrimSpace(upd.Name.Value)
	}
	patch.ApplyValue(upd.Role, &user.Role)
	patch.Apply(upd.DepartmentID, &user.DepartmentID)
	if upd.SlackUserID.Set {
		user.SlackUserID = upd.SlackUserID.Value
	}
	patch.ApplyValue(upd.Active, &user.Active)
	if upd.Password.Set {
		user.PasswordHash = ""
		if upd.Password.HasValue() {
			if user.PasswordHash, err = hashPassword(upd.Password.Value); err != nil {
				return nil, fmt.Errorf("auth.UpdateUser: %w", err)
			}
		}
	}

	if user.Role == domain.RoleClientDept && user.DepartmentID == nil {
		return nil, fmt.Errorf("auth.UpdateUser: %w",
			domain.NewValidationError("departmentId", "required", "client department users need a department"))
	}

	user.UpdatedAt = s.now()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("auth.UpdateUser: %w", err)
	}

	return user, nil
}

// ListUsers returns every staff account.
func (s *Service) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth.ListUsers: %w", err)
	}
	return users, nil
}

// Login validates email/password and returns access + refresh JWT tokens.
// Inactive and SSO-only accounts cannot log in with a password.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	if !user.Active || !verifyPassword(password, user.PasswordHash) {
		return nil, fmt.Errorf("auth.Login: %w", ErrInvalidCredentials)
	}

	pair, err := s.IssueTokens(user)
	if err != nil {
		return nil, fmt.Errorf("auth.Login: %w", err)
	}
	return pair, nil
}

// IssueTokens signs a fresh token pair for user.
func (s *Service) IssueTokens(user *domain.User) (*TokenPair, error) {
	access, err := IssueAccessToken(s.jwtSecret, user, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := IssueRefreshToken(s.jwtSecret, user, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// RefreshToken validates a refresh token and issues a new access token. The
// role and department are re-read so that admin changes take effect.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := ValidateToken(s.jwtSecret, refreshToken)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	if claims.TokenType != tokenTypeRefresh {
		return "", fmt.Errorf("auth.RefreshToken: %w", ErrInvalidToken)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: invalid user id: %w", ErrInvalidToken)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || !user.Active {
		return "", fmt.Errorf("auth.RefreshToken: %w", ErrUserNotFound)
	}

	newAccess, err := IssueAccessToken(s.jwtSecret, user, s.accessTTL)
	if err != nil {
		return "", fmt.Errorf("auth.RefreshToken: %w", err)
	}

	return newAccess, nil
}

// GetUser returns a user by ID (for middleware use).
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("auth.GetUser: %w", err)
	}

	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// hashPassword generates an argon2id hash with a random salt.
// Format: hex(salt) + "$" + hex(hash)
func hashPassword(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(hash), nil
}

// verifyPassword checks a password against an argon2id hash.
func verifyPassword(password, encoded string) bool {
	saltHex, hashHex, ok := strings.Cut(encoded, "$")
	if !ok || saltHex == "" || hashHex == "" {
		return false
	}

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false
	}

	expectedHash, err := hex.DecodeString(hashHex)
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	return subtle.ConstantTimeCompare(computed, expectedHash) == 1
}
