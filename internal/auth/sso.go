package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/citylaw/docket/internal/domain"
)

// ErrUnknownProvider is returned for a provider that is not configured.
var ErrUnknownProvider = errors.New("auth: unknown sso provider")

const (
	ssoStateBytes = 24
	ssoStateTTL   = 10 * time.Minute
)

// StateStore keeps SSO state values between the start and callback legs.
// TakeState must delete the value it returns.
type StateStore interface {
	PutState(ctx context.Context, state, value string, ttl time.Duration) error
	TakeState(ctx context.Context, state string) (string, error)
}

// SSO signs existing staff in through an external identity provider. It never
// creates accounts: the provider's email must match an active user.
type SSO struct {
	auth      *Service
	states    StateStore
	providers map[string]*OAuthProvider
}

// NewSSO builds the flow over the given providers, keyed by their Name.
func NewSSO(svc *Service, states StateStore, providers ...*OAuthProvider) *SSO {
	m := make(map[string]*OAuthProvider, len(providers))
	for _, p := range providers {
		m[p.Name] = p
	}
	return &SSO{auth: svc, states: states, providers: m}
}

// Enabled reports whether any provider is configured.
func (s *SSO) Enabled() bool {
	return len(s.providers) > 0
}

// Start returns the provider's authorization URL and remembers the state.
func (s *SSO) Start(ctx context.Context, provider string) (string, error) {
	p, ok := s.providers[provider]
	if !ok {
		return "", fmt.Errorf("auth.SSO.Start: %w", ErrUnknownProvider)
	}

	raw := make([]byte, ssoStateBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("auth.SSO.Start: %w", err)
	}
	state := hex.EncodeToString(raw)

	if err := s.states.PutState(ctx, state, provider, ssoStateTTL); err != nil {
		return "", fmt.Errorf("auth.SSO.Start: %w", err)
	}

	return p.AuthorizationURL(state), nil
}

// Complete consumes state, exchanges code and issues tokens for the matching
// staff account.
func (s *SSO) Complete(ctx context.Context, provider, state, code string) (*TokenPair, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, fmt.Errorf("auth.SSO.Complete: %w", ErrUnknownProvider)
	}

	issuedFor, err := s.states.TakeState(ctx, state)
	if err != nil || issuedFor != provider {
		return nil, fmt.Errorf("auth.SSO.Complete: state mismatch: %w", ErrInvalidToken)
	}

	info, err := p.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth.SSO.Complete: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("auth.SSO.Complete: provider returned no email: %w", ErrInvalidCredentials)
	}

	user, err := s.auth.userRepo.GetByEmail(ctx, normalizeEmail(info.Email))
	if errors.Is(err, domain.ErrNotFound) || (err == nil && !user.Active) {
		log.Info().Str("provider", provider).Str("email", info.Email).Msg("sso: no active staff account")
		return nil, fmt.Errorf("auth.SSO.Complete: %w", ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("auth.SSO.Complete: %w", err)
	}

	pair, err := s.auth.IssueTokens(user)
	if err != nil {
		return nil, fmt.Errorf("auth.SSO.Complete: %w", err)
	}
	return pair, nil
}
