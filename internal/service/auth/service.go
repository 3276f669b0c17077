package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"customer-portal/internal/client"
	"customer-portal/internal/repository"
	"customer-portal/pkg/logger"
)

var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrNoCustomer   = errors.New("no customer linked to this account")
)

// DefaultNext is where a completed login lands without a next parameter.
const DefaultNext = "/portal"

const CallbackPath = "/auth/callback"

// IdentityProvider is the hosted passwordless-login backend.
type IdentityProvider interface {
	SendMagicLink(ctx context.Context, email, redirectTo, codeChallenge string) error
	ExchangeCode(ctx context.Context, code, verifier string) (*client.Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*client.Session, error)
}

type CustomerLookup interface {
	FindIDByUserID(ctx context.Context, userID string) (string, error)
}

type Service struct {
	idp       IdentityProvider
	customers CustomerLookup
	tokens    *TokenVerifier
	siteURL   string
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewService(idp IdentityProvider, customers CustomerLookup, tokens *TokenVerifier, siteURL string, logger *zap.Logger) *Service {
	return &Service{
		idp:       idp,
		customers: customers,
		tokens:    tokens,
		siteURL:   strings.TrimRight(siteURL, "/"),
		validate:  validator.New(),
		logger:    logger,
	}
}

// StartLogin sends a magic link and returns the PKCE verifier the caller
// must keep until the callback.
func (s *Service) StartLogin(ctx context.Context, email, next string) (string, error) {
	email = strings.TrimSpace(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return "", ErrInvalidEmail
	}

	verifier, err := NewCodeVerifier()
	if err != nil {
		return "", fmt.Errorf("failed to create code verifier: %w", err)
	}

	redirect := s.siteURL + CallbackPath
	if next = SafeNext(next); next != DefaultNext {
		redirect += "?next=" + url.QueryEscape(next)
	}
	if err := s.idp.SendMagicLink(ctx, email, redirect, CodeChallenge(verifier)); err != nil {
		return "", err
	}

	logger.WithTrace(ctx, s.logger).Info("Magic link requested")
	return verifier, nil
}

// CompleteLogin exchanges the callback code for a session.
func (s *Service) CompleteLogin(ctx context.Context, code, verifier string) (*client.Session, error) {
	if code == "" || verifier == "" {
		return nil, ErrUnauthenticated
	}
	session, err := s.idp.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return nil, err
	}
	if _, err := s.tokens.Verify(session.AccessToken); err != nil {
		return nil, err
	}
	return session, nil
}

// Authenticate resolves an access token to the customer it belongs to.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return "", err
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", ErrUnauthenticated
	}
	customerID, err := s.customers.FindIDByUserID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNoCustomer
		}
		return "", err
	}
	return customerID, nil
}

// Refresh trades a refresh token for a new session and resolves its customer.
// A refresh token the provider rejects is ErrUnauthenticated.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*client.Session, string, error) {
	if refreshToken == "" {
		return nil, "", ErrUnauthenticated
	}
	session, err := s.idp.RefreshSession(ctx, refreshToken)
	if err != nil {
		var perr *client.ProviderError
		if errors.As(err, &perr) && !perr.Retryable() {
			return nil, "", errors.Join(ErrUnauthenticated, err)
		}
		return nil, "", fmt.Errorf("failed to refresh session: %w", err)
	}
	customerID, err := s.Authenticate(ctx, session.AccessToken)
	if err != nil {
		return nil, "", err
	}

	logger.WithTrace(ctx, s.logger).Debug("Session refreshed")
	return session, customerID, nil
}

// SafeNext only allows same-site relative paths; anything else becomes DefaultNext.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return DefaultNext
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return DefaultNext
	}
	return next
}
