package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"consentd/internal/auth"
	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/sentinel"
)

// Store persists operator accounts.
type Store interface {
	Create(ctx context.Context, op *auth.Operator) error
	FindByUsername(ctx context.Context, username string) (*auth.Operator, error)
}

// TokenIssuer signs operator access tokens.
type TokenIssuer interface {
	GenerateToken(username, role string) (string, error)
}

type Service struct {
	store  Store
	tokens TokenIssuer
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(store Store, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		store:  store,
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginResult pairs the signed token with the authenticated operator.
type LoginResult struct {
	AccessToken string
	Operator    *auth.Operator
}

// Login checks the credentials and issues a token. Unknown usernames and
// wrong passwords surface identically so the endpoint does not leak which
// usernames exist.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "username and password are required")
	}

	op, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "find operator")
	}
	if bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)) != nil {
		s.logger.WarnContext(ctx, "operator login rejected", "username", username)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
	}

	token, err := s.tokens.GenerateToken(op.Username, op.Role)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "sign token")
	}

	s.logger.InfoContext(ctx, "operator logged in", "username", username)
	return &LoginResult{AccessToken: token, Operator: op}, nil
}

// SeedDefaultOperator creates the demo operator account when absent.
func (s *Service) SeedDefaultOperator(ctx context.Context, username, password string) error {
	if _, err := s.store.FindByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "seed operator")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "hash operator password")
	}
	err = s.store.Create(ctx, &auth.Operator{
		Username:     username,
		PasswordHash: string(hash),
		Role:         "operator",
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil && !errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "seed operator")
	}
	s.logger.InfoContext(ctx, "default operator seeded", "username", username)
	return nil
}
