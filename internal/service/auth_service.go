package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AuthService coordinates registration, login and session validation.
type AuthService struct {
	users         repository.UserRepository
	sessions      repository.SessionRepository
	hasher        auth.Hasher
	tokens        auth.TokenGenerator
	authenticator *auth.Authenticator
	logger        *zap.Logger
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	SessionRepo repository.SessionRepository
	Hasher      auth.Hasher
	Tokens      auth.TokenGenerator
	Logger      *zap.Logger
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	IsActive *bool
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	tokens := deps.Tokens
	if tokens == nil {
		tokens = auth.RandomTokens{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:         deps.UserRepo,
		sessions:      deps.SessionRepo,
		hasher:        deps.Hasher,
		tokens:        tokens,
		authenticator: auth.NewAuthenticator(deps.SessionRepo, deps.UserRepo),
		logger:        logger,
	}
}

// Authenticator exposes the token validator for middleware usage.
func (s *AuthService) Authenticator() *auth.Authenticator {
	return s.authenticator
}

// Register creates a new account. Role defaults to gestor.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	role := domain.RoleGestor
	if err := policy.Authorize(role, policy.ActionRegister, false); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("name, email and password are required", nil)
	}
	if raw := strings.TrimSpace(input.Role); raw != "" {
		parsed, err := domain.ParseRole(raw)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": raw})
		}
		role = parsed
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, mapRepoErr(err, "user")
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// Login verifies credentials, revokes every prior session of the user and
// mints a new token. Concurrent logins of one user race; the last one wins.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", apperrors.NewValidationError("email and password are required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", apperrors.NewInvalidCredentials()
		}
		return nil, "", apperrors.NewInternalError(err)
	}
	if !s.hasher.Verify(password, user.PasswordHash) || !user.IsActive {
		return nil, "", apperrors.NewInvalidCredentials()
	}

	if _, err := s.sessions.DeleteByUser(ctx, user.ID); err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}
	token, err := s.tokens.NewToken()
	if err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}
	if err := s.sessions.Create(ctx, &domain.Session{Token: token, UserID: user.ID}); err != nil {
		return nil, "", mapRepoErr(err, "user")
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return user, token, nil
}

// Logout deletes the session bound to token. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	token = auth.ExtractToken(token)
	if token == "" {
		return apperrors.NewMissingToken("missing bearer token")
	}
	if err := s.sessions.DeleteByToken(ctx, token); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}

// Validate resolves a raw Authorization header to its principal.
func (s *AuthService) Validate(ctx context.Context, header string) (*auth.Principal, error) {
	return s.authenticator.Authenticate(ctx, header)
}
