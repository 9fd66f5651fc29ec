package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const bearerPrefix = "Bearer "

// Principal is the authenticated caller together with the token it presented.
type Principal struct {
	User  *domain.User
	Token string
}

// Authenticator resolves bearer tokens against the session store. Every
// service validates through it so the store can later move behind its own
// process without changing callers.
type Authenticator struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
}

// NewAuthenticator wires the stores.
func NewAuthenticator(sessions repository.SessionRepository, users repository.UserRepository) *Authenticator {
	return &Authenticator{sessions: sessions, users: users}
}

// ExtractToken strips an optional "Bearer " prefix. A bare scheme with no
// credentials yields "".
func ExtractToken(header string) string {
	header = strings.TrimLeft(header, " \t")
	if strings.EqualFold(strings.TrimSpace(header), strings.TrimSpace(bearerPrefix)) {
		return ""
	}
	if len(header) >= len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		header = header[len(bearerPrefix):]
	}
	return strings.TrimSpace(header)
}

// Authenticate resolves the raw Authorization header value to a principal.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*Principal, error) {
	token := ExtractToken(header)
	if token == "" {
		return nil, apperrors.NewMissingToken("missing bearer token")
	}

	session, err := a.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInvalidToken("invalid or expired token")
		}
		return nil, apperrors.NewInternalError(err)
	}

	user, err := a.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInvalidToken("invalid or expired token")
		}
		return nil, apperrors.NewInternalError(err)
	}
	if !user.IsActive {
		return nil, apperrors.NewInvalidToken("invalid or expired token")
	}

	return &Principal{User: user, Token: token}, nil
}
