package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// UserService manages accounts on behalf of admins.
type UserService struct {
	users   repository.UserRepository
	tickets repository.TicketRepository
	hasher  auth.Hasher
	logger  *zap.Logger
}

// UserUpdateInput holds optional changes; nil fields are left as they are.
type UserUpdateInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     *string
	IsActive *bool
}

// NewUserService constructs the service. tickets is consulted before an admin
// is demoted.
func NewUserService(users repository.UserRepository, tickets repository.TicketRepository, hasher auth.Hasher, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, tickets: tickets, hasher: hasher, logger: logger}
}

func requireAdmin(actor *domain.User) error {
	if actor == nil {
		return apperrors.NewMissingToken("authentication required")
	}
	return policy.Authorize(actor.Role, policy.ActionManageUsers, false)
}

// List returns every account.
func (s *UserService) List(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// Update applies input to the account id. An empty password keeps the
// current digest.
func (s *UserService) Update(ctx context.Context, actor *domain.User, id string, input UserUpdateInput) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "user")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", nil)
		}
		user.Name = name
	}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email == "" {
			return nil, apperrors.NewValidationError("email cannot be empty", nil)
		}
		user.Email = email
	}
	if input.Role != nil {
		role, err := domain.ParseRole(strings.TrimSpace(*input.Role))
		if err != nil {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": *input.Role})
		}
		if user.Role == domain.RoleAdmin && role != domain.RoleAdmin {
			if err := s.ensureNoAssignments(ctx, user.ID); err != nil {
				return nil, err
			}
		}
		user.Role = role
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if input.Password != nil && *input.Password != "" {
		hash, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, mapRepoErr(err, "user")
	}
	return user, nil
}

// ensureNoAssignments refuses to strip the admin role from a current assignee.
func (s *UserService) ensureNoAssignments(ctx context.Context, id string) error {
	if s.tickets == nil {
		return nil
	}
	assigned, err := s.tickets.List(ctx, repository.TicketFilter{AssignedAdminID: &id, Limit: 1})
	if err != nil {
		return apperrors.MapError(err)
	}
	if len(assigned) > 0 {
		return apperrors.NewConflict("user still has assigned tickets", map[string]any{"role": "admin"})
	}
	return nil
}

// Delete removes the account id. Its sessions go with it; tickets it created
// or commented on block the delete.
func (s *UserService) Delete(ctx context.Context, actor *domain.User, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return mapRepoErr(err, "user")
	}
	s.logger.Info("user deleted", zap.String("user_id", id), zap.String("by", actor.ID))
	return nil
}
