// Package policy decides whether a role may perform an action. It performs no
// I/O; callers supply the ownership facts.
package policy

import (
	"fmt"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// Action names an operation gated by the policy.
type Action string

const (
	ActionRegister     Action = "register"
	ActionCreateTicket Action = "create_ticket"
	ActionListTickets  Action = "list_tickets"
	ActionViewTicket   Action = "view_ticket"
	ActionChangeStatus Action = "change_ticket_status"
	ActionAssignTicket Action = "assign_ticket"
	ActionComment      Action = "comment_ticket"
	ActionManageUsers  Action = "manage_users"
)

// Authorize returns nil when role may perform action, or a FORBIDDEN error.
// isCreator only matters for ownership-sensitive actions.
func Authorize(role domain.Role, action Action, isCreator bool) error {
	if allowed(role, action, isCreator) {
		return nil
	}
	return apperrors.NewForbidden(fmt.Sprintf("role %q may not %s", role, action))
}

func allowed(role domain.Role, action Action, isCreator bool) bool {
	if action == ActionRegister {
		return true
	}
	switch role {
	case domain.RoleAdmin:
		switch action {
		case ActionCreateTicket, ActionListTickets, ActionViewTicket,
			ActionChangeStatus, ActionAssignTicket, ActionComment, ActionManageUsers:
			return true
		}
		return false
	case domain.RoleGestor:
		switch action {
		case ActionCreateTicket, ActionListTickets:
			return true
		case ActionViewTicket, ActionComment:
			return isCreator
		case ActionChangeStatus, ActionAssignTicket, ActionManageUsers:
			return false
		}
		return false
	default:
		return false
	}
}

// ListScope describes which tickets a caller may list.
type ListScope struct {
	// CreatorID pins the listing to one creator when non-nil.
	CreatorID *string
	// Filters reports whether caller-supplied status/creator/assignee filters apply.
	Filters bool
}

// ScopeFor returns the listing scope of user. Gestores only ever see their own
// tickets and their filters are ignored.
func ScopeFor(user *domain.User) (ListScope, error) {
	if err := Authorize(user.Role, ActionListTickets, false); err != nil {
		return ListScope{}, err
	}
	switch user.Role {
	case domain.RoleAdmin:
		return ListScope{Filters: true}, nil
	case domain.RoleGestor:
		id := user.ID
		return ListScope{CreatorID: &id}, nil
	default:
		return ListScope{}, apperrors.NewForbidden("unknown role")
	}
}
