package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	activity   repository.ActivityRepository
	history    repository.TicketHistoryRepository
	users      repository.UserRepository
	statuses   domain.StatusSet
	dispatcher events.Dispatcher
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	ActivityRepo repository.ActivityRepository
	HistoryRepo  repository.TicketHistoryRepository
	UserRepo     repository.UserRepository
	Statuses     domain.StatusSet
	Dispatcher   events.Dispatcher
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title           string
	Description     string
	AssignedAdminID *string
}

// TicketListFilter describes listing filters. Only admins' filters apply.
type TicketListFilter struct {
	Status          *string
	CreatorID       *string
	AssignedAdminID *string
	Limit           int
	Offset          int
}

// TicketUpdateInput is the combined admin update; nil fields are untouched.
type TicketUpdateInput struct {
	Status          *string
	AssignedAdminID *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	statuses := deps.Statuses
	if len(statuses.Statuses) == 0 {
		statuses = domain.StandardStatusSet()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		activity:   deps.ActivityRepo,
		history:    deps.HistoryRepo,
		users:      deps.UserRepo,
		statuses:   statuses,
		dispatcher: deps.Dispatcher,
	}
}

// Statuses returns the configured status set.
func (s *TicketService) Statuses() domain.StatusSet {
	return s.statuses
}

// Create files a new ticket in the initial status. Only admins may assign at
// creation time.
func (s *TicketService) Create(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if err := policy.Authorize(actor.Role, policy.ActionCreateTicket, false); err != nil {
		return nil, err
	}
	assigneeID := normalizeID(input.AssignedAdminID)
	if assigneeID != nil {
		if err := policy.Authorize(actor.Role, policy.ActionAssignTicket, false); err != nil {
			return nil, err
		}
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}
	if assigneeID != nil {
		if err := s.ensureAssignable(ctx, *assigneeID); err != nil {
			return nil, err
		}
	}

	ticket := &domain.Ticket{
		Title:           title,
		Description:     description,
		Status:          s.statuses.Initial,
		CreatorID:       actor.ID,
		AssignedAdminID: assigneeID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, mapRepoErr(err, "ticket")
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.TicketCreatedPayload{
			Title:           ticket.Title,
			Status:          ticket.Status,
			AssignedAdminID: ticket.AssignedAdminID,
		},
	})
	return s.reload(ctx, ticket.ID)
}

// List returns tickets visible to actor, newest first. Gestores always get
// their own tickets only, whatever filters they pass.
func (s *TicketService) List(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	scope, err := policy.ScopeFor(actor)
	if err != nil {
		return nil, err
	}

	repoFilter := repository.TicketFilter{
		CreatorID: scope.CreatorID,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
	}
	if scope.Filters {
		if raw := normalizeID(filter.Status); raw != nil {
			status, err := s.statuses.Normalize(*raw)
			if err != nil {
				return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": *raw})
			}
			repoFilter.Status = &status
		}
		if id := normalizeID(filter.CreatorID); id != nil {
			repoFilter.CreatorID = id
		}
		repoFilter.AssignedAdminID = normalizeID(filter.AssignedAdminID)
	}

	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Detail returns the ticket with its ordered activity and history.
func (s *TicketService) Detail(ctx context.Context, actor *domain.User, ticketID string) (*domain.TicketDetail, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoErr(err, "ticket")
	}
	if err := policy.Authorize(actor.Role, policy.ActionViewTicket, ticket.CreatorID == actor.ID); err != nil {
		return nil, err
	}

	activity, err := s.activity.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	history := []domain.TicketHistory{}
	if s.history != nil {
		if history, err = s.history.ListByTicket(ctx, ticket.ID); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	return &domain.TicketDetail{Ticket: *ticket, Activity: activity, History: history}, nil
}

// ChangeStatus moves a ticket to rawStatus, which may be an alias.
func (s *TicketService) ChangeStatus(ctx context.Context, actor *domain.User, ticketID, rawStatus string) (*domain.Ticket, error) {
	return s.Update(ctx, actor, ticketID, TicketUpdateInput{Status: &rawStatus})
}

// Assign sets the ticket's admin. The assignee must exist and hold the admin
// role; on failure the current assignment is kept.
func (s *TicketService) Assign(ctx context.Context, actor *domain.User, ticketID, assigneeID string) (*domain.Ticket, error) {
	return s.Update(ctx, actor, ticketID, TicketUpdateInput{AssignedAdminID: &assigneeID})
}

// Update applies a status change and/or an assignment. Both are validated
// before either is written.
func (s *TicketService) Update(ctx context.Context, actor *domain.User, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	if input.Status != nil {
		if err := policy.Authorize(actor.Role, policy.ActionChangeStatus, false); err != nil {
			return nil, err
		}
	}
	if input.AssignedAdminID != nil || input.Status == nil {
		if err := policy.Authorize(actor.Role, policy.ActionAssignTicket, false); err != nil {
			return nil, err
		}
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	status := ticket.Status
	if input.Status != nil {
		if status, err = s.statuses.Normalize(*input.Status); err != nil {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{
				"status":  *input.Status,
				"allowed": s.statuses.Statuses,
			})
		}
		if !s.statuses.CanTransition(ticket.Status, status) {
			return nil, apperrors.NewValidationError("status transition not permitted", map[string]any{
				"from": ticket.Status,
				"to":   status,
			})
		}
	}
	assigneeID := normalizeID(input.AssignedAdminID)
	if input.AssignedAdminID != nil {
		if assigneeID == nil {
			return nil, apperrors.NewValidationError("assigned_admin_id is required", nil)
		}
		if err := s.ensureAssignable(ctx, *assigneeID); err != nil {
			return nil, err
		}
	}
	if input.Status == nil && input.AssignedAdminID == nil {
		return nil, apperrors.NewValidationError("status or assigned_admin_id is required", nil)
	}

	// The assignment can still fail if the assignee disappears after the
	// check above, so it is written before the status.
	if assigneeID != nil && !sameID(ticket.AssignedAdminID, assigneeID) {
		if err := s.applyAssignment(ctx, actor, ticket, assigneeID); err != nil {
			return nil, err
		}
	}
	if status != ticket.Status {
		if err := s.applyStatus(ctx, actor, ticket, status); err != nil {
			return nil, err
		}
	}
	return s.reload(ctx, ticket.ID)
}

// Comment appends an activity entry. The ticket's status is not touched.
func (s *TicketService) Comment(ctx context.Context, actor *domain.User, ticketID, message string) (*domain.ActivityEntry, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := policy.Authorize(actor.Role, policy.ActionComment, ticket.CreatorID == actor.ID); err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("comment is required", nil)
	}

	entry := &domain.ActivityEntry{
		TicketID: ticket.ID,
		AuthorID: actor.ID,
		Message:  message,
	}
	if err := s.activity.Create(ctx, entry); err != nil {
		return nil, mapRepoErr(err, "ticket")
	}
	author := actor.Summary()
	entry.Author = &author

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.TicketCommentAddedPayload{
			CommentID:   entry.ID,
			AuthorID:    entry.AuthorID,
			BodyPreview: stringPreview(entry.Message, 120),
		},
	})
	return entry, nil
}

func (s *TicketService) applyStatus(ctx context.Context, actor *domain.User, ticket *domain.Ticket, status domain.TicketStatus) error {
	oldStatus := ticket.Status
	ticket.Status = status
	if err := s.tickets.UpdateStatus(ctx, ticket); err != nil {
		return mapRepoErr(err, "ticket")
	}
	if err := s.recordStatusChange(ctx, actor.ID, ticket.ID, oldStatus, status); err != nil {
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: status,
		},
	})
	return nil
}

func (s *TicketService) applyAssignment(ctx context.Context, actor *domain.User, ticket *domain.Ticket, assigneeID *string) error {
	previous := ticket.AssignedAdminID
	ticket.AssignedAdminID = assigneeID
	if err := s.tickets.UpdateAssignment(ctx, ticket); err != nil {
		ticket.AssignedAdminID = previous
		if errors.Is(err, repository.ErrStillReferenced) {
			return apperrors.NewNotFound("user", map[string]any{"assigned_admin_id": *assigneeID})
		}
		return mapRepoErr(err, "ticket")
	}
	if err := s.recordAssigneeChange(ctx, actor.ID, ticket.ID, previous, assigneeID); err != nil {
		return apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.TicketAssignedPayload{
			PreviousAdminID: previous,
			AssignedAdminID: assigneeID,
		},
	})
	return nil
}

// ensureAssignable checks that id names an admin. Inactive admins qualify.
func (s *TicketService) ensureAssignable(ctx context.Context, id string) error {
	assignee, err := s.users.GetByID(ctx, id)
	if err != nil {
		return mapRepoErr(err, "user")
	}
	if assignee.Role != domain.RoleAdmin {
		return apperrors.NewValidationError("assignee must be an admin", map[string]any{"assigned_admin_id": id})
	}
	return nil
}

func (s *TicketService) getTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err, "ticket")
	}
	return ticket, nil
}

func (s *TicketService) reload(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.getTicket(ctx, id)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *TicketService) recordStatusChange(ctx context.Context, actorID, ticketID string, oldStatus, newStatus domain.TicketStatus) error {
	if s.history == nil {
		return nil
	}
	entry := &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: &actorID,
		ChangeType:  domain.ChangeTypeStatus,
		OldValue: map[string]any{
			"status": oldStatus,
		},
		NewValue: map[string]any{
			"status": newStatus,
		},
	}
	return s.history.Create(ctx, entry)
}

func (s *TicketService) recordAssigneeChange(ctx context.Context, actorID, ticketID string, oldID, newID *string) error {
	if s.history == nil {
		return nil
	}
	entry := &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: &actorID,
		ChangeType:  domain.ChangeTypeAssignee,
		OldValue: map[string]any{
			"assigned_admin_id": oldID,
		},
		NewValue: map[string]any{
			"assigned_admin_id": newID,
		},
	}
	return s.history.Create(ctx, entry)
}

func actorOf(user *domain.User) events.Actor {
	return events.Actor{UserID: user.ID, Role: user.Role}
}

func normalizeID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
