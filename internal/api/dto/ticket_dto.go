package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// Write payloads accept both the canonical English keys and the legacy
// Spanish ones. When both are present the canonical key wins.

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title           *string `json:"title"`
	Titulo          *string `json:"titulo"`
	Description     *string `json:"description"`
	Descripcion     *string `json:"descripcion"`
	AssignedAdminID *string `json:"assigned_admin_id"`
	AdminID         *string `json:"admin_id"`
}

// TitleValue resolves title|titulo.
func (r CreateTicketRequest) TitleValue() string { return value(pick(r.Title, r.Titulo)) }

// DescriptionValue resolves description|descripcion.
func (r CreateTicketRequest) DescriptionValue() string {
	return value(pick(r.Description, r.Descripcion))
}

// Assignee resolves assigned_admin_id|admin_id.
func (r CreateTicketRequest) Assignee() *string { return pick(r.AssignedAdminID, r.AdminID) }

// StatusRequest payload for PUT /tickets/:id/status.
type StatusRequest struct {
	Status *string `json:"status"`
	Estado *string `json:"estado"`
}

// Value resolves status|estado.
func (r StatusRequest) Value() string { return value(pick(r.Status, r.Estado)) }

// AssignRequest payload for PUT /tickets/:id/assign.
type AssignRequest struct {
	AssignedAdminID *string `json:"assigned_admin_id"`
	AdminID         *string `json:"admin_id"`
}

// Value resolves assigned_admin_id|admin_id.
func (r AssignRequest) Value() string { return value(pick(r.AssignedAdminID, r.AdminID)) }

// UpdateTicketRequest is the combined admin update.
type UpdateTicketRequest struct {
	StatusRequest
	AssignRequest
}

// StatusValue returns the requested status, or nil when absent.
func (r UpdateTicketRequest) StatusValue() *string { return pick(r.Status, r.Estado) }

// AssigneeValue returns the requested assignee, or nil when absent.
func (r UpdateTicketRequest) AssigneeValue() *string { return pick(r.AssignedAdminID, r.AdminID) }

// CommentRequest payload for POST /tickets/:id/comments.
type CommentRequest struct {
	Comment *string `json:"comment"`
	Mensaje *string `json:"mensaje"`
	Message *string `json:"message"`
}

// Value resolves comment|mensaje|message.
func (r CommentRequest) Value() string { return value(pick(r.Comment, r.Mensaje, r.Message)) }

// TicketResponse is the list and mutation view of a ticket.
type TicketResponse struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	Status          domain.TicketStatus  `json:"status"`
	CreatorID       string               `json:"creator_id"`
	AssignedAdminID *string              `json:"assigned_admin_id"`
	Creator         *UserSummaryResponse `json:"creator"`
	AssignedAdmin   *UserSummaryResponse `json:"assigned_admin"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketResponse
	Activity []ActivityResponse      `json:"activity"`
	History  []TicketHistoryResponse `json:"history"`
}

// ActivityResponse represents a comment.
type ActivityResponse struct {
	ID        string               `json:"id"`
	TicketID  string               `json:"ticket_id"`
	AuthorID  string               `json:"author_id"`
	Message   string               `json:"message"`
	Author    *UserSummaryResponse `json:"author"`
	CreatedAt time.Time            `json:"created_at"`
}

// TicketHistoryResponse represents audit entries.
type TicketHistoryResponse struct {
	ID          string                  `json:"id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	ChangedByID *string                 `json:"changed_by_id"`
	OldValue    map[string]any          `json:"old_value"`
	NewValue    map[string]any          `json:"new_value"`
	CreatedAt   time.Time               `json:"created_at"`
}

// NewTicketResponse projects ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:              ticket.ID,
		Title:           ticket.Title,
		Description:     ticket.Description,
		Status:          ticket.Status,
		CreatorID:       ticket.CreatorID,
		AssignedAdminID: ticket.AssignedAdminID,
		Creator:         NewUserSummaryResponse(ticket.Creator),
		AssignedAdmin:   NewUserSummaryResponse(ticket.AssignedAdmin),
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
}

// NewTicketListResponse projects tickets, never returning nil.
func NewTicketListResponse(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, NewTicketResponse(&tickets[i]))
	}
	return items
}

// NewActivityResponse projects entry.
func NewActivityResponse(entry *domain.ActivityEntry) ActivityResponse {
	return ActivityResponse{
		ID:        entry.ID,
		TicketID:  entry.TicketID,
		AuthorID:  entry.AuthorID,
		Message:   entry.Message,
		Author:    NewUserSummaryResponse(entry.Author),
		CreatedAt: entry.CreatedAt,
	}
}

// NewTicketDetailResponse projects detail.
func NewTicketDetailResponse(detail *domain.TicketDetail) TicketDetailResponse {
	activity := make([]ActivityResponse, 0, len(detail.Activity))
	for i := range detail.Activity {
		activity = append(activity, NewActivityResponse(&detail.Activity[i]))
	}
	history := make([]TicketHistoryResponse, 0, len(detail.History))
	for _, entry := range detail.History {
		history = append(history, TicketHistoryResponse{
			ID:          entry.ID,
			ChangeType:  entry.ChangeType,
			ChangedByID: entry.ChangedByID,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return TicketDetailResponse{
		TicketResponse: NewTicketResponse(&detail.Ticket),
		Activity:       activity,
		History:        history,
	}
}
