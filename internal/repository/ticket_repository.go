package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// TicketFilter captures listing parameters. Nil fields do not filter.
type TicketFilter struct {
	CreatorID       *string
	AssignedAdminID *string
	Status          *domain.TicketStatus
	Limit           int
	Offset          int
}

// TicketRepository encapsulates ticket persistence. Updates touch a single
// column each so concurrent status changes and assignments do not overwrite
// one another, and creator_id is never written after insert.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	UpdateStatus(ctx context.Context, ticket *domain.Ticket) error
	UpdateAssignment(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketSelect = `
        SELECT t.id, t.title, t.description, t.status, t.creator_id, t.assigned_admin_id,
               t.created_at, t.updated_at,
               c.name, c.email, c.role,
               a.name, a.email, a.role
        FROM tickets t
        JOIN users c ON c.id = t.creator_id
        LEFT JOIN users a ON a.id = t.assigned_admin_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, creator_id, assigned_admin_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.CreatorID,
		ticket.AssignedAdminID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return translate(err)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, ticket *domain.Ticket) error {
	const query = `UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2 RETURNING updated_at`
	return translate(r.pool.QueryRow(ctx, query, ticket.Status, ticket.ID).Scan(&ticket.UpdatedAt))
}

func (r *ticketRepository) UpdateAssignment(ctx context.Context, ticket *domain.Ticket) error {
	const query = `UPDATE tickets SET assigned_admin_id=$1, updated_at=NOW() WHERE id=$2 RETURNING updated_at`
	return translate(r.pool.QueryRow(ctx, query, ticket.AssignedAdminID, ticket.ID).Scan(&ticket.UpdatedAt))
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, ticketSelect+` WHERE t.id=$1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatorID != nil {
		args = append(args, *filter.CreatorID)
		clauses = append(clauses, fmt.Sprintf("t.creator_id=$%d", len(args)))
	}
	if filter.AssignedAdminID != nil {
		args = append(args, *filter.AssignedAdminID)
		clauses = append(clauses, fmt.Sprintf("t.assigned_admin_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("t.status=$%d", len(args)))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY t.created_at DESC, t.id DESC`, ticketSelect, strings.Join(clauses, " AND "))
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, translate(err)
		}
		result = append(result, *ticket)
	}
	return result, translate(rows.Err())
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket                           domain.Ticket
		creator                          domain.UserSummary
		adminName, adminEmail, adminRole *string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.CreatorID,
		&ticket.AssignedAdminID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&creator.Name,
		&creator.Email,
		&creator.Role,
		&adminName,
		&adminEmail,
		&adminRole,
	); err != nil {
		return nil, err
	}
	creator.ID = ticket.CreatorID
	ticket.Creator = &creator
	if ticket.AssignedAdminID != nil && adminName != nil {
		ticket.AssignedAdmin = &domain.UserSummary{
			ID:    *ticket.AssignedAdminID,
			Name:  *adminName,
			Email: deref(adminEmail),
			Role:  domain.Role(deref(adminRole)),
		}
	}
	return &ticket, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
