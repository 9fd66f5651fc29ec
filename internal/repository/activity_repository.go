package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ActivityRepository manages the append-only comment log. It exposes no
// update or delete.
type ActivityRepository interface {
	Create(ctx context.Context, entry *domain.ActivityEntry) error
	// ListByTicket returns entries oldest first with their authors.
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityEntry, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository builds repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Create(ctx context.Context, entry *domain.ActivityEntry) error {
	const query = `
        INSERT INTO ticket_activity (ticket_id, author_id, message)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		entry.TicketID,
		entry.AuthorID,
		entry.Message,
	).Scan(&entry.ID, &entry.CreatedAt)
	return translate(err)
}

func (r *activityRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ActivityEntry, error) {
	const query = `
        SELECT a.id, a.ticket_id, a.author_id, a.message, a.created_at,
               u.name, u.email, u.role
        FROM ticket_activity a
        JOIN users u ON u.id = a.author_id
        WHERE a.ticket_id=$1
        ORDER BY a.created_at ASC, a.seq ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	result := []domain.ActivityEntry{}
	for rows.Next() {
		var (
			entry  domain.ActivityEntry
			author domain.UserSummary
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.AuthorID,
			&entry.Message,
			&entry.CreatedAt,
			&author.Name,
			&author.Email,
			&author.Role,
		); err != nil {
			return nil, err
		}
		author.ID = entry.AuthorID
		entry.Author = &author
		result = append(result, entry)
	}
	return result, translate(rows.Err())
}
