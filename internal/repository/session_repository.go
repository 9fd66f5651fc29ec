package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// SessionRepository is the session store shared by every service.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	// DeleteByToken is idempotent: a missing token is not an error.
	DeleteByToken(ctx context.Context, token string) error
	// DeleteByUser removes every session of userID and returns the revoked tokens.
	DeleteByUser(ctx context.Context, userID string) ([]string, error)
}

type sessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a Postgres-backed implementation.
func NewSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepository{pool: pool}
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	const query = `
        INSERT INTO auth_tokens (token, user_id)
        VALUES ($1, $2)
        RETURNING created_at`
	err := r.pool.QueryRow(ctx, query, session.Token, session.UserID).Scan(&session.CreatedAt)
	return translate(err)
}

func (r *sessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	const query = `SELECT token, user_id, created_at FROM auth_tokens WHERE token=$1`
	var session domain.Session
	if err := r.pool.QueryRow(ctx, query, token).Scan(
		&session.Token,
		&session.UserID,
		&session.CreatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (r *sessionRepository) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM auth_tokens WHERE token=$1`, token)
	return translate(err)
}

func (r *sessionRepository) DeleteByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `DELETE FROM auth_tokens WHERE user_id=$1 RETURNING token`, userID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, translate(rows.Err())
}
