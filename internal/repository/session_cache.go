package repository

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/persistence"
)

// TokenCache caches token to user id bindings. Revoked tokens are kept as
// tombstones: Get reports them as a hit with an empty user id, and Fill never
// overwrites an existing entry.
type TokenCache interface {
	Get(ctx context.Context, token string) (userID string, ok bool, err error)
	Set(ctx context.Context, token, userID string) error
	Fill(ctx context.Context, token, userID string) error
	Revoke(ctx context.Context, tokens ...string) error
}

// cachedSessionRepository fronts a SessionRepository with a TokenCache. The
// store stays authoritative: failed reads and writes of the cache are only
// logged, but a failed revocation is returned so a revoked token is never left
// resolvable without the caller knowing.
type cachedSessionRepository struct {
	inner  SessionRepository
	cache  TokenCache
	logger *zap.Logger
}

// NewCachedSessionRepository wraps inner with cache.
func NewCachedSessionRepository(inner SessionRepository, cache TokenCache, logger *zap.Logger) SessionRepository {
	return &cachedSessionRepository{inner: inner, cache: cache, logger: logger}
}

func (r *cachedSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if err := r.inner.Create(ctx, session); err != nil {
		return err
	}
	r.warn("cache set", r.cache.Set(ctx, session.Token, session.UserID))
	return nil
}

func (r *cachedSessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	userID, ok, err := r.cache.Get(ctx, token)
	r.warn("cache get", err)
	if err == nil && ok {
		if userID == "" {
			return nil, ErrNotFound
		}
		return &domain.Session{Token: token, UserID: userID}, nil
	}

	session, err := r.inner.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	r.warn("cache fill", r.cache.Fill(ctx, session.Token, session.UserID))
	return session, nil
}

func (r *cachedSessionRepository) DeleteByToken(ctx context.Context, token string) error {
	if err := r.inner.DeleteByToken(ctx, token); err != nil {
		return err
	}
	return r.evict(ctx, token)
}

func (r *cachedSessionRepository) DeleteByUser(ctx context.Context, userID string) ([]string, error) {
	tokens, err := r.inner.DeleteByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := r.evict(ctx, tokens...); err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *cachedSessionRepository) evict(ctx context.Context, tokens ...string) error {
	err := r.cache.Revoke(ctx, tokens...)
	if err == nil || errors.Is(err, persistence.ErrRedisDisabled) {
		return nil
	}
	return fmt.Errorf("evict cached sessions: %w", err)
}

func (r *cachedSessionRepository) warn(op string, err error) {
	if err == nil || errors.Is(err, persistence.ErrRedisDisabled) {
		return
	}
	r.logger.Warn("session cache unavailable", zap.String("op", op), zap.Error(err))
}
