package service

import (
	"errors"

	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// mapRepoErr turns repository sentinels into domain errors. resource names the
// entity for NOT_FOUND messages.
func mapRepoErr(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, nil)
	case errors.Is(err, repository.ErrEmailTaken):
		return apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
	case errors.Is(err, repository.ErrStillReferenced):
		return apperrors.NewConflict(resource+" is still referenced", nil)
	default:
		return apperrors.MapError(err)
	}
}
