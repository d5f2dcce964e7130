package database

import (
	"context"

	"github.com/chadley78/located-dispatch/module/core/domain"
)

type FamilyRepository interface {
	// GetByID returns domain.ErrFamilyNotFound when no family exists.
	GetByID(ctx context.Context, familyID string) (*domain.Family, error)
}

type TokenRepository interface {
	// GetForUsers fetches all push tokens registered by the given users.
	// Users with no tokens contribute nothing to the result.
	GetForUsers(ctx context.Context, userIDs []string) ([]domain.UserToken, error)
	// Remove deletes the given (user, token) pairs. Pairs that no longer
	// exist are skipped, so the call is idempotent.
	Remove(ctx context.Context, pairs []domain.UserToken) error
}
