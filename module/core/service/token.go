package service

import (
	"context"
	"fmt"

	"github.com/chadley78/located-dispatch/module/core/domain"
	"github.com/chadley78/located-dispatch/module/core/internal/repository/database"
)

// DefaultBatchLimit caps how many token rows one delete statement may
// touch, matching the store's per-batch write limit.
const DefaultBatchLimit = 500

// TokenService reads and reconciles the push token sets of user accounts.
type TokenService struct {
	tokens     database.TokenRepository
	batchLimit int
}

func NewTokenService(tokens database.TokenRepository, batchLimit int) *TokenService {
	if batchLimit <= 0 {
		batchLimit = DefaultBatchLimit
	}
	return &TokenService{tokens: tokens, batchLimit: batchLimit}
}

// CollectTokens fetches all push tokens for the given users in one
// multi-get, preserving the caller's user order. Users without an account
// or without tokens contribute nothing.
func (s *TokenService) CollectTokens(ctx context.Context, userIDs []string) ([]domain.UserToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	rows, err := s.tokens.GetForUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string][]string, len(userIDs))
	for _, ut := range rows {
		byUser[ut.UserID] = append(byUser[ut.UserID], ut.Token)
	}

	var out []domain.UserToken
	for _, id := range userIDs {
		for _, token := range byUser[id] {
			out = append(out, domain.UserToken{UserID: id, Token: token})
		}
	}
	return out, nil
}

// PruneInvalid removes dead tokens from their owners' token sets, split
// into sequential batches under the store's write limit. Returns how many
// tokens were removed; a batch failure stops further batches and is
// reported alongside the count already removed.
func (s *TokenService) PruneInvalid(ctx context.Context, invalid []domain.UserToken) (int, error) {
	pruned := 0
	for start := 0; start < len(invalid); start += s.batchLimit {
		end := start + s.batchLimit
		if end > len(invalid) {
			end = len(invalid)
		}
		batch := invalid[start:end]
		if err := s.tokens.Remove(ctx, batch); err != nil {
			return pruned, fmt.Errorf("prune batch at %d: %w", start, err)
		}
		pruned += len(batch)
	}
	return pruned, nil
}
