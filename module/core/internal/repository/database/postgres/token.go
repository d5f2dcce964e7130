package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/chadley78/located-dispatch/module/core/domain"
	"github.com/chadley78/located-dispatch/module/core/internal/repository/database"
)

var _ database.TokenRepository = (*TokenRepo)(nil)

type TokenRepo struct {
	db *sql.DB
}

func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{db: db}
}

func (r *TokenRepo) GetForUsers(ctx context.Context, userIDs []string) ([]domain.UserToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, token FROM push_tokens WHERE user_id = ANY($1) ORDER BY user_id, created_at ASC`,
		pq.Array(userIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch tokens: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []domain.UserToken
	for rows.Next() {
		var ut domain.UserToken
		if err := rows.Scan(&ut.UserID, &ut.Token); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		results = append(results, ut)
	}
	return results, rows.Err()
}

func (r *TokenRepo) Remove(ctx context.Context, pairs []domain.UserToken) error {
	if len(pairs) == 0 {
		return nil
	}

	placeholders := make([]string, len(pairs))
	args := make([]interface{}, 0, len(pairs)*2)
	for i, p := range pairs {
		placeholders[i] = fmt.Sprintf("($%d, $%d)", i*2+1, i*2+2)
		args = append(args, p.UserID, p.Token)
	}

	query := `DELETE FROM push_tokens WHERE (user_id, token) IN (` + strings.Join(placeholders, ", ") + `)`
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("remove tokens: %w", err)
	}
	return nil
}
