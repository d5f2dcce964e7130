package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chadley78/located-dispatch/module/core/domain"
	"github.com/chadley78/located-dispatch/module/core/internal/repository/database"
)

var _ database.FamilyRepository = (*FamilyRepo)(nil)

type FamilyRepo struct {
	db *sql.DB
}

func NewFamilyRepo(db *sql.DB) *FamilyRepo {
	return &FamilyRepo{db: db}
}

func (r *FamilyRepo) GetByID(ctx context.Context, familyID string) (*domain.Family, error) {
	var f domain.Family
	row := r.db.QueryRowContext(ctx,
		`SELECT family_id, name FROM families WHERE family_id = $1`,
		familyID,
	)
	if err := row.Scan(&f.FamilyID, &f.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFamilyNotFound
		}
		return nil, fmt.Errorf("fetch family: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, role, display_name, joined_at FROM family_members WHERE family_id = $1 ORDER BY joined_at ASC`,
		familyID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.UserID, &m.Role, &m.DisplayName, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		f.Members = append(f.Members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch members: %w", err)
	}
	return &f, nil
}
