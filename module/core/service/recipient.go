package service

import (
	"context"

	"github.com/chadley78/located-dispatch/module/core/domain"
	"github.com/chadley78/located-dispatch/module/core/internal/repository/database"
)

// RecipientService resolves the notification audience for a family.
type RecipientService struct {
	families database.FamilyRepository
}

func NewRecipientService(families database.FamilyRepository) *RecipientService {
	return &RecipientService{families: families}
}

// ResolveGuardians returns the family and the ordered guardian user ids.
// Zero guardians is not an error. A missing family surfaces as
// domain.ErrFamilyNotFound.
func (s *RecipientService) ResolveGuardians(ctx context.Context, familyID string) (*domain.Family, []string, error) {
	family, err := s.families.GetByID(ctx, familyID)
	if err != nil {
		return nil, nil, err
	}

	var guardianIDs []string
	for _, m := range family.Guardians() {
		guardianIDs = append(guardianIDs, m.UserID)
	}
	return family, guardianIDs, nil
}
