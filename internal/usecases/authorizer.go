package usecases

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"hostelhub.backend/internal/domain/entities"
	domainerrors "hostelhub.backend/internal/domain/errors"
	"hostelhub.backend/internal/domain/repositories"
)

// RoleAuthorizer grants reviewer privilege to active administrators.
type RoleAuthorizer struct {
	userRepo repositories.UserRepository
}

// NewRoleAuthorizer creates a new role authorizer
func NewRoleAuthorizer(userRepo repositories.UserRepository) *RoleAuthorizer {
	return &RoleAuthorizer{userRepo: userRepo}
}

// IsReviewer reports whether actorID is an ACTIVE ADMIN. Unknown actors are
// not reviewers. An ADMIN whose account is not ACTIVE gets InactiveAccount.
func (a *RoleAuthorizer) IsReviewer(ctx context.Context, actorID uuid.UUID) (bool, error) {
	actor, err := a.userRepo.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if actor.Role != entities.UserRoleAdmin {
		return false, nil
	}
	if !actor.IsActive() {
		return false, domainerrors.InactiveAccount(string(actor.AccountStatus))
	}
	return true, nil
}

func requireReviewer(ctx context.Context, authorizer Authorizer, actorID uuid.UUID) error {
	ok, err := authorizer.IsReviewer(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return domainerrors.Forbidden("reviewer privilege required")
	}
	return nil
}
