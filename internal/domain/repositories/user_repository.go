package repositories

import (
	"context"

	"github.com/google/uuid"
	"hostelhub.backend/internal/domain/entities"
	"hostelhub.backend/pkg/utils"
)

// UserRepository defines user record operations. It is the only writer of
// verification, role and account status state.
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	// ApplyVerificationTransition writes t only if the record is still in
	// t.From and ACTIVE; otherwise nothing is written and a conflict,
	// inactive-account or not-found error is returned.
	ApplyVerificationTransition(ctx context.Context, id uuid.UUID, t *entities.VerificationTransition) (*entities.User, error)
	SetAccountStatus(ctx context.Context, id uuid.UUID, status entities.AccountStatus) (*entities.User, error)
	SetRole(ctx context.Context, id uuid.UUID, role entities.UserRole) (*entities.User, error)
	ResetVerification(ctx context.Context, id uuid.UUID) error
	ListByVerificationStatus(ctx context.Context, status entities.VerificationStatus, pagination utils.PaginationParams) ([]*entities.User, int64, error)
	List(ctx context.Context, search string, pagination utils.PaginationParams) ([]*entities.User, int64, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// RoleChangeRepository keeps the role mutation log
type RoleChangeRepository interface {
	Create(ctx context.Context, change *entities.RoleChange) error
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.RoleChange, error)
}
