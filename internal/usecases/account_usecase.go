package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"hostelhub.backend/internal/domain/entities"
	domainerrors "hostelhub.backend/internal/domain/errors"
	"hostelhub.backend/internal/domain/repositories"
	"hostelhub.backend/internal/infrastructure/metrics"
	"hostelhub.backend/pkg/logger"
	"hostelhub.backend/pkg/utils"
)

// AccountUsecase handles the account status gate and administrative
// overrides on user records
type AccountUsecase struct {
	userRepo       repositories.UserRepository
	roleChangeRepo repositories.RoleChangeRepository
	uow            repositories.UnitOfWork
	authorizer     Authorizer
	notifier       Notifier
	metrics        *metrics.Metrics
	now            func() time.Time
}

// NewAccountUsecase creates a new account usecase
func NewAccountUsecase(
	userRepo repositories.UserRepository,
	roleChangeRepo repositories.RoleChangeRepository,
	uow repositories.UnitOfWork,
	authorizer Authorizer,
	notifier Notifier,
	m *metrics.Metrics,
) *AccountUsecase {
	return &AccountUsecase{
		userRepo:       userRepo,
		roleChangeRepo: roleChangeRepo,
		uow:            uow,
		authorizer:     authorizer,
		notifier:       notifier,
		metrics:        m,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// RequireActive fails with an inactive-account error naming the current
// status unless the user is ACTIVE
func (u *AccountUsecase) RequireActive(ctx context.Context, userID uuid.UUID) error {
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsActive() {
		return domainerrors.InactiveAccount(string(user.AccountStatus))
	}
	return nil
}

// SetAccountStatus overwrites the account status. Any status may move to
// any other; verification state is left untouched.
func (u *AccountUsecase) SetAccountStatus(ctx context.Context, actorID, userID uuid.UUID, status string) (*entities.User, error) {
	if err := requireReviewer(ctx, u.authorizer, actorID); err != nil {
		return nil, err
	}
	newStatus, ok := entities.ParseAccountStatus(status)
	if !ok {
		return nil, domainerrors.Validation("status must be one of ACTIVE, SUSPENDED, DEACTIVATED, BANNED")
	}

	updated, err := u.userRepo.SetAccountStatus(ctx, userID, newStatus)
	if err != nil {
		return nil, err
	}

	u.metrics.IncrementAccountStatusChange(string(newStatus))
	logger.Info(ctx, "Account status changed",
		zap.String("user_id", userID.String()),
		zap.String("actor_id", actorID.String()),
		zap.String("status", string(newStatus)),
	)
	notify(ctx, u.notifier, entities.NotificationAccountStatusChanged, updated, u.now())
	return updated, nil
}

// SetRole edits a role directly, outside the verification flow. It may
// demote. Every effective change is logged as an admin override.
func (u *AccountUsecase) SetRole(ctx context.Context, actorID, userID uuid.UUID, role string) (*entities.User, error) {
	if err := requireReviewer(ctx, u.authorizer, actorID); err != nil {
		return nil, err
	}
	newRole, ok := entities.ParseUserRole(role)
	if !ok {
		return nil, domainerrors.Validation("role must be one of STUDENT, CARETAKER, OWNER, ADMIN")
	}

	var (
		updated *entities.User
		changed bool
	)
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		user, err := u.userRepo.GetByID(u.uow.WithLock(txCtx), userID)
		if err != nil {
			return err
		}
		if user.Role == newRole {
			updated = user
			return nil
		}

		updated, err = u.userRepo.SetRole(txCtx, userID, newRole)
		if err != nil {
			return err
		}
		changed = true
		return u.roleChangeRepo.Create(txCtx, &entities.RoleChange{
			UserID:    userID,
			ActorID:   actorID,
			FromRole:  user.Role,
			ToRole:    newRole,
			Source:    entities.RoleChangeAdminOverride,
			CreatedAt: u.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return updated, nil
	}

	u.metrics.IncrementRoleChange(string(entities.RoleChangeAdminOverride))
	logger.Info(ctx, "Role overridden",
		zap.String("user_id", userID.String()),
		zap.String("actor_id", actorID.String()),
		zap.String("role", string(newRole)),
	)
	notify(ctx, u.notifier, entities.NotificationRoleChanged, updated, u.now())
	return updated, nil
}

// DeleteUser removes a user. The record leaves the review queue and is
// soft deleted in the same transaction.
func (u *AccountUsecase) DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error {
	if err := requireReviewer(ctx, u.authorizer, actorID); err != nil {
		return err
	}
	if actorID == userID {
		return domainerrors.Validation("administrators cannot delete their own account")
	}

	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.userRepo.ResetVerification(txCtx, userID); err != nil {
			return err
		}
		return u.userRepo.SoftDelete(txCtx, userID)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "User deleted",
		zap.String("user_id", userID.String()),
		zap.String("actor_id", actorID.String()),
	)
	return nil
}

// RoleHistory lists a user's role changes, oldest first
func (u *AccountUsecase) RoleHistory(ctx context.Context, actorID, userID uuid.UUID) ([]*entities.RoleChange, error) {
	if err := requireReviewer(ctx, u.authorizer, actorID); err != nil {
		return nil, err
	}
	if _, err := u.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return u.roleChangeRepo.ListByUserID(ctx, userID)
}

// ListUsers searches the user directory
func (u *AccountUsecase) ListUsers(ctx context.Context, actorID uuid.UUID, search string, pagination utils.PaginationParams) ([]*entities.User, int64, error) {
	if err := requireReviewer(ctx, u.authorizer, actorID); err != nil {
		return nil, 0, err
	}
	return u.userRepo.List(ctx, search, pagination)
}

// GetUser returns one user record
func (u *AccountUsecase) GetUser(ctx context.Context, actorID, userID uuid.UUID) (*entities.User, error) {
	if err := requireReviewer(ctx, u.authorizer, actorID); err != nil {
		return nil, err
	}
	return u.userRepo.GetByID(ctx, userID)
}
