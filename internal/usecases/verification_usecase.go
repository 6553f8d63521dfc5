package usecases

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"hostelhub.backend/internal/domain/entities"
	domainerrors "hostelhub.backend/internal/domain/errors"
	"hostelhub.backend/internal/domain/repositories"
	"hostelhub.backend/internal/infrastructure/metrics"
	"hostelhub.backend/pkg/logger"
	"hostelhub.backend/pkg/utils"
)

// DocumentUpload is one file taken from a multipart submission
type DocumentUpload struct {
	Name    string
	Content io.Reader
}

// DocumentUploads holds the files of one submission. Passport is optional.
type DocumentUploads struct {
	IDFront  *DocumentUpload
	IDBack   *DocumentUpload
	Passport *DocumentUpload
}

// VerificationUsecase handles identity verification business logic
type VerificationUsecase struct {
	userRepo       repositories.UserRepository
	roleChangeRepo repositories.RoleChangeRepository
	uow            repositories.UnitOfWork
	vault          DocumentVault
	authorizer     Authorizer
	notifier       Notifier
	metrics        *metrics.Metrics
	now            func() time.Time
}

// NewVerificationUsecase creates a new verification usecase
func NewVerificationUsecase(
	userRepo repositories.UserRepository,
	roleChangeRepo repositories.RoleChangeRepository,
	uow repositories.UnitOfWork,
	vault DocumentVault,
	authorizer Authorizer,
	notifier Notifier,
	m *metrics.Metrics,
) *VerificationUsecase {
	return &VerificationUsecase{
		userRepo:       userRepo,
		roleChangeRepo: roleChangeRepo,
		uow:            uow,
		vault:          vault,
		authorizer:     authorizer,
		notifier:       notifier,
		metrics:        m,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// GetStatus returns the caller's own verification state
func (u *VerificationUsecase) GetStatus(ctx context.Context, userID uuid.UUID) (*entities.VerificationSummary, error) {
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary := user.Summary()
	return &summary, nil
}

// Submit moves the user to PENDING with already-uploaded document references
func (u *VerificationUsecase) Submit(ctx context.Context, userID uuid.UUID, docs entities.IdentityDocuments) (*entities.User, error) {
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	t, err := entities.PlanSubmission(user, docs, u.now())
	if err != nil {
		return nil, err
	}

	updated, err := u.userRepo.ApplyVerificationTransition(ctx, userID, t)
	if err != nil {
		return nil, err
	}

	u.metrics.IncrementSubmission()
	logger.Info(ctx, "Verification submitted",
		zap.String("user_id", userID.String()),
		zap.String("from", string(t.From)),
	)
	notify(ctx, u.notifier, entities.NotificationVerificationSubmitted, updated, t.At)
	return updated, nil
}

// SubmitUploads stores the files in the vault and then submits their
// references. State is checked before anything is uploaded; if the final
// write fails the record is left as it was and the call may be retried.
func (u *VerificationUsecase) SubmitUploads(ctx context.Context, userID uuid.UUID, files DocumentUploads) (*entities.User, error) {
	user, err := u.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := entities.CheckSubmittable(user); err != nil {
		return nil, err
	}
	if err := files.validate(); err != nil {
		return nil, err
	}

	var docs entities.IdentityDocuments
	var passport string
	g, gctx := errgroup.WithContext(ctx)
	upload := func(kind entities.DocumentKind, f *DocumentUpload, dst *string) {
		g.Go(func() error {
			ref, err := u.vault.Upload(gctx, userID.String()+"-"+string(kind)+"-"+f.Name, f.Content)
			if err != nil {
				return fmt.Errorf("failed to upload %s: %w", kind, err)
			}
			*dst = ref
			return nil
		})
	}
	upload(entities.DocumentIDFront, files.IDFront, &docs.IDFront)
	upload(entities.DocumentIDBack, files.IDBack, &docs.IDBack)
	if files.Passport != nil {
		upload(entities.DocumentPassport, files.Passport, &passport)
	}
	if err := g.Wait(); err != nil {
		logger.Warn(ctx, "Document upload failed", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, err
	}
	if passport != "" {
		docs.Passport = null.StringFrom(passport)
	}

	return u.Submit(ctx, userID, docs)
}

func (f DocumentUploads) validate() error {
	var missing []string
	if f.IDFront == nil || f.IDFront.Content == nil {
		missing = append(missing, string(entities.DocumentIDFront))
	}
	if f.IDBack == nil || f.IDBack.Content == nil {
		missing = append(missing, string(entities.DocumentIDBack))
	}
	if len(missing) == 1 {
		return domainerrors.Validation("missing required document: " + missing[0])
	}
	if len(missing) == 2 {
		return domainerrors.Validation("missing required document: " + missing[0] + ", " + missing[1])
	}
	return nil
}

// ListPending returns PENDING records, oldest submission first
func (u *VerificationUsecase) ListPending(ctx context.Context, actorID uuid.UUID, pagination utils.PaginationParams) ([]*entities.User, int64, error) {
	if err := requireReviewer(ctx, u.authorizer, actorID); err != nil {
		return nil, 0, err
	}
	return u.userRepo.ListByVerificationStatus(ctx, entities.VerificationPending, pagination)
}

// Decide applies a reviewer's verdict. The status change, remarks and role
// promotion are written together with the role change log entry.
func (u *VerificationUsecase) Decide(ctx context.Context, actorID, userID uuid.UUID, input *entities.VerificationDecisionInput) (*entities.User, error) {
	start := time.Now()
	if err := requireReviewer(ctx, u.authorizer, actorID); err != nil {
		return nil, err
	}
	input.Normalize()
	if err := entities.ValidateDecisionInput(input); err != nil {
		return nil, err
	}

	var (
		updated *entities.User
		t       *entities.VerificationTransition
	)
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		user, err := u.userRepo.GetByID(u.uow.WithLock(txCtx), userID)
		if err != nil {
			return err
		}

		t, err = entities.PlanDecision(user, input, actorID, u.now())
		if err != nil {
			return err
		}

		updated, err = u.userRepo.ApplyVerificationTransition(txCtx, userID, t)
		if err != nil {
			return err
		}

		if t.ChangesRole() {
			return u.roleChangeRepo.Create(txCtx, &entities.RoleChange{
				UserID:    userID,
				ActorID:   actorID,
				FromRole:  t.PreviousRole,
				ToRole:    *t.Role,
				Source:    entities.RoleChangeVerificationApproval,
				CreatedAt: t.At,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.metrics.IncrementDecision(string(updated.VerificationStatus))
	if t.ChangesRole() {
		u.metrics.IncrementRoleChange(string(entities.RoleChangeVerificationApproval))
	}
	u.metrics.ObserveDecisionLatency(time.Since(start))
	logger.Info(ctx, "Verification decided",
		zap.String("user_id", userID.String()),
		zap.String("reviewer_id", actorID.String()),
		zap.String("status", string(updated.VerificationStatus)),
		zap.String("role", string(updated.Role)),
	)
	notify(ctx, u.notifier, entities.NotificationVerificationDecided, updated, t.At)
	return updated, nil
}
