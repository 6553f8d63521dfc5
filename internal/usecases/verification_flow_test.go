package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"hostelhub.backend/internal/domain/entities"
	domainerrors "hostelhub.backend/internal/domain/errors"
	domainrepos "hostelhub.backend/internal/domain/repositories"
	"hostelhub.backend/internal/infrastructure/metrics"
	"hostelhub.backend/internal/infrastructure/repositories"
	"hostelhub.backend/internal/infrastructure/storage"
	"hostelhub.backend/internal/usecases"
	"hostelhub.backend/pkg/utils"
)

type failingRoleChanges struct {
	*repositories.RoleChangeRepository
}

func (failingRoleChanges) Create(context.Context, *entities.RoleChange) error {
	return errors.New("role log unavailable")
}

type flowEnv struct {
	users        *repositories.UserRepository
	roles        *repositories.RoleChangeRepository
	notifier     *recordingNotifier
	verification *usecases.VerificationUsecase
	account      *usecases.AccountUsecase
	admin        *entities.User
	admin2       *entities.User
}

func newFlowDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repositories.AutoMigrate(db))
	return db
}

func newFlowEnv(t *testing.T, wrapRoles ...func(*repositories.RoleChangeRepository) domainrepos.RoleChangeRepository) *flowEnv {
	t.Helper()
	db := newFlowDB(t)
	env := &flowEnv{
		users:    repositories.NewUserRepository(db),
		roles:    repositories.NewRoleChangeRepository(db),
		notifier: &recordingNotifier{},
	}
	var roles domainrepos.RoleChangeRepository = env.roles
	for _, wrap := range wrapRoles {
		roles = wrap(env.roles)
	}

	vault, err := storage.NewLocalVault(t.TempDir(), "/documents", 1<<20)
	require.NoError(t, err)
	uow := repositories.NewUnitOfWork(db)
	authorizer := usecases.NewRoleAuthorizer(env.users)
	m := metrics.New()
	env.verification = usecases.NewVerificationUsecase(env.users, roles, uow, vault, authorizer, env.notifier, m)
	env.account = usecases.NewAccountUsecase(env.users, roles, uow, authorizer, env.notifier, m)

	env.admin = env.seed(t, "admin@example.com", func(u *entities.User) { u.Role = entities.UserRoleAdmin })
	env.admin2 = env.seed(t, "admin2@example.com", func(u *entities.User) { u.Role = entities.UserRoleAdmin })
	return env
}

func (e *flowEnv) seed(t *testing.T, email string, mutate ...func(*entities.User)) *entities.User {
	t.Helper()
	u := entities.NewUser(utils.GenerateUUIDv7(), email, "Seeded", "hash", time.Now().UTC())
	for _, m := range mutate {
		m(u)
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u
}

func (e *flowEnv) reload(t *testing.T, id uuid.UUID) *entities.User {
	t.Helper()
	u, err := e.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func TestFlow_ScenarioA_SubmitThenApprove(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	u1 := env.seed(t, "u1@example.com")

	pending, err := env.verification.Submit(ctx, u1.ID, entities.IdentityDocuments{IDFront: "a", IDBack: "b"})
	require.NoError(t, err)
	assert.Equal(t, entities.VerificationPending, pending.VerificationStatus)

	queue, total, err := env.verification.ListPending(ctx, env.admin.ID, utils.PaginationParams{Page: 1})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, u1.ID, queue[0].ID)

	approved, err := env.verification.Decide(ctx, env.admin.ID, u1.ID, &entities.VerificationDecisionInput{
		Decision: entities.DecisionApproved, TargetRole: entities.UserRoleOwner, Remarks: "ok",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.VerificationApproved, approved.VerificationStatus)
	assert.Equal(t, entities.UserRoleOwner, approved.Role)
	assert.Equal(t, entities.AccountActive, approved.AccountStatus)
	assert.Equal(t, "ok", approved.VerificationRemarks.String)

	history, err := env.account.RoleHistory(ctx, env.admin.ID, u1.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entities.RoleChangeVerificationApproval, history[0].Source)

	_, total, err = env.verification.ListPending(ctx, env.admin.ID, utils.PaginationParams{Page: 1})
	require.NoError(t, err)
	assert.Zero(t, total)

	var types []entities.NotificationType
	for _, ev := range env.notifier.Events() {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []entities.NotificationType{entities.NotificationVerificationSubmitted, entities.NotificationVerificationDecided}, types)
}

func TestFlow_ScenarioB_SecondDecisionConflicts(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	u1 := env.seed(t, "u1@example.com")
	_, err := env.verification.Submit(ctx, u1.ID, entities.IdentityDocuments{IDFront: "a", IDBack: "b"})
	require.NoError(t, err)

	_, err = env.verification.Decide(ctx, env.admin.ID, u1.ID, &entities.VerificationDecisionInput{Decision: entities.DecisionApproved, TargetRole: entities.UserRoleOwner, Remarks: "ok"})
	require.NoError(t, err)

	_, err = env.verification.Decide(ctx, env.admin2.ID, u1.ID, &entities.VerificationDecisionInput{Decision: entities.DecisionRejected, Remarks: "blurry"})
	require.ErrorIs(t, err, domainerrors.ErrConflict)
	assert.Contains(t, err.Error(), "APPROVED")

	final := env.reload(t, u1.ID)
	assert.Equal(t, entities.VerificationApproved, final.VerificationStatus)
	assert.Equal(t, entities.UserRoleOwner, final.Role)
	assert.Equal(t, "ok", final.VerificationRemarks.String)
}

func TestFlow_ScenarioB_ConcurrentDecisions(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	u1 := env.seed(t, "race@example.com")
	_, err := env.verification.Submit(ctx, u1.ID, entities.IdentityDocuments{IDFront: "a", IDBack: "b"})
	require.NoError(t, err)

	inputs := map[uuid.UUID]*entities.VerificationDecisionInput{
		env.admin.ID:  {Decision: entities.DecisionApproved, TargetRole: entities.UserRoleOwner},
		env.admin2.ID: {Decision: entities.DecisionRejected, Remarks: "blurry"},
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error
	for actor, in := range inputs {
		wg.Add(1)
		go func(actor uuid.UUID, in *entities.VerificationDecisionInput) {
			defer wg.Done()
			_, err := env.verification.Decide(ctx, actor, u1.ID, in)
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}(actor, in)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if errors.Is(err, domainerrors.ErrConflict) {
			conflicted++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicted)

	final := env.reload(t, u1.ID)
	switch final.VerificationStatus {
	case entities.VerificationApproved:
		assert.Equal(t, entities.UserRoleOwner, final.Role)
	case entities.VerificationRejected:
		assert.Equal(t, entities.UserRoleStudent, final.Role)
	default:
		t.Fatalf("unexpected final status %s", final.VerificationStatus)
	}
}

func TestFlow_ScenarioC_ResubmissionClearsRemarks(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	u2 := env.seed(t, "u2@example.com")

	_, err := env.verification.Submit(ctx, u2.ID, entities.IdentityDocuments{IDFront: "a", IDBack: "b"})
	require.NoError(t, err)
	_, err = env.verification.Decide(ctx, env.admin.ID, u2.ID, &entities.VerificationDecisionInput{Decision: entities.DecisionRejected, TargetRole: entities.UserRoleAdmin, Remarks: "invalid ID"})
	require.NoError(t, err)

	rejected, err := env.verification.GetStatus(ctx, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.VerificationRejected, rejected.Status)
	assert.Equal(t, "invalid ID", rejected.Remarks.String, "rejection reason stays visible until resubmission")
	assert.Equal(t, entities.UserRoleStudent, env.reload(t, u2.ID).Role, "rejection never changes role")

	_, err = env.verification.Submit(ctx, u2.ID, entities.IdentityDocuments{IDFront: "c"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
	stillRejected, err := env.verification.GetStatus(ctx, u2.ID)
	require.NoError(t, err)
	assert.Equal(t, "invalid ID", stillRejected.Remarks.String, "failed resubmission keeps the old remarks")

	resubmitted, err := env.verification.Submit(ctx, u2.ID, entities.IdentityDocuments{IDFront: "c", IDBack: "d"})
	require.NoError(t, err)
	assert.Equal(t, entities.VerificationPending, resubmitted.VerificationStatus)
	assert.False(t, resubmitted.VerificationRemarks.Valid)
	assert.Equal(t, "c", resubmitted.Documents.IDFront)
	assert.Equal(t, "d", resubmitted.Documents.IDBack)
}

func TestFlow_ScenarioD_SuspendedTargetCannotBeDecided(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	u3 := env.seed(t, "u3@example.com")
	_, err := env.verification.Submit(ctx, u3.ID, entities.IdentityDocuments{IDFront: "a", IDBack: "b"})
	require.NoError(t, err)

	suspended, err := env.account.SetAccountStatus(ctx, env.admin.ID, u3.ID, "SUSPENDED")
	require.NoError(t, err)
	assert.Equal(t, entities.VerificationPending, suspended.VerificationStatus)

	_, err = env.verification.Decide(ctx, env.admin.ID, u3.ID, &entities.VerificationDecisionInput{Decision: entities.DecisionApproved, TargetRole: entities.UserRoleCaretaker})
	require.ErrorIs(t, err, domainerrors.ErrInactiveAccount)
	assert.Contains(t, err.Error(), "SUSPENDED")
	assert.ErrorIs(t, env.account.RequireActive(ctx, u3.ID), domainerrors.ErrInactiveAccount)

	_, err = env.account.SetAccountStatus(ctx, env.admin.ID, u3.ID, "ACTIVE")
	require.NoError(t, err)
	approved, err := env.verification.Decide(ctx, env.admin.ID, u3.ID, &entities.VerificationDecisionInput{Decision: entities.DecisionApproved, TargetRole: entities.UserRoleCaretaker})
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleCaretaker, approved.Role)
}

func TestFlow_SuspendedReviewerIsInactiveNotForbidden(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	target := env.seed(t, "queued@example.com")
	_, err := env.verification.Submit(ctx, target.ID, entities.IdentityDocuments{IDFront: "a", IDBack: "b"})
	require.NoError(t, err)

	_, err = env.account.SetAccountStatus(ctx, env.admin.ID, env.admin2.ID, "BANNED")
	require.NoError(t, err)

	_, err = env.verification.Decide(ctx, env.admin2.ID, target.ID, &entities.VerificationDecisionInput{Decision: entities.DecisionApproved, TargetRole: entities.UserRoleOwner})
	require.ErrorIs(t, err, domainerrors.ErrInactiveAccount)
	assert.NotErrorIs(t, err, domainerrors.ErrForbidden)
	assert.Contains(t, err.Error(), "BANNED")

	_, _, err = env.verification.ListPending(ctx, env.admin2.ID, utils.PaginationParams{Page: 1, Limit: 10})
	assert.ErrorIs(t, err, domainerrors.ErrInactiveAccount)

	assert.Equal(t, entities.VerificationPending, env.reload(t, target.ID).VerificationStatus)
}

func TestFlow_ApprovalRollsBackWhenRoleLogFails(t *testing.T) {
	env := newFlowEnv(t, func(r *repositories.RoleChangeRepository) domainrepos.RoleChangeRepository {
		return failingRoleChanges{r}
	})
	ctx := context.Background()
	target := env.seed(t, "atomic@example.com")
	_, err := env.verification.Submit(ctx, target.ID, entities.IdentityDocuments{IDFront: "a", IDBack: "b"})
	require.NoError(t, err)

	_, err = env.verification.Decide(ctx, env.admin.ID, target.ID, &entities.VerificationDecisionInput{Decision: entities.DecisionApproved, TargetRole: entities.UserRoleOwner})
	require.EqualError(t, err, "role log unavailable")

	after := env.reload(t, target.ID)
	assert.Equal(t, entities.VerificationPending, after.VerificationStatus, "status must not change without the role")
	assert.Equal(t, entities.UserRoleStudent, after.Role)
	assert.False(t, after.VerificationDecidedAt.Valid)
}

func TestFlow_SubmitUploadsToVault(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	u := env.seed(t, "upload@example.com")

	out, err := env.verification.SubmitUploads(ctx, u.ID, usecases.DocumentUploads{
		IDFront: &usecases.DocumentUpload{Name: "front.jpg", Content: strings.NewReader("front-bytes")},
		IDBack:  &usecases.DocumentUpload{Name: "back.jpg", Content: strings.NewReader("back-bytes")},
	})
	require.NoError(t, err)
	assert.Equal(t, entities.VerificationPending, out.VerificationStatus)
	assert.True(t, strings.HasPrefix(out.Documents.IDFront, "/documents/"))
	assert.True(t, strings.HasPrefix(out.Documents.IDBack, "/documents/"))
	assert.False(t, out.Documents.Passport.Valid)

	_, err = env.verification.SubmitUploads(ctx, u.ID, usecases.DocumentUploads{
		IDFront: &usecases.DocumentUpload{Name: "front.jpg", Content: strings.NewReader("x")},
		IDBack:  &usecases.DocumentUpload{Name: "back.jpg", Content: strings.NewReader("y")},
	})
	assert.ErrorIs(t, err, domainerrors.ErrConflict)
}

func TestFlow_DeleteUserLeavesQueue(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	u := env.seed(t, "leaving@example.com")
	_, err := env.verification.Submit(ctx, u.ID, entities.IdentityDocuments{IDFront: "a", IDBack: "b"})
	require.NoError(t, err)

	require.NoError(t, env.account.DeleteUser(ctx, env.admin.ID, u.ID))

	_, total, err := env.verification.ListPending(ctx, env.admin.ID, utils.PaginationParams{Page: 1})
	require.NoError(t, err)
	assert.Zero(t, total)
	_, err = env.users.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestFlow_AdminOverrideIsLoggedSeparately(t *testing.T) {
	env := newFlowEnv(t)
	ctx := context.Background()
	u := env.seed(t, "override@example.com")

	_, err := env.verification.Submit(ctx, u.ID, entities.IdentityDocuments{IDFront: "a", IDBack: "b"})
	require.NoError(t, err)
	_, err = env.verification.Decide(ctx, env.admin.ID, u.ID, &entities.VerificationDecisionInput{Decision: entities.DecisionApproved, TargetRole: entities.UserRoleOwner})
	require.NoError(t, err)

	demoted, err := env.account.SetRole(ctx, env.admin.ID, u.ID, "STUDENT")
	require.NoError(t, err)
	assert.Equal(t, entities.UserRoleStudent, demoted.Role)
	assert.Equal(t, entities.VerificationApproved, demoted.VerificationStatus)

	history, err := env.account.RoleHistory(ctx, env.admin.ID, u.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, entities.RoleChangeVerificationApproval, history[0].Source)
	assert.Equal(t, entities.RoleChangeAdminOverride, history[1].Source)
	assert.Equal(t, env.admin.ID, history[1].ActorID)
}
