package entities

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainerrors "hostelhub.backend/internal/domain/errors"
)

var validDocs = IdentityDocuments{IDFront: "vault://front", IDBack: "vault://back"}

func TestNextVerificationStatus_Table(t *testing.T) {
	legal := map[VerificationStatus]map[VerificationEvent]VerificationStatus{
		VerificationNotSubmitted: {EventSubmit: VerificationPending},
		VerificationRejected:     {EventSubmit: VerificationPending},
		VerificationPending:      {EventApprove: VerificationApproved, EventReject: VerificationRejected},
	}

	for _, from := range VerificationStatuses {
		for _, ev := range VerificationEvents {
			to, ok := NextVerificationStatus(from, ev)
			want, wantOK := legal[from][ev]
			assert.Equal(t, wantOK, ok, "%s --%s-->", from, ev)
			if wantOK {
				assert.Equal(t, want, to)
			}
		}
	}
}

func TestApproved_IsTerminal(t *testing.T) {
	for _, ev := range VerificationEvents {
		_, ok := NextVerificationStatus(VerificationApproved, ev)
		assert.False(t, ok, "APPROVED must not accept %s", ev)
	}
}

func TestIdentityDocuments_Validate(t *testing.T) {
	assert.NoError(t, validDocs.Validate())

	err := IdentityDocuments{IDFront: "f"}.Validate()
	require.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Contains(t, err.Error(), "idBack")

	err = IdentityDocuments{}.Validate()
	assert.Contains(t, err.Error(), "idFront, idBack")

	docs := validDocs
	docs.Passport.Valid = true
	assert.ErrorIs(t, docs.Validate(), domainerrors.ErrValidation)

	assert.True(t, IdentityDocuments{}.IsEmpty())
	assert.False(t, validDocs.IsEmpty())
}

func TestSubmitVerificationInput_Documents(t *testing.T) {
	docs := SubmitVerificationInput{IDFront: " f ", IDBack: "b", Passport: "  "}.Documents()
	assert.Equal(t, "f", docs.IDFront)
	assert.False(t, docs.Passport.Valid)

	docs = SubmitVerificationInput{IDFront: "f", IDBack: "b", Passport: "p"}.Documents()
	assert.Equal(t, "p", docs.Passport.String)
}

func TestPlanSubmission(t *testing.T) {
	now := time.Now().UTC()

	u := NewUser(uuid.New(), "s@example.com", "S", "h", now)
	tr, err := PlanSubmission(u, validDocs, now)
	require.NoError(t, err)
	assert.Equal(t, VerificationNotSubmitted, tr.From)
	assert.Equal(t, VerificationPending, tr.To)
	assert.True(t, tr.ClearRemarks)
	assert.False(t, tr.ChangesRole())

	next := tr.Apply(*u)
	assert.Equal(t, VerificationPending, next.VerificationStatus)
	assert.Equal(t, validDocs, next.Documents)
	assert.True(t, next.VerificationSubmittedAt.Valid)
	assert.Equal(t, VerificationNotSubmitted, u.VerificationStatus, "Apply must not mutate its input")

	_, err = PlanSubmission(u, IdentityDocuments{IDFront: "f"}, now)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestPlanSubmission_GuardOrder(t *testing.T) {
	now := time.Now().UTC()

	pending := NewUser(uuid.New(), "p@example.com", "P", "h", now)
	pending.VerificationStatus = VerificationPending
	_, err := PlanSubmission(pending, IdentityDocuments{}, now)
	require.ErrorIs(t, err, domainerrors.ErrConflict, "state is checked before documents")
	assert.Contains(t, err.Error(), "already under review")

	approved := NewUser(uuid.New(), "a@example.com", "A", "h", now)
	approved.VerificationStatus = VerificationApproved
	_, err = PlanSubmission(approved, validDocs, now)
	require.ErrorIs(t, err, domainerrors.ErrConflict)
	assert.Contains(t, err.Error(), "already verified")

	suspended := NewUser(uuid.New(), "x@example.com", "X", "h", now)
	suspended.AccountStatus = AccountSuspended
	suspended.VerificationStatus = VerificationPending
	_, err = PlanSubmission(suspended, validDocs, now)
	require.ErrorIs(t, err, domainerrors.ErrInactiveAccount, "account status is checked first")
	assert.ErrorIs(t, CheckSubmittable(suspended), domainerrors.ErrInactiveAccount)
	assert.ErrorIs(t, CheckSubmittable(approved), domainerrors.ErrConflict)
	assert.NoError(t, CheckSubmittable(NewUser(uuid.New(), "n@example.com", "N", "h", now)))
}

func TestPlanSubmission_ResubmitClearsDecision(t *testing.T) {
	now := time.Now().UTC()
	u := NewUser(uuid.New(), "r@example.com", "R", "h", now)
	u.VerificationStatus = VerificationPending
	reject, err := PlanDecision(u, &VerificationDecisionInput{Decision: DecisionRejected, Remarks: "blurry"}, uuid.New(), now)
	require.NoError(t, err)
	rejected := reject.Apply(*u)
	assert.Equal(t, "blurry", rejected.VerificationRemarks.String)

	resubmit, err := PlanSubmission(&rejected, validDocs, now.Add(time.Minute))
	require.NoError(t, err)
	again := resubmit.Apply(rejected)
	assert.Equal(t, VerificationPending, again.VerificationStatus)
	assert.False(t, again.VerificationRemarks.Valid)
	assert.False(t, again.VerificationDecidedAt.Valid)
	assert.False(t, again.VerificationReviewedBy.Valid)
}

func TestValidateDecisionInput(t *testing.T) {
	cases := []struct {
		name string
		in   VerificationDecisionInput
		ok   bool
	}{
		{"approve owner", VerificationDecisionInput{Decision: DecisionApproved, TargetRole: UserRoleOwner}, true},
		{"approve caretaker", VerificationDecisionInput{Decision: DecisionApproved, TargetRole: UserRoleCaretaker}, true},
		{"approve admin", VerificationDecisionInput{Decision: DecisionApproved, TargetRole: UserRoleAdmin}, true},
		{"approve student", VerificationDecisionInput{Decision: DecisionApproved, TargetRole: UserRoleStudent}, false},
		{"approve without role", VerificationDecisionInput{Decision: DecisionApproved}, false},
		{"reject ignores role", VerificationDecisionInput{Decision: DecisionRejected, TargetRole: "BOGUS"}, true},
		{"unknown decision", VerificationDecisionInput{Decision: "MAYBE"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateDecisionInput(&tc.in)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domainerrors.ErrValidation)
			}
		})
	}
}

func TestVerificationDecisionInput_Normalize(t *testing.T) {
	in := VerificationDecisionInput{Decision: " approved ", TargetRole: "owner"}
	in.Normalize()
	assert.Equal(t, DecisionApproved, in.Decision)
	assert.Equal(t, UserRoleOwner, in.TargetRole)
}

func TestPlanDecision(t *testing.T) {
	now := time.Now().UTC()
	reviewer := uuid.New()

	u := NewUser(uuid.New(), "d@example.com", "D", "h", now)
	u.VerificationStatus = VerificationPending

	approve, err := PlanDecision(u, &VerificationDecisionInput{Decision: DecisionApproved, TargetRole: UserRoleOwner, Remarks: "  "}, reviewer, now)
	require.NoError(t, err)
	assert.Equal(t, VerificationApproved, approve.To)
	assert.True(t, approve.ChangesRole())
	assert.False(t, approve.Remarks.Valid, "blank remarks are stored as absent")
	approved := approve.Apply(*u)
	assert.Equal(t, UserRoleOwner, approved.Role)
	assert.Equal(t, reviewer, approved.VerificationReviewedBy.UUID)

	reject, err := PlanDecision(u, &VerificationDecisionInput{Decision: DecisionRejected, Remarks: "expired ID"}, reviewer, now)
	require.NoError(t, err)
	assert.Nil(t, reject.Role)
	assert.Equal(t, "expired ID", reject.Remarks.String)
	assert.Equal(t, UserRoleStudent, reject.Apply(*u).Role)
}

func TestPlanDecision_Errors(t *testing.T) {
	now := time.Now().UTC()
	reviewer := uuid.New()

	notSubmitted := NewUser(uuid.New(), "n@example.com", "N", "h", now)
	_, err := PlanDecision(notSubmitted, &VerificationDecisionInput{Decision: DecisionRejected}, reviewer, now)
	require.ErrorIs(t, err, domainerrors.ErrConflict)
	assert.Contains(t, err.Error(), "NOT_SUBMITTED")

	pending := NewUser(uuid.New(), "p@example.com", "P", "h", now)
	pending.VerificationStatus = VerificationPending
	_, err = PlanDecision(pending, &VerificationDecisionInput{Decision: DecisionApproved, TargetRole: UserRoleStudent}, reviewer, now)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	banned := NewUser(uuid.New(), "b@example.com", "B", "h", now)
	banned.VerificationStatus = VerificationPending
	banned.AccountStatus = AccountBanned
	_, err = PlanDecision(banned, &VerificationDecisionInput{Decision: DecisionRejected}, reviewer, now)
	require.ErrorIs(t, err, domainerrors.ErrInactiveAccount)
	assert.Contains(t, err.Error(), "BANNED")

	owner := NewUser(uuid.New(), "o@example.com", "O", "h", now)
	owner.Role = UserRoleOwner
	owner.VerificationStatus = VerificationPending
	_, err = PlanDecision(owner, &VerificationDecisionInput{Decision: DecisionApproved, TargetRole: UserRoleCaretaker}, reviewer, now)
	require.ErrorIs(t, err, domainerrors.ErrValidation, "approval cannot demote")
}

// Random event sequences never leave the transition table and never change
// role outside an approval.
func TestVerificationRandomWalk(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	decisions := []VerificationDecision{DecisionApproved, DecisionRejected}
	targets := []UserRole{UserRoleCaretaker, UserRoleOwner, UserRoleAdmin}

	for walk := 0; walk < 200; walk++ {
		now := time.Now().UTC()
		u := *NewUser(uuid.New(), "walk@example.com", "W", "h", now)

		for step := 0; step < 12; step++ {
			before := u
			var tr *VerificationTransition
			var err error
			if rng.Intn(2) == 0 {
				tr, err = PlanSubmission(&u, validDocs, now)
			} else {
				in := &VerificationDecisionInput{
					Decision:   decisions[rng.Intn(len(decisions))],
					TargetRole: targets[rng.Intn(len(targets))],
				}
				tr, err = PlanDecision(&u, in, uuid.New(), now)
			}
			if err != nil {
				continue
			}

			to, ok := NextVerificationStatus(before.VerificationStatus, tr.Event)
			require.True(t, ok)
			require.Equal(t, to, tr.To)
			u = tr.Apply(u)

			if tr.Event != EventApprove {
				require.Equal(t, before.Role, u.Role)
			}
			if u.VerificationStatus == VerificationApproved {
				require.True(t, u.Role.IsElevated())
			}
			require.True(t, u.VerificationStatus.IsValid())
		}
	}
}
