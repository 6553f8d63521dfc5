package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	domainerrors "hostelhub.backend/internal/domain/errors"
)

// VerificationStatus is the identity-document review lifecycle
type VerificationStatus string

const (
	VerificationNotSubmitted VerificationStatus = "NOT_SUBMITTED"
	VerificationPending      VerificationStatus = "PENDING"
	VerificationApproved     VerificationStatus = "APPROVED"
	VerificationRejected     VerificationStatus = "REJECTED"
)

// VerificationStatuses lists every legal value.
var VerificationStatuses = []VerificationStatus{
	VerificationNotSubmitted,
	VerificationPending,
	VerificationApproved,
	VerificationRejected,
}

func (s VerificationStatus) IsValid() bool {
	switch s {
	case VerificationNotSubmitted, VerificationPending, VerificationApproved, VerificationRejected:
		return true
	}
	return false
}

// VerificationEvent drives the state machine
type VerificationEvent string

const (
	EventSubmit  VerificationEvent = "SUBMIT"
	EventApprove VerificationEvent = "APPROVE"
	EventReject  VerificationEvent = "REJECT"
)

// VerificationEvents lists every event the machine understands.
var VerificationEvents = []VerificationEvent{EventSubmit, EventApprove, EventReject}

type transitionKey struct {
	from  VerificationStatus
	event VerificationEvent
}

var verificationTransitions = map[transitionKey]VerificationStatus{
	{VerificationNotSubmitted, EventSubmit}: VerificationPending,
	{VerificationRejected, EventSubmit}:     VerificationPending,
	{VerificationPending, EventApprove}:     VerificationApproved,
	{VerificationPending, EventReject}:      VerificationRejected,
}

// NextVerificationStatus returns the state reached from `from` on `event`.
// ok is false for every edge not in the transition table.
func NextVerificationStatus(from VerificationStatus, event VerificationEvent) (VerificationStatus, bool) {
	to, ok := verificationTransitions[transitionKey{from, event}]
	return to, ok
}

// DocumentKind names a slot in IdentityDocuments
type DocumentKind string

const (
	DocumentIDFront  DocumentKind = "idFront"
	DocumentIDBack   DocumentKind = "idBack"
	DocumentPassport DocumentKind = "passport"
)

// IdentityDocuments holds vault references; the core never reads the files.
type IdentityDocuments struct {
	IDFront  string      `json:"idFront,omitempty"`
	IDBack   string      `json:"idBack,omitempty"`
	Passport null.String `json:"passport"`
}

// Validate checks that the mandatory references are present.
func (d IdentityDocuments) Validate() error {
	var missing []string
	if strings.TrimSpace(d.IDFront) == "" {
		missing = append(missing, string(DocumentIDFront))
	}
	if strings.TrimSpace(d.IDBack) == "" {
		missing = append(missing, string(DocumentIDBack))
	}
	if len(missing) > 0 {
		return domainerrors.Validation("missing required document: " + strings.Join(missing, ", "))
	}
	if d.Passport.Valid && strings.TrimSpace(d.Passport.String) == "" {
		return domainerrors.Validation("passport reference is empty")
	}
	return nil
}

// IsEmpty reports whether no reference is recorded.
func (d IdentityDocuments) IsEmpty() bool {
	return d.IDFront == "" && d.IDBack == "" && !d.Passport.Valid
}

// VerificationDecision is the reviewer's verdict
type VerificationDecision string

const (
	DecisionApproved VerificationDecision = "APPROVED"
	DecisionRejected VerificationDecision = "REJECTED"
)

func (d VerificationDecision) event() (VerificationEvent, bool) {
	switch d {
	case DecisionApproved:
		return EventApprove, true
	case DecisionRejected:
		return EventReject, true
	}
	return "", false
}

// SubmitVerificationInput carries already-uploaded document references.
// Missing references are reported by PlanSubmission, naming the document.
type SubmitVerificationInput struct {
	IDFront  string `json:"idFront"`
	IDBack   string `json:"idBack"`
	Passport string `json:"passport,omitempty"`
}

// Documents converts the input into IdentityDocuments.
func (in SubmitVerificationInput) Documents() IdentityDocuments {
	docs := IdentityDocuments{
		IDFront: strings.TrimSpace(in.IDFront),
		IDBack:  strings.TrimSpace(in.IDBack),
	}
	if p := strings.TrimSpace(in.Passport); p != "" {
		docs.Passport = null.StringFrom(p)
	}
	return docs
}

// VerificationDecisionInput is what a reviewer submits. TargetRole is only
// read on approval.
type VerificationDecisionInput struct {
	Decision   VerificationDecision `json:"decision" binding:"required"`
	TargetRole UserRole             `json:"targetRole,omitempty"`
	Remarks    string               `json:"remarks"`
}

// Normalize upper-cases the enum fields so clients may send any casing.
func (in *VerificationDecisionInput) Normalize() {
	in.Decision = VerificationDecision(strings.ToUpper(strings.TrimSpace(string(in.Decision))))
	in.TargetRole = UserRole(strings.ToUpper(strings.TrimSpace(string(in.TargetRole))))
}

// VerificationTransition is a planned, guarded change to one user record.
// From is the status the store must still observe when applying it.
type VerificationTransition struct {
	UserID       uuid.UUID
	Event        VerificationEvent
	From         VerificationStatus
	To           VerificationStatus
	Documents    *IdentityDocuments
	Remarks      null.String
	ClearRemarks bool
	Role         *UserRole
	PreviousRole UserRole
	ReviewedBy   uuid.NullUUID
	At           time.Time
}

// ChangesRole reports whether applying t alters the user's role.
func (t *VerificationTransition) ChangesRole() bool {
	return t.Role != nil && *t.Role != t.PreviousRole
}

// Apply returns a copy of u with t applied. Stores use it to keep the
// in-memory view identical to what they persist.
func (t *VerificationTransition) Apply(u User) User {
	u.VerificationStatus = t.To
	if t.Documents != nil {
		u.Documents = *t.Documents
		u.VerificationSubmittedAt = null.TimeFrom(t.At)
	}
	if t.ClearRemarks {
		u.VerificationRemarks = null.String{}
		u.VerificationDecidedAt = null.Time{}
		u.VerificationReviewedBy = uuid.NullUUID{}
	}
	if t.Event != EventSubmit {
		u.VerificationRemarks = t.Remarks
		u.VerificationDecidedAt = null.TimeFrom(t.At)
		u.VerificationReviewedBy = t.ReviewedBy
	}
	if t.Role != nil {
		u.Role = *t.Role
	}
	u.UpdatedAt = t.At
	return u
}

// ConflictForStatus builds the conflict error naming the current status.
func ConflictForStatus(status VerificationStatus, action string) error {
	switch {
	case action == "submit" && status == VerificationPending:
		return domainerrors.Conflict("verification already under review (status PENDING)")
	case action == "submit" && status == VerificationApproved:
		return domainerrors.Conflict("identity already verified (status APPROVED)")
	default:
		return domainerrors.Conflict(fmt.Sprintf("cannot %s verification in status %s", action, status))
	}
}

// PlanSubmission validates a document submission against u and returns the
// transition to apply.
func PlanSubmission(u *User, docs IdentityDocuments, now time.Time) (*VerificationTransition, error) {
	if !u.IsActive() {
		return nil, domainerrors.InactiveAccount(string(u.AccountStatus))
	}
	to, ok := NextVerificationStatus(u.VerificationStatus, EventSubmit)
	if !ok {
		return nil, ConflictForStatus(u.VerificationStatus, "submit")
	}
	if err := docs.Validate(); err != nil {
		return nil, err
	}
	d := docs
	return &VerificationTransition{
		UserID:       u.ID,
		Event:        EventSubmit,
		From:         u.VerificationStatus,
		To:           to,
		Documents:    &d,
		ClearRemarks: true,
		PreviousRole: u.Role,
		At:           now,
	}, nil
}

// CheckSubmittable runs the submission guards that do not depend on the
// documents, so callers can fail before uploading anything.
func CheckSubmittable(u *User) error {
	if !u.IsActive() {
		return domainerrors.InactiveAccount(string(u.AccountStatus))
	}
	if _, ok := NextVerificationStatus(u.VerificationStatus, EventSubmit); !ok {
		return ConflictForStatus(u.VerificationStatus, "submit")
	}
	return nil
}

// ValidateDecisionInput checks the reviewer's payload independent of any record.
func ValidateDecisionInput(in *VerificationDecisionInput) error {
	if _, ok := in.Decision.event(); !ok {
		return domainerrors.Validation(fmt.Sprintf("decision must be %s or %s", DecisionApproved, DecisionRejected))
	}
	if in.Decision == DecisionApproved && !in.TargetRole.IsElevated() {
		return domainerrors.Validation("targetRole must be one of OWNER, CARETAKER, ADMIN when approving")
	}
	return nil
}

// PlanDecision validates a reviewer's decision against u and returns the
// transition to apply.
func PlanDecision(u *User, in *VerificationDecisionInput, reviewer uuid.UUID, now time.Time) (*VerificationTransition, error) {
	if err := ValidateDecisionInput(in); err != nil {
		return nil, err
	}
	if !u.IsActive() {
		return nil, domainerrors.InactiveAccount(string(u.AccountStatus))
	}
	event, _ := in.Decision.event()
	to, ok := NextVerificationStatus(u.VerificationStatus, event)
	if !ok {
		return nil, ConflictForStatus(u.VerificationStatus, "decide")
	}

	t := &VerificationTransition{
		UserID:       u.ID,
		Event:        event,
		From:         u.VerificationStatus,
		To:           to,
		PreviousRole: u.Role,
		ReviewedBy:   uuid.NullUUID{UUID: reviewer, Valid: true},
		At:           now,
	}
	if remarks := strings.TrimSpace(in.Remarks); remarks != "" {
		t.Remarks = null.StringFrom(remarks)
	}
	if event == EventApprove {
		if in.TargetRole.Rank() < u.Role.Rank() {
			return nil, domainerrors.Validation(fmt.Sprintf("approval cannot demote %s to %s", u.Role, in.TargetRole))
		}
		role := in.TargetRole
		t.Role = &role
	}
	return t, nil
}

// VerificationSummary is what a user sees about their own verification.
type VerificationSummary struct {
	Status      VerificationStatus `json:"identityVerificationStatus"`
	Documents   IdentityDocuments  `json:"identityDocuments"`
	Remarks     null.String        `json:"verificationRemarks"`
	SubmittedAt null.Time          `json:"verificationSubmittedAt"`
	DecidedAt   null.Time          `json:"verificationDecidedAt"`
	CanSubmit   bool               `json:"canSubmit"`
}

// Summary projects u's verification fields.
func (u *User) Summary() VerificationSummary {
	return VerificationSummary{
		Status:      u.VerificationStatus,
		Documents:   u.Documents,
		Remarks:     u.VerificationRemarks,
		SubmittedAt: u.VerificationSubmittedAt,
		DecidedAt:   u.VerificationDecidedAt,
		CanSubmit:   CheckSubmittable(u) == nil,
	}
}
