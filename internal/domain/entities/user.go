package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// UserRole represents user roles
type UserRole string

const (
	UserRoleStudent   UserRole = "STUDENT"
	UserRoleCaretaker UserRole = "CARETAKER"
	UserRoleOwner     UserRole = "OWNER"
	UserRoleAdmin     UserRole = "ADMIN"
)

var roleRank = map[UserRole]int{
	UserRoleStudent:   0,
	UserRoleCaretaker: 1,
	UserRoleOwner:     2,
	UserRoleAdmin:     3,
}

// IsValid reports whether r is one of the known roles.
func (r UserRole) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// Rank orders roles by privilege. Unknown roles rank below STUDENT.
func (r UserRole) Rank() int {
	if rank, ok := roleRank[r]; ok {
		return rank
	}
	return -1
}

// IsElevated reports whether r can be granted by an approved verification.
func (r UserRole) IsElevated() bool {
	return r == UserRoleOwner || r == UserRoleCaretaker || r == UserRoleAdmin
}

// ParseUserRole normalizes and validates a role coming from outside the core.
func ParseUserRole(s string) (UserRole, bool) {
	r := UserRole(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// AccountStatus is the administrative lifecycle that gates privileged actions.
type AccountStatus string

const (
	AccountActive      AccountStatus = "ACTIVE"
	AccountSuspended   AccountStatus = "SUSPENDED"
	AccountDeactivated AccountStatus = "DEACTIVATED"
	AccountBanned      AccountStatus = "BANNED"
)

func (s AccountStatus) IsValid() bool {
	switch s {
	case AccountActive, AccountSuspended, AccountDeactivated, AccountBanned:
		return true
	}
	return false
}

// ParseAccountStatus normalizes and validates an account status.
func ParseAccountStatus(s string) (AccountStatus, bool) {
	st := AccountStatus(strings.ToUpper(strings.TrimSpace(s)))
	return st, st.IsValid()
}

// User represents a registered person and their verification state
type User struct {
	ID                      uuid.UUID          `json:"id"`
	Email                   string             `json:"email"`
	Name                    string             `json:"name"`
	PasswordHash            string             `json:"-"`
	Role                    UserRole           `json:"role"`
	AccountStatus           AccountStatus      `json:"accountStatus"`
	VerificationStatus      VerificationStatus `json:"identityVerificationStatus"`
	Documents               IdentityDocuments  `json:"identityDocuments"`
	VerificationRemarks     null.String        `json:"verificationRemarks"`
	VerificationSubmittedAt null.Time          `json:"verificationSubmittedAt"`
	VerificationDecidedAt   null.Time          `json:"verificationDecidedAt"`
	VerificationReviewedBy  uuid.NullUUID      `json:"verificationReviewedBy"`
	CreatedAt               time.Time          `json:"createdAt"`
	UpdatedAt               time.Time          `json:"updatedAt"`
}

// IsActive reports whether the account may perform privileged actions.
func (u *User) IsActive() bool {
	return u.AccountStatus == AccountActive
}

// NewUser builds a freshly registered user: STUDENT, ACTIVE, NOT_SUBMITTED.
func NewUser(id uuid.UUID, email, name, passwordHash string, now time.Time) *User {
	return &User{
		ID:                 id,
		Email:              strings.ToLower(strings.TrimSpace(email)),
		Name:               strings.TrimSpace(name),
		PasswordHash:       passwordHash,
		Role:               UserRoleStudent,
		AccountStatus:      AccountActive,
		VerificationStatus: VerificationNotSubmitted,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// CreateUserInput represents input for creating a user
type CreateUserInput struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginInput represents input for user login
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"user"`
}

// UpdateAccountStatusInput is the admin override payload for the status gate.
type UpdateAccountStatusInput struct {
	Status string `json:"status" binding:"required"`
}

// UpdateRoleInput is the admin override payload for a direct role edit.
type UpdateRoleInput struct {
	Role string `json:"role" binding:"required"`
}
