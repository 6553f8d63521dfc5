package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// NotificationType enumerates events emitted to the notification side channel
type NotificationType string

const (
	NotificationVerificationSubmitted NotificationType = "VerificationSubmitted"
	NotificationVerificationDecided   NotificationType = "VerificationDecided"
	NotificationAccountStatusChanged  NotificationType = "AccountStatusChanged"
	NotificationRoleChanged           NotificationType = "RoleChanged"
)

// NotificationEvent is delivered fire-and-forget; delivery failures never
// affect the operation that produced it.
type NotificationEvent struct {
	ID                 uuid.UUID          `json:"id"`
	Type               NotificationType   `json:"type"`
	UserID             uuid.UUID          `json:"userId"`
	VerificationStatus VerificationStatus `json:"verificationStatus,omitempty"`
	AccountStatus      AccountStatus      `json:"accountStatus,omitempty"`
	Role               UserRole           `json:"role,omitempty"`
	Remarks            null.String        `json:"remarks"`
	OccurredAt         time.Time          `json:"occurredAt"`
}
