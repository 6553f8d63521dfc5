package entities

import (
	"time"

	"github.com/google/uuid"
)

// RoleChangeSource tells state-machine promotions apart from manual edits
type RoleChangeSource string

const (
	RoleChangeVerificationApproval RoleChangeSource = "VERIFICATION_APPROVAL"
	RoleChangeAdminOverride        RoleChangeSource = "ADMIN_OVERRIDE"
)

// RoleChange is an append-only record of a role mutation
type RoleChange struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"userId"`
	ActorID   uuid.UUID        `json:"actorId"`
	FromRole  UserRole         `json:"fromRole"`
	ToRole    UserRole         `json:"toRole"`
	Source    RoleChangeSource `json:"source"`
	CreatedAt time.Time        `json:"createdAt"`
}
