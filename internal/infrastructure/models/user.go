package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email                      string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name                       string     `gorm:"type:varchar(100);not null"`
	PasswordHash               string     `gorm:"type:varchar(255);not null"`
	Role                       string     `gorm:"type:varchar(20);not null;default:'STUDENT'"`
	AccountStatus              string     `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	IdentityVerificationStatus string     `gorm:"type:varchar(20);not null;default:'NOT_SUBMITTED';index:idx_users_verification_queue,priority:1"`
	IDFrontURL                 *string    `gorm:"type:text"`
	IDBackURL                  *string    `gorm:"type:text"`
	PassportURL                *string    `gorm:"type:text"`
	VerificationRemarks        *string    `gorm:"type:text"`
	VerificationSubmittedAt    *time.Time `gorm:"type:timestamp;index:idx_users_verification_queue,priority:2"`
	VerificationDecidedAt      *time.Time `gorm:"type:timestamp"`
	VerificationReviewedBy     *uuid.UUID `gorm:"type:uuid"`
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
	DeletedAt                  gorm.DeletedAt `gorm:"index"`
}

type RoleChange struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ActorID   uuid.UUID `gorm:"type:uuid;not null"`
	FromRole  string    `gorm:"type:varchar(20);not null"`
	ToRole    string    `gorm:"type:varchar(20);not null"`
	Source    string    `gorm:"type:varchar(30);not null"`
	CreatedAt time.Time
}

func (RoleChange) TableName() string {
	return "role_changes"
}
