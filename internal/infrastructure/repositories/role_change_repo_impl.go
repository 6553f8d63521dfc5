package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"hostelhub.backend/internal/domain/entities"
	"hostelhub.backend/internal/infrastructure/models"
	"hostelhub.backend/pkg/utils"
)

// RoleChangeRepository implements the role change log
type RoleChangeRepository struct {
	db *gorm.DB
}

// NewRoleChangeRepository creates a new role change repository
func NewRoleChangeRepository(db *gorm.DB) *RoleChangeRepository {
	return &RoleChangeRepository{db: db}
}

// Create appends a role change
func (r *RoleChangeRepository) Create(ctx context.Context, change *entities.RoleChange) error {
	if change.ID == uuid.Nil {
		change.ID = utils.GenerateUUIDv7()
	}
	if change.CreatedAt.IsZero() {
		change.CreatedAt = time.Now().UTC()
	}
	m := &models.RoleChange{
		ID:        change.ID,
		UserID:    change.UserID,
		ActorID:   change.ActorID,
		FromRole:  string(change.FromRole),
		ToRole:    string(change.ToRole),
		Source:    string(change.Source),
		CreatedAt: change.CreatedAt,
	}
	return GetDB(ctx, r.db).Create(m).Error
}

// ListByUserID returns a user's role changes, oldest first
func (r *RoleChangeRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.RoleChange, error) {
	var rows []models.RoleChange
	if err := GetDB(ctx, r.db).Where("user_id = ?", userID).Order("created_at ASC").Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	changes := make([]*entities.RoleChange, 0, len(rows))
	for _, m := range rows {
		changes = append(changes, &entities.RoleChange{
			ID:        m.ID,
			UserID:    m.UserID,
			ActorID:   m.ActorID,
			FromRole:  entities.UserRole(m.FromRole),
			ToRole:    entities.UserRole(m.ToRole),
			Source:    entities.RoleChangeSource(m.Source),
			CreatedAt: m.CreatedAt,
		})
	}
	return changes, nil
}
