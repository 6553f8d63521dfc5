package repositories

import (
	"gorm.io/gorm"
	"hostelhub.backend/internal/infrastructure/models"
)

// AutoMigrate creates or updates the tables owned by this service
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.RoleChange{})
}
