package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"hostelhub.backend/internal/domain/entities"
	domainerrors "hostelhub.backend/internal/domain/errors"
	"hostelhub.backend/internal/infrastructure/models"
	"hostelhub.backend/pkg/utils"
)

// UserRepository implements user record operations
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	if user.ID == uuid.Nil {
		user.ID = utils.GenerateUUIDv7()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = user.CreatedAt

	m := toModel(user)
	if err := GetDB(ctx, r.db).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetByID gets a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	var m models.User
	if err := GetDB(ctx, r.db).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toEntity(&m), nil
}

// GetByEmail gets a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	var m models.User
	email = strings.ToLower(strings.TrimSpace(email))
	if err := GetDB(ctx, r.db).Where("email = ?", email).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toEntity(&m), nil
}

// ApplyVerificationTransition writes t with a compare-and-swap on the
// verification status and account status. Status, documents, remarks and
// role go out in a single UPDATE.
func (r *UserRepository) ApplyVerificationTransition(ctx context.Context, id uuid.UUID, t *entities.VerificationTransition) (*entities.User, error) {
	updates := map[string]interface{}{
		"identity_verification_status": string(t.To),
		"updated_at":                   t.At,
	}
	if t.Documents != nil {
		updates["id_front_url"] = t.Documents.IDFront
		updates["id_back_url"] = t.Documents.IDBack
		updates["passport_url"] = t.Documents.Passport.Ptr()
		updates["verification_submitted_at"] = t.At
	}
	if t.ClearRemarks {
		updates["verification_remarks"] = nil
		updates["verification_decided_at"] = nil
		updates["verification_reviewed_by"] = nil
	}
	if t.Event != entities.EventSubmit {
		updates["verification_remarks"] = t.Remarks.Ptr()
		updates["verification_decided_at"] = t.At
		if t.ReviewedBy.Valid {
			updates["verification_reviewed_by"] = t.ReviewedBy.UUID
		}
	}
	if t.Role != nil {
		updates["role"] = string(*t.Role)
	}

	result := GetDB(ctx, r.db).Model(&models.User{}).
		Where("id = ? AND identity_verification_status = ? AND account_status = ?", id, string(t.From), string(entities.AccountActive)).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, r.classifyRejectedTransition(ctx, id, t)
	}
	return r.GetByID(ctx, id)
}

// classifyRejectedTransition explains why a guarded UPDATE touched no row.
func (r *UserRepository) classifyRejectedTransition(ctx context.Context, id uuid.UUID, t *entities.VerificationTransition) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !current.IsActive() {
		return domainerrors.InactiveAccount(string(current.AccountStatus))
	}
	action := "decide"
	if t.Event == entities.EventSubmit {
		action = "submit"
	}
	return entities.ConflictForStatus(current.VerificationStatus, action)
}

// SetAccountStatus overwrites the account status unconditionally
func (r *UserRepository) SetAccountStatus(ctx context.Context, id uuid.UUID, status entities.AccountStatus) (*entities.User, error) {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"account_status": string(status),
		"updated_at":     time.Now().UTC(),
	})
}

// SetRole overwrites the role, bypassing the verification state machine
func (r *UserRepository) SetRole(ctx context.Context, id uuid.UUID, role entities.UserRole) (*entities.User, error) {
	return r.updateColumns(ctx, id, map[string]interface{}{
		"role":       string(role),
		"updated_at": time.Now().UTC(),
	})
}

// ResetVerification drops any verification state back to NOT_SUBMITTED
func (r *UserRepository) ResetVerification(ctx context.Context, id uuid.UUID) error {
	_, err := r.updateColumns(ctx, id, map[string]interface{}{
		"identity_verification_status": string(entities.VerificationNotSubmitted),
		"id_front_url":                 nil,
		"id_back_url":                  nil,
		"passport_url":                 nil,
		"verification_remarks":         nil,
		"verification_submitted_at":    nil,
		"verification_decided_at":      nil,
		"verification_reviewed_by":     nil,
		"updated_at":                   time.Now().UTC(),
	})
	return err
}

func (r *UserRepository) updateColumns(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*entities.User, error) {
	result := GetDB(ctx, r.db).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, domainerrors.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// ListByVerificationStatus lists users in a verification status, oldest
// submission first
func (r *UserRepository) ListByVerificationStatus(ctx context.Context, status entities.VerificationStatus, pagination utils.PaginationParams) ([]*entities.User, int64, error) {
	query := GetDB(ctx, r.db).Model(&models.User{}).Where("identity_verification_status = ?", string(status))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("verification_submitted_at ASC").Order("id ASC")
	return r.find(query, pagination, total)
}

// List lists users with optional search filter
func (r *UserRepository) List(ctx context.Context, search string, pagination utils.PaginationParams) ([]*entities.User, int64, error) {
	query := GetDB(ctx, r.db).Model(&models.User{})

	if search = strings.TrimSpace(search); search != "" {
		searchTerm := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC")
	return r.find(query, pagination, total)
}

func (r *UserRepository) find(query *gorm.DB, pagination utils.PaginationParams, total int64) ([]*entities.User, int64, error) {
	if pagination.Limit > 0 {
		query = query.Limit(pagination.Limit).Offset(pagination.CalculateOffset())
	}

	var userModels []models.User
	if err := query.Find(&userModels).Error; err != nil {
		return nil, 0, err
	}

	users := make([]*entities.User, 0, len(userModels))
	for i := range userModels {
		users = append(users, toEntity(&userModels[i]))
	}
	return users, total, nil
}

// SoftDelete soft deletes a user
func (r *UserRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := GetDB(ctx, r.db).Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func toModel(u *entities.User) *models.User {
	m := &models.User{
		ID:                         u.ID,
		Email:                      u.Email,
		Name:                       u.Name,
		PasswordHash:               u.PasswordHash,
		Role:                       string(u.Role),
		AccountStatus:              string(u.AccountStatus),
		IdentityVerificationStatus: string(u.VerificationStatus),
		PassportURL:                u.Documents.Passport.Ptr(),
		VerificationRemarks:        u.VerificationRemarks.Ptr(),
		VerificationSubmittedAt:    u.VerificationSubmittedAt.Ptr(),
		VerificationDecidedAt:      u.VerificationDecidedAt.Ptr(),
		CreatedAt:                  u.CreatedAt,
		UpdatedAt:                  u.UpdatedAt,
	}
	if u.Documents.IDFront != "" {
		m.IDFrontURL = &u.Documents.IDFront
	}
	if u.Documents.IDBack != "" {
		m.IDBackURL = &u.Documents.IDBack
	}
	if u.VerificationReviewedBy.Valid {
		reviewer := u.VerificationReviewedBy.UUID
		m.VerificationReviewedBy = &reviewer
	}
	return m
}

func toEntity(m *models.User) *entities.User {
	u := &entities.User{
		ID:                      m.ID,
		Email:                   m.Email,
		Name:                    m.Name,
		PasswordHash:            m.PasswordHash,
		Role:                    entities.UserRole(m.Role),
		AccountStatus:           entities.AccountStatus(m.AccountStatus),
		VerificationStatus:      entities.VerificationStatus(m.IdentityVerificationStatus),
		VerificationRemarks:     null.StringFromPtr(m.VerificationRemarks),
		VerificationSubmittedAt: null.TimeFromPtr(m.VerificationSubmittedAt),
		VerificationDecidedAt:   null.TimeFromPtr(m.VerificationDecidedAt),
		CreatedAt:               m.CreatedAt,
		UpdatedAt:               m.UpdatedAt,
	}
	if m.IDFrontURL != nil {
		u.Documents.IDFront = *m.IDFrontURL
	}
	if m.IDBackURL != nil {
		u.Documents.IDBack = *m.IDBackURL
	}
	u.Documents.Passport = null.StringFromPtr(m.PassportURL)
	if m.VerificationReviewedBy != nil {
		u.VerificationReviewedBy = uuid.NullUUID{UUID: *m.VerificationReviewedBy, Valid: true}
	}
	return u
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
