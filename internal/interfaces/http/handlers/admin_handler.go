package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"hostelhub.backend/internal/domain/entities"
	domainerrors "hostelhub.backend/internal/domain/errors"
	"hostelhub.backend/internal/interfaces/http/middleware"
	"hostelhub.backend/internal/interfaces/http/response"
	"hostelhub.backend/internal/usecases"
	"hostelhub.backend/pkg/utils"
)

const defaultPageSize = 20

type reviewService interface {
	ListPending(ctx context.Context, actorID uuid.UUID, pagination utils.PaginationParams) ([]*entities.User, int64, error)
	Decide(ctx context.Context, actorID, userID uuid.UUID, input *entities.VerificationDecisionInput) (*entities.User, error)
}

type accountService interface {
	SetAccountStatus(ctx context.Context, actorID, userID uuid.UUID, status string) (*entities.User, error)
	SetRole(ctx context.Context, actorID, userID uuid.UUID, role string) (*entities.User, error)
	DeleteUser(ctx context.Context, actorID, userID uuid.UUID) error
	RoleHistory(ctx context.Context, actorID, userID uuid.UUID) ([]*entities.RoleChange, error)
	ListUsers(ctx context.Context, actorID uuid.UUID, search string, pagination utils.PaginationParams) ([]*entities.User, int64, error)
	GetUser(ctx context.Context, actorID, userID uuid.UUID) (*entities.User, error)
}

// AdminHandler handles reviewer endpoints
type AdminHandler struct {
	reviews  reviewService
	accounts accountService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(verificationUsecase *usecases.VerificationUsecase, accountUsecase *usecases.AccountUsecase) *AdminHandler {
	return &AdminHandler{
		reviews:  verificationUsecase,
		accounts: accountUsecase,
	}
}

// ListPending lists submissions awaiting review, oldest first
// GET /api/v1/admin/verifications/pending
func (h *AdminHandler) ListPending(c *gin.Context) {
	actorID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	pagination := paginationFromQuery(c)
	users, total, err := h.reviews.ListPending(c.Request.Context(), actorID, pagination)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"items": users,
		"meta":  utils.CalculateMeta(total, pagination.Page, pagination.Limit),
	})
}

// Decide approves or rejects a pending submission
// POST /api/v1/admin/verifications/:userId/decision
func (h *AdminHandler) Decide(c *gin.Context) {
	actorID, userID, ok := actorAndTarget(c, "userId")
	if !ok {
		return
	}

	var input entities.VerificationDecisionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	user, err := h.reviews.Decide(c.Request.Context(), actorID, userID, &input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// ListUsers lists users, optionally filtered by a name or email search
// GET /api/v1/admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	actorID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	pagination := paginationFromQuery(c)
	users, total, err := h.accounts.ListUsers(c.Request.Context(), actorID, c.Query("search"), pagination)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"items": users,
		"meta":  utils.CalculateMeta(total, pagination.Page, pagination.Limit),
	})
}

// GetUser returns one user record
// GET /api/v1/admin/users/:id
func (h *AdminHandler) GetUser(c *gin.Context) {
	actorID, userID, ok := actorAndTarget(c, "id")
	if !ok {
		return
	}

	user, err := h.accounts.GetUser(c.Request.Context(), actorID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// UpdateStatus sets the account status
// PUT /api/v1/admin/users/:id/status
func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	actorID, userID, ok := actorAndTarget(c, "id")
	if !ok {
		return
	}

	var input entities.UpdateAccountStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	user, err := h.accounts.SetAccountStatus(c.Request.Context(), actorID, userID, input.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// UpdateRole overrides the role outside the verification flow
// PUT /api/v1/admin/users/:id/role
func (h *AdminHandler) UpdateRole(c *gin.Context) {
	actorID, userID, ok := actorAndTarget(c, "id")
	if !ok {
		return
	}

	var input entities.UpdateRoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	user, err := h.accounts.SetRole(c.Request.Context(), actorID, userID, input.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// RoleHistory lists role changes of a user, oldest first
// GET /api/v1/admin/users/:id/roles
func (h *AdminHandler) RoleHistory(c *gin.Context) {
	actorID, userID, ok := actorAndTarget(c, "id")
	if !ok {
		return
	}

	changes, err := h.accounts.RoleHistory(c.Request.Context(), actorID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": changes})
}

// DeleteUser removes a user and drops any pending submission
// DELETE /api/v1/admin/users/:id
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	actorID, userID, ok := actorAndTarget(c, "id")
	if !ok {
		return
	}

	if err := h.accounts.DeleteUser(c.Request.Context(), actorID, userID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// actorAndTarget reads the caller from the auth context and the target user
// from the named path parameter. It writes the error response itself.
func actorAndTarget(c *gin.Context, param string) (uuid.UUID, uuid.UUID, bool) {
	actorID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return uuid.Nil, uuid.Nil, false
	}
	userID, ok := utils.ParseUUID(c.Param(param))
	if !ok {
		response.Error(c, domainerrors.BadRequest("Invalid user ID"))
		return uuid.Nil, uuid.Nil, false
	}
	return actorID, userID, true
}

func paginationFromQuery(c *gin.Context) utils.PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if limit < 1 {
		limit = defaultPageSize
	}
	return utils.GetPaginationParams(page, limit)
}
