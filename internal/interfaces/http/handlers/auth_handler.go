package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"hostelhub.backend/internal/domain/entities"
	domainerrors "hostelhub.backend/internal/domain/errors"
	"hostelhub.backend/internal/interfaces/http/middleware"
	"hostelhub.backend/internal/interfaces/http/response"
	"hostelhub.backend/internal/usecases"
	"hostelhub.backend/pkg/logger"
)

const (
	accessCookie  = "token"
	refreshCookie = "refresh_token"
)

type authService interface {
	Register(ctx context.Context, input *entities.CreateUserInput) (*entities.User, error)
	Login(ctx context.Context, input *entities.LoginInput) (*entities.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*entities.AuthResponse, error)
	GetMe(ctx context.Context, userID uuid.UUID) (*entities.User, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authUsecase   authService
	secureCookies bool
}

// NewAuthHandler creates a new auth handler. secureCookies marks the token
// cookies Secure, which production deployments behind TLS want.
func NewAuthHandler(authUsecase *usecases.AuthUsecase, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authUsecase:   authUsecase,
		secureCookies: secureCookies,
	}
}

// Register handles user registration
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var input entities.CreateUserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	user, err := h.authUsecase.Register(c.Request.Context(), &input)
	if err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			response.Error(c, domainerrors.NewAppError(http.StatusConflict, domainerrors.CodeAlreadyExists, "Email already registered", err))
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"message": "Registration successful",
		"user":    user,
	})
}

// Login handles user login
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var input entities.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	authResponse, err := h.authUsecase.Login(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setTokenCookies(c, authResponse)
	response.Success(c, http.StatusOK, authResponse)
}

// RefreshToken reissues a token pair from a refresh token taken from the
// JSON body or, failing that, the refresh cookie.
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var refreshToken string
	if c.Request.ContentLength > 0 {
		var input struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			logger.Debug(c.Request.Context(), "Refresh body not parsed", zap.Error(err))
		}
		refreshToken = input.RefreshToken
	}
	if refreshToken == "" {
		if cookie, err := c.Cookie(refreshCookie); err == nil {
			refreshToken = cookie
		}
	}
	if refreshToken == "" {
		response.Error(c, domainerrors.BadRequest("Refresh token is required"))
		return
	}

	authResponse, err := h.authUsecase.RefreshToken(c.Request.Context(), refreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setTokenCookies(c, authResponse)
	response.Success(c, http.StatusOK, authResponse)
}

// GetMe returns current authenticated user details
// GET /api/v1/auth/me
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("User not authenticated"))
		return
	}

	user, err := h.authUsecase.GetMe(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			response.Error(c, domainerrors.NotFound("User not found"))
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}

func (h *AuthHandler) setTokenCookies(c *gin.Context, auth *entities.AuthResponse) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessCookie, auth.AccessToken, 3600*24, "/", "", h.secureCookies, true)
	c.SetCookie(refreshCookie, auth.RefreshToken, 3600*24*7, "/", "", h.secureCookies, true)
}
