package usecases

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"hostelhub.backend/internal/domain/entities"
	domainerrors "hostelhub.backend/internal/domain/errors"
	"hostelhub.backend/internal/domain/repositories"
	"hostelhub.backend/pkg/crypto"
	"hostelhub.backend/pkg/jwt"
	"hostelhub.backend/pkg/logger"
	"hostelhub.backend/pkg/utils"
)

var hashPassword = crypto.HashPassword

// AuthUsecase handles authentication business logic
type AuthUsecase struct {
	userRepo   repositories.UserRepository
	jwtService *jwt.JWTService
}

// NewAuthUsecase creates a new auth usecase
func NewAuthUsecase(userRepo repositories.UserRepository, jwtService *jwt.JWTService) *AuthUsecase {
	return &AuthUsecase{
		userRepo:   userRepo,
		jwtService: jwtService,
	}
}

// Register creates a STUDENT account with nothing submitted
func (u *AuthUsecase) Register(ctx context.Context, input *entities.CreateUserInput) (*entities.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	_, err := u.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, domainerrors.ErrAlreadyExists
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}

	passwordHash, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := entities.NewUser(utils.GenerateUUIDv7(), email, input.Name, passwordHash, time.Now().UTC())
	if err := u.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.Info(ctx, "User registered", zap.String("user_id", user.ID.String()))
	return user, nil
}

// Login authenticates a user and returns tokens. Banned accounts cannot
// sign in; other inactive accounts can, and are stopped by the status gate.
func (u *AuthUsecase) Login(ctx context.Context, input *entities.LoginInput) (*entities.AuthResponse, error) {
	user, err := u.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !crypto.CheckPassword(input.Password, user.PasswordHash) {
		return nil, domainerrors.ErrInvalidCredentials
	}
	if user.AccountStatus == entities.AccountBanned {
		return nil, domainerrors.InactiveAccount(string(user.AccountStatus))
	}

	return u.issue(user)
}

// RefreshToken exchanges a refresh token for a new pair carrying the
// user's current role
func (u *AuthUsecase) RefreshToken(ctx context.Context, refreshToken string) (*entities.AuthResponse, error) {
	claims, err := u.jwtService.ValidateTokenOfType(refreshToken, jwt.TokenTypeRefresh)
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return nil, domainerrors.ErrTokenExpired
		}
		return nil, domainerrors.ErrUnauthorized
	}

	user, err := u.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.ErrUnauthorized
		}
		return nil, err
	}
	if user.AccountStatus == entities.AccountBanned {
		return nil, domainerrors.InactiveAccount(string(user.AccountStatus))
	}

	return u.issue(user)
}

// BootstrapAdmin makes sure an ACTIVE administrator exists for email. A new
// account is created with the given password; an existing one is promoted
// and reactivated and keeps its password. created reports which happened.
func (u *AuthUsecase) BootstrapAdmin(ctx context.Context, input *entities.CreateUserInput) (user *entities.User, created bool, err error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, false, domainerrors.Validation("admin email and password are required")
	}

	user, err = u.userRepo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domainerrors.ErrNotFound):
		passwordHash, err := hashPassword(input.Password)
		if err != nil {
			return nil, false, err
		}
		user = entities.NewUser(utils.GenerateUUIDv7(), email, input.Name, passwordHash, time.Now().UTC())
		user.Role = entities.UserRoleAdmin
		if err := u.userRepo.Create(ctx, user); err != nil {
			return nil, false, err
		}
		logger.Info(ctx, "Admin account created", zap.String("user_id", user.ID.String()))
		return user, true, nil
	case err != nil:
		return nil, false, err
	}

	if user.Role != entities.UserRoleAdmin {
		if user, err = u.userRepo.SetRole(ctx, user.ID, entities.UserRoleAdmin); err != nil {
			return nil, false, err
		}
	}
	if user.AccountStatus != entities.AccountActive {
		if user, err = u.userRepo.SetAccountStatus(ctx, user.ID, entities.AccountActive); err != nil {
			return nil, false, err
		}
	}
	logger.Info(ctx, "Admin account ensured", zap.String("user_id", user.ID.String()))
	return user, false, nil
}

// GetMe returns the caller's record
func (u *AuthUsecase) GetMe(ctx context.Context, userID uuid.UUID) (*entities.User, error) {
	return u.userRepo.GetByID(ctx, userID)
}

func (u *AuthUsecase) issue(user *entities.User) (*entities.AuthResponse, error) {
	tokenPair, err := u.jwtService.GenerateTokenPair(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &entities.AuthResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		User:         user,
	}, nil
}
