package usecases_test

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"hostelhub.backend/internal/domain/entities"
	"hostelhub.backend/pkg/utils"
)

// Mock UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, f func(context.Context) error) error {
	m.Called(ctx, f)
	return f(ctx)
}

func (m *MockUnitOfWork) WithLock(ctx context.Context) context.Context {
	m.Called(ctx)
	return ctx
}

// Mock UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) ApplyVerificationTransition(ctx context.Context, id uuid.UUID, t *entities.VerificationTransition) (*entities.User, error) {
	args := m.Called(ctx, id, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) SetAccountStatus(ctx context.Context, id uuid.UUID, status entities.AccountStatus) (*entities.User, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) SetRole(ctx context.Context, id uuid.UUID, role entities.UserRole) (*entities.User, error) {
	args := m.Called(ctx, id, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) ResetVerification(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) ListByVerificationStatus(ctx context.Context, status entities.VerificationStatus, pagination utils.PaginationParams) ([]*entities.User, int64, error) {
	args := m.Called(ctx, status, pagination)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) List(ctx context.Context, search string, pagination utils.PaginationParams) ([]*entities.User, int64, error) {
	args := m.Called(ctx, search, pagination)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock RoleChangeRepository
type MockRoleChangeRepository struct {
	mock.Mock
}

func (m *MockRoleChangeRepository) Create(ctx context.Context, change *entities.RoleChange) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

func (m *MockRoleChangeRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.RoleChange, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RoleChange), args.Error(1)
}

// Mock Authorizer
type MockAuthorizer struct {
	mock.Mock
}

func (m *MockAuthorizer) IsReviewer(ctx context.Context, actorID uuid.UUID) (bool, error) {
	args := m.Called(ctx, actorID)
	return args.Bool(0), args.Error(1)
}

// Mock DocumentVault
type MockVault struct {
	mock.Mock
}

func (m *MockVault) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	args := m.Called(ctx, name, r)
	return args.String(0), args.Error(1)
}

// recordingNotifier keeps every event it is given
type recordingNotifier struct {
	mu     sync.Mutex
	events []entities.NotificationEvent
}

func (n *recordingNotifier) Notify(_ context.Context, event entities.NotificationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []entities.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]entities.NotificationEvent(nil), n.events...)
}
