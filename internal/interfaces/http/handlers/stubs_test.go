package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"hostelhub.backend/internal/domain/entities"
	"hostelhub.backend/internal/interfaces/http/middleware"
	"hostelhub.backend/internal/usecases"
	"hostelhub.backend/pkg/utils"
)

type authStub struct {
	register func(*entities.CreateUserInput) (*entities.User, error)
	login    func(*entities.LoginInput) (*entities.AuthResponse, error)
	refresh  func(string) (*entities.AuthResponse, error)
	me       func(uuid.UUID) (*entities.User, error)
}

func (s *authStub) Register(_ context.Context, in *entities.CreateUserInput) (*entities.User, error) {
	return s.register(in)
}

func (s *authStub) Login(_ context.Context, in *entities.LoginInput) (*entities.AuthResponse, error) {
	return s.login(in)
}

func (s *authStub) RefreshToken(_ context.Context, token string) (*entities.AuthResponse, error) {
	return s.refresh(token)
}

func (s *authStub) GetMe(_ context.Context, id uuid.UUID) (*entities.User, error) { return s.me(id) }

type verificationStub struct {
	status  func(uuid.UUID) (*entities.VerificationSummary, error)
	submit  func(uuid.UUID, entities.IdentityDocuments) (*entities.User, error)
	uploads func(uuid.UUID, usecases.DocumentUploads) (*entities.User, error)
}

func (s *verificationStub) GetStatus(_ context.Context, id uuid.UUID) (*entities.VerificationSummary, error) {
	return s.status(id)
}

func (s *verificationStub) Submit(_ context.Context, id uuid.UUID, docs entities.IdentityDocuments) (*entities.User, error) {
	return s.submit(id, docs)
}

func (s *verificationStub) SubmitUploads(_ context.Context, id uuid.UUID, files usecases.DocumentUploads) (*entities.User, error) {
	return s.uploads(id, files)
}

type reviewStub struct {
	pending func(uuid.UUID, utils.PaginationParams) ([]*entities.User, int64, error)
	decide  func(actor, user uuid.UUID, in *entities.VerificationDecisionInput) (*entities.User, error)
}

func (s *reviewStub) ListPending(_ context.Context, actor uuid.UUID, p utils.PaginationParams) ([]*entities.User, int64, error) {
	return s.pending(actor, p)
}

func (s *reviewStub) Decide(_ context.Context, actor, user uuid.UUID, in *entities.VerificationDecisionInput) (*entities.User, error) {
	return s.decide(actor, user, in)
}

// accountStub records the last call; err is returned by every method.
type accountStub struct {
	user      *entities.User
	history   []*entities.RoleChange
	err       error
	lastArg   string
	lastActor uuid.UUID
	lastUser  uuid.UUID
	lastPage  utils.PaginationParams
}

func (s *accountStub) record(actor, user uuid.UUID, arg string) {
	s.lastActor, s.lastUser, s.lastArg = actor, user, arg
}

func (s *accountStub) SetAccountStatus(_ context.Context, actor, user uuid.UUID, status string) (*entities.User, error) {
	s.record(actor, user, status)
	return s.user, s.err
}

func (s *accountStub) SetRole(_ context.Context, actor, user uuid.UUID, role string) (*entities.User, error) {
	s.record(actor, user, role)
	return s.user, s.err
}

func (s *accountStub) DeleteUser(_ context.Context, actor, user uuid.UUID) error {
	s.record(actor, user, "delete")
	return s.err
}

func (s *accountStub) RoleHistory(_ context.Context, actor, user uuid.UUID) ([]*entities.RoleChange, error) {
	s.record(actor, user, "history")
	return s.history, s.err
}

func (s *accountStub) ListUsers(_ context.Context, actor uuid.UUID, search string, p utils.PaginationParams) ([]*entities.User, int64, error) {
	s.record(actor, uuid.Nil, search)
	s.lastPage = p
	if s.err != nil {
		return nil, 0, s.err
	}
	return []*entities.User{s.user}, 1, nil
}

func (s *accountStub) GetUser(_ context.Context, actor, user uuid.UUID) (*entities.User, error) {
	s.record(actor, user, "get")
	return s.user, s.err
}

// asUser authenticates the request as id the way AuthMiddleware would
func asUser(id uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id != uuid.Nil {
			c.Set(middleware.UserIDKey, id)
		}
		c.Next()
	}
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sampleUser(mutate ...func(*entities.User)) *entities.User {
	u := entities.NewUser(uuid.New(), "student@example.com", "Student", "hash", time.Now().UTC())
	for _, m := range mutate {
		m(u)
	}
	return u
}
