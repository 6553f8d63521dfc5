package usecases

import (
	"context"
	"io"

	"github.com/google/uuid"
	"hostelhub.backend/internal/domain/entities"
)

// DocumentVault stores uploaded identity documents and returns opaque
// references. The core never reads document contents.
type DocumentVault interface {
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}

// Notifier delivers events fire-and-forget. Implementations must not block
// and must not surface delivery errors to the caller.
type Notifier interface {
	Notify(ctx context.Context, event entities.NotificationEvent)
}

// Authorizer decides whether an account may act as a reviewer.
type Authorizer interface {
	IsReviewer(ctx context.Context, actorID uuid.UUID) (bool, error)
}
