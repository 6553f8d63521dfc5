package usecases

import (
	"context"
	"time"

	"hostelhub.backend/internal/domain/entities"
	"hostelhub.backend/pkg/utils"
)

func notify(ctx context.Context, n Notifier, typ entities.NotificationType, u *entities.User, at time.Time) {
	if n == nil || u == nil {
		return
	}
	event := entities.NotificationEvent{
		ID:         utils.GenerateUUIDv7(),
		Type:       typ,
		UserID:     u.ID,
		OccurredAt: at,
	}
	switch typ {
	case entities.NotificationVerificationSubmitted:
		event.VerificationStatus = u.VerificationStatus
	case entities.NotificationVerificationDecided:
		event.VerificationStatus = u.VerificationStatus
		event.Remarks = u.VerificationRemarks
		event.Role = u.Role
	case entities.NotificationAccountStatusChanged:
		event.AccountStatus = u.AccountStatus
	case entities.NotificationRoleChanged:
		event.Role = u.Role
	}
	n.Notify(ctx, event)
}
