package contract

import (
	"context"

	"voice-journal-be/internal/entity"
	"voice-journal-be/internal/repository/specification"
)

type DeletedAttemptRepository interface {
	// Upsert inserts the marker if none exists for (user, day); it is a no-op
	// otherwise. Markers are never updated or deleted by this service.
	Upsert(ctx context.Context, attempt *entity.DeletedAttempt) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DeletedAttempt, error)
}
