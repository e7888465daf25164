package contract

import (
	"context"

	"voice-journal-be/internal/entity"
	"voice-journal-be/internal/repository/specification"

	"github.com/google/uuid"
)

type JournalSessionRepository interface {
	Create(ctx context.Context, session *entity.JournalSession) error
	Update(ctx context.Context, session *entity.JournalSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	// FindOneLocked reads a session with a row-level lock (SELECT ... FOR
	// UPDATE). State transitions go through this inside a transaction so
	// concurrent writers on the same session serialize at the database.
	FindOneLocked(ctx context.Context, specs ...specification.Specification) (*entity.JournalSession, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.JournalSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.JournalSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
