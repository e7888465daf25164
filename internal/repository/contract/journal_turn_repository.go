package contract

import (
	"context"

	"voice-journal-be/internal/entity"
	"voice-journal-be/internal/repository/specification"

	"github.com/google/uuid"
)

type JournalTurnRepository interface {
	Create(ctx context.Context, turn *entity.JournalTurn) error
	// BackfillAudioURL is the single legal mutation of an existing turn.
	BackfillAudioURL(ctx context.Context, id uuid.UUID, audioURL string) error
	DeleteAllBySessionId(ctx context.Context, sessionId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.JournalTurn, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.JournalTurn, error)
	// MaxOrder returns the highest order value for a session, or -1 when the
	// session has no turns yet.
	MaxOrder(ctx context.Context, sessionId uuid.UUID) (int, error)
}
