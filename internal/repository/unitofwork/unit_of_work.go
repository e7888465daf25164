package unitofwork

import (
	"context"

	"voice-journal-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	JournalSessionRepository() contract.JournalSessionRepository
	JournalTurnRepository() contract.JournalTurnRepository
	DeletedAttemptRepository() contract.DeletedAttemptRepository
}
