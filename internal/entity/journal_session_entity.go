package entity

import (
	"time"

	"github.com/google/uuid"
)

type JournalSession struct {
	Id                    uuid.UUID
	UserId                uuid.UUID
	Date                  time.Time // start-of-day normalized
	Kind                  string    // constant.SessionKind*
	Status                string    // constant.SessionStatus*
	MaxDurationSeconds    int
	TotalUserSpeakingTime float64 // seconds, monotonically non-decreasing while active
	RecordingAttempt      int
	PausedAt              *time.Time
	CompletedAt           *time.Time
	CreatedAt             time.Time
	UpdatedAt             *time.Time
	DeletedAt             *time.Time
	IsDeleted             bool
}
