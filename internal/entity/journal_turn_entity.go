package entity

import (
	"time"

	"github.com/google/uuid"
)

// JournalTurn is immutable once created, except for the one-time AudioURL
// backfill performed by the archival worker.
type JournalTurn struct {
	Id        uuid.UUID
	SessionId uuid.UUID
	Speaker   string // constant.TurnSpeaker*
	Text      string
	AudioURL  *string
	StartTime float64 // seconds offset from session start
	Duration  float64 // estimated seconds
	Order     int     // contiguous per session, starting at 0
	Metadata  map[string]interface{}
	CreatedAt time.Time
}
