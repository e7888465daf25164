package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JournalTurn rows cascade with their session and carry a composite unique
// index on (session_id, order) so the contiguous ordering invariant is
// enforced at the database level too.
type JournalTurn struct {
	Id        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_journal_turns_session_order"`
	Speaker   string         `gorm:"type:varchar(10);not null"`
	Text      string         `gorm:"type:text;not null"`
	AudioURL  *string        `gorm:"type:text"`
	StartTime float64        `gorm:"not null;default:0"`
	Duration  float64        `gorm:"not null;default:0"`
	Order     int            `gorm:"column:turn_order;not null;uniqueIndex:idx_journal_turns_session_order"`
	Metadata  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
}

func (JournalTurn) TableName() string {
	return "journal_turns"
}
