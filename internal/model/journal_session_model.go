package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JournalSession struct {
	Id                    uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId                uuid.UUID `gorm:"type:uuid;not null;index:idx_journal_sessions_user_date"`
	Date                  time.Time `gorm:"type:date;not null;index:idx_journal_sessions_user_date"`
	Kind                  string    `gorm:"type:varchar(50);not null;default:'reflection'"`
	Status                string    `gorm:"type:varchar(50);not null;default:'active';index"`
	MaxDurationSeconds    int       `gorm:"not null"`
	TotalUserSpeakingTime float64   `gorm:"not null;default:0"`
	RecordingAttempt      int       `gorm:"not null;default:1"`
	PausedAt              *time.Time
	CompletedAt           *time.Time
	CreatedAt             time.Time      `gorm:"autoCreateTime"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime"`
	DeletedAt             gorm.DeletedAt `gorm:"index"`
}

func (JournalSession) TableName() string {
	return "journal_sessions"
}
