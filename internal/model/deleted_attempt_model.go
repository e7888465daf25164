package model

import (
	"time"

	"github.com/google/uuid"
)

type DeletedAttempt struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_deleted_attempts_user_date"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:idx_deleted_attempts_user_date"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (DeletedAttempt) TableName() string {
	return "deleted_attempts"
}
