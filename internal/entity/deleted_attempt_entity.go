package entity

import (
	"time"

	"github.com/google/uuid"
)

// DeletedAttempt marks that a user consumed a day's recording attempt by
// deleting a non-completed session. One row per (user, day); never updated.
type DeletedAttempt struct {
	Id        uuid.UUID
	UserId    uuid.UUID
	Date      time.Time // start-of-day normalized
	CreatedAt time.Time
}
