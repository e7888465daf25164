package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is owned by the external auth system. This service only reads the
// fields that drive entitlement and the admin exemption.
type User struct {
	Id        uuid.UUID
	Email     string
	FullName  string
	Role      string // constant.UserRole*
	Plan      string // constant.UserPlan*
	CreatedAt time.Time
	UpdatedAt *time.Time
}
