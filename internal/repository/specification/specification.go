package specification

import "gorm.io/gorm"

// Specification composes query conditions the repositories apply in order.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
