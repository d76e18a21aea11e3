package specification

import "gorm.io/gorm"

// Specification is a composable query predicate applied by repositories.
type Specification interface {
	Apply(db *gorm.DB) *gorm.DB
}
