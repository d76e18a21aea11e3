// Package scope holds reusable gorm query fragments shared by the
// implementation repositories. Anything user- or entity-specific belongs in
// a specification instead.
package scope

import "gorm.io/gorm"

func OrderByCreatedDesc(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC")
}

// ExcludeSoftDelete keeps tombstoned chunk rows out of retrieval. Rows are
// soft-deleted by the indexer and swept by the migration tooling.
func ExcludeSoftDelete(db *gorm.DB) *gorm.DB {
	return db.Where("deleted_at IS NULL")
}
