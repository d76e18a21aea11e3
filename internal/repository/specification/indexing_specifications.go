package specification

import (
	"gorm.io/gorm"
)

// ByStatus filters indexing jobs on a single status.
type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// ByStatusIn filters indexing jobs on a status set, e.g. the active pair
// {pending, running}.
type ByStatusIn struct {
	Statuses []string
}

func (s ByStatusIn) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status IN ?", s.Statuses)
}

// ByProvider filters chunk rows by the embedding provider that produced them.
type ByProvider struct {
	Provider string
}

func (s ByProvider) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("provider = ?", s.Provider)
}
