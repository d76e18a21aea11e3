package entity

import (
	"time"

	"github.com/google/uuid"
)

// Note is the read-side view of a note owned by the CRUD subsystem.
// The pipeline only consumes notes; it never creates or mutates them.
type Note struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title     string
	Content   string
	Tags      []string
	UserId    uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}
