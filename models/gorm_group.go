package models

import "time"

// Group represents a named collection of images using GORM.
// It corresponds to the 'groups' table.
type Group struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"size:64;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"` // UTC, never updated
}

// TableName explicitly sets the table name for GORM.
func (Group) TableName() string {
	return "groups"
}
