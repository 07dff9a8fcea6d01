package models

import (
	"time"

	"github.com/camden-git/mememanager/tags"
)

// MaxImageBytes bounds the size of a stored image blob (16 MiB).
const MaxImageBytes = 16 << 20

// Image represents a stored image blob and its metadata using GORM.
// It corresponds to the 'images' table.
type Image struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Data      []byte    `gorm:"not null" json:"-"`
	ImgType   string    `gorm:"size:64;not null" json:"img_type"`
	Tags      string    `gorm:"type:text;not null;default:''" json:"-"` // comma-joined, see package tags
	GroupID   *uint     `gorm:"index" json:"group_id,omitempty"`        // Nullable
	CreatedAt time.Time `gorm:"not null;index:idx_images_created" json:"created_at"`

	// Relationships
	Group    *Group     `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"group,omitempty"`
	TagIndex []ImageTag `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName explicitly sets the table name for GORM.
func (Image) TableName() string {
	return "images"
}

// TagList decodes the stored tag column into its ordered sequence.
func (img *Image) TagList() []string {
	return tags.Decode(img.Tags)
}

// GroupName returns the owning group's name, or nil when ungrouped or not preloaded.
func (img *Image) GroupName() *string {
	if img.Group == nil {
		return nil
	}
	name := img.Group.Name
	return &name
}
