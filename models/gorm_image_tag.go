package models

// ImageTag is one entry of an image's tag sequence, kept as a lookup index
// next to the encoded Image.Tags column. It corresponds to the 'image_tags' table.
type ImageTag struct {
	ImageID  uint   `gorm:"primaryKey;autoIncrement:false" json:"image_id"`
	Position int    `gorm:"primaryKey;autoIncrement:false" json:"position"`
	Name     string `gorm:"not null;index:idx_image_tags_name" json:"name"`
}

// TableName explicitly sets the table name for GORM.
func (ImageTag) TableName() string {
	return "image_tags"
}

// IndexRows builds the index rows for an image's ordered tag sequence.
func IndexRows(imageID uint, seq []string) []ImageTag {
	rows := make([]ImageTag, len(seq))
	for i, name := range seq {
		rows[i] = ImageTag{ImageID: imageID, Position: i, Name: name}
	}
	return rows
}
