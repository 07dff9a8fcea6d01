package repository

import (
	"errors"
	"fmt"

	"github.com/camden-git/mememanager/database"
	"github.com/camden-git/mememanager/models"
	"github.com/camden-git/mememanager/tags"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultPerPage = 20
	exportBatch    = 50
)

// SearchFilter selects a page of images. Empty Tag/Group mean no filter;
// zero Page/PerPage fall back to 1 and DefaultPerPage.
type SearchFilter struct {
	Tag     string
	Group   string
	Match   string // database.TagMatchExact (default) or database.TagMatchSubstring
	Page    int
	PerPage int
}

// PageInfo describes where a page sits in the full result set
type PageInfo struct {
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
}

type SearchResult struct {
	Images   []models.Image
	PageInfo PageInfo
}

// ImageRepository handles database operations for Image entities
type ImageRepository struct {
	DB *gorm.DB
}

// NewImageRepository creates a new instance of ImageRepository.
// db may be a transaction handle.
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{DB: db}
}

// writeTagIndex replaces the image_tags rows of an image with seq
func writeTagIndex(tx *gorm.DB, imageID uint, seq []string) error {
	if err := tx.Where("image_id = ?", imageID).Delete(&models.ImageTag{}).Error; err != nil {
		return fmt.Errorf("failed to clear tag index for image %d: %w", imageID, err)
	}
	if len(seq) == 0 {
		return nil
	}
	rows := models.IndexRows(imageID, seq)
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to write tag index for image %d: %w", imageID, err)
	}
	return nil
}

// loadMeta loads an image without its blob
func loadMeta(tx *gorm.DB, id uint) (*models.Image, error) {
	var image models.Image
	err := tx.Omit("data").Preload("Group").First(&image, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("image %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get image %d: %w", id, err)
	}
	return &image, nil
}

// Create stores a new image with its ordered tags and optional group
func (r *ImageRepository) Create(data []byte, imgType string, tagSeq []string, groupID *uint) (*models.Image, error) {
	if len(data) > models.MaxImageBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrImageTooLarge, len(data), models.MaxImageBytes)
	}
	if data == nil {
		data = []byte{}
	}
	encoded, err := tags.Encode(tagSeq)
	if err != nil {
		return nil, err
	}

	image := models.Image{
		Data:    data,
		ImgType: imgType,
		Tags:    encoded,
		GroupID: groupID,
	}

	err = r.DB.Transaction(func(tx *gorm.DB) error {
		if groupID != nil {
			var count int64
			if err := tx.Model(&models.Group{}).Where("id = ?", *groupID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check group %d: %w", *groupID, err)
			}
			if count == 0 {
				return fmt.Errorf("%w: group %d", ErrInvalidGroupReference, *groupID)
			}
		}

		if err := tx.Omit(clause.Associations).Create(&image).Error; err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: group %d", ErrInvalidGroupReference, *groupID)
			}
			return fmt.Errorf("failed to create image: %w", err)
		}
		return writeTagIndex(tx, image.ID, tagSeq)
	})
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// GetByID retrieves an image including its blob and group
func (r *ImageRepository) GetByID(id uint) (*models.Image, error) {
	var image models.Image
	err := r.DB.Preload("Group").First(&image, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("image %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get image by ID %d: %w", id, err)
	}
	return &image, nil
}

// ReassignGroup moves an image into groupID, or out of any group when groupID is nil
func (r *ImageRepository) ReassignGroup(imageID uint, groupID *uint) (*models.Image, error) {
	var image *models.Image
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if _, err := loadMeta(tx, imageID); err != nil {
			return err
		}
		if groupID != nil {
			var group models.Group
			if err := tx.First(&group, *groupID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("group %d: %w", *groupID, ErrNotFound)
				}
				return fmt.Errorf("failed to get group %d: %w", *groupID, err)
			}
		}

		if err := tx.Model(&models.Image{}).Where("id = ?", imageID).Update("group_id", groupID).Error; err != nil {
			return fmt.Errorf("failed to reassign image %d: %w", imageID, err)
		}

		var err error
		image, err = loadMeta(tx, imageID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

// updateTags rewrites the tag column and index of an image through edit
func (r *ImageRepository) updateTags(imageID uint, edit func(seq []string) ([]string, error)) (*models.Image, error) {
	var image *models.Image
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		current, err := loadMeta(tx, imageID)
		if err != nil {
			return err
		}

		seq, err := edit(current.TagList())
		if err != nil {
			return err
		}
		encoded, err := tags.Encode(seq)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.Image{}).Where("id = ?", imageID).Update("tags", encoded).Error; err != nil {
			return fmt.Errorf("failed to update tags for image %d: %w", imageID, err)
		}
		if err := writeTagIndex(tx, imageID, seq); err != nil {
			return err
		}

		current.Tags = encoded
		image = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

// AddTags appends tags to the image's sequence, keeping duplicates
func (r *ImageRepository) AddTags(imageID uint, tagSeq []string) (*models.Image, error) {
	if err := tags.Validate(tagSeq); err != nil {
		return nil, err
	}
	return r.updateTags(imageID, func(seq []string) ([]string, error) {
		return tags.Append(seq, tagSeq...), nil
	})
}

// RemoveTag removes the first occurrence of tag from the image's sequence
func (r *ImageRepository) RemoveTag(imageID uint, tag string) (*models.Image, error) {
	return r.updateTags(imageID, func(seq []string) ([]string, error) {
		out, ok := tags.RemoveFirst(seq, tag)
		if !ok {
			return nil, fmt.Errorf("%w: %q on image %d", ErrTagNotPresent, tag, imageID)
		}
		return out, nil
	})
}

// Delete removes an image record and its tag index
func (r *ImageRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("image_id = ?", id).Delete(&models.ImageTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete tag index for image %d: %w", id, err)
		}
		result := tx.Delete(&models.Image{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete image %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("image %d: %w", id, ErrNotFound)
		}
		return nil
	})
}

// Search returns one page of images matching the filter, oldest first.
// Blob data is not loaded.
func (r *ImageRepository) Search(filter SearchFilter) (*SearchResult, error) {
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.PerPage == 0 {
		filter.PerPage = DefaultPerPage
	}
	if filter.Page < 1 || filter.PerPage < 1 {
		return nil, ErrInvalidPage
	}
	if filter.Match != "" && !database.IsValidTagMatch(filter.Match) {
		return nil, fmt.Errorf("invalid tag match mode: %s", filter.Match)
	}

	q := database.ImageQuery{Tag: filter.Tag, Group: filter.Group, Match: filter.Match}

	countSQL, countArgs, err := database.BuildImageCount(q)
	if err != nil {
		return nil, err
	}
	var total int64
	if err := r.DB.Raw(countSQL, countArgs...).Scan(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count images: %w", err)
	}

	result := &SearchResult{
		Images: []models.Image{},
		PageInfo: PageInfo{
			Total:   total,
			Pages:   int((total + int64(filter.PerPage) - 1) / int64(filter.PerPage)),
			Page:    filter.Page,
			PerPage: filter.PerPage,
		},
	}

	offset := int64(filter.Page-1) * int64(filter.PerPage)
	if offset >= total {
		return result, nil
	}

	pageSQL, pageArgs, err := database.BuildImagePage(q, uint64(filter.PerPage), uint64(offset))
	if err != nil {
		return nil, err
	}
	var ids []uint
	if err := r.DB.Raw(pageSQL, pageArgs...).Scan(&ids).Error; err != nil {
		return nil, fmt.Errorf("failed to select image page: %w", err)
	}
	if len(ids) == 0 {
		return result, nil
	}

	err = r.DB.Omit("data").Preload("Group").
		Where("id IN ?", ids).
		Order("created_at ASC").Order("id ASC").
		Find(&result.Images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load image page: %w", err)
	}
	return result, nil
}

// EachInGroup calls fn for every image (with blob) in groupID, or for every
// ungrouped image when groupID is nil. Images are loaded in batches.
func (r *ImageRepository) EachInGroup(groupID *uint, fn func(img *models.Image) error) error {
	q := r.DB.Preload("Group")
	if groupID == nil {
		q = q.Where("group_id IS NULL")
	} else {
		q = q.Where("group_id = ?", *groupID)
	}

	var batch []models.Image
	result := q.FindInBatches(&batch, exportBatch, func(tx *gorm.DB, n int) error {
		for i := range batch {
			if err := fn(&batch[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if result.Error != nil {
		return fmt.Errorf("failed to iterate images: %w", result.Error)
	}
	return nil
}
