package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/camden-git/mememanager/models"
	"gorm.io/gorm"
)

const maxGroupNameLength = 64

// GroupRepository handles database operations for Group entities
type GroupRepository struct {
	DB *gorm.DB
}

// NewGroupRepository creates a new instance of GroupRepository.
// db may be a transaction handle.
func NewGroupRepository(db *gorm.DB) *GroupRepository {
	return &GroupRepository{DB: db}
}

func validateGroupName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if len(name) > maxGroupNameLength {
		return fmt.Errorf("%w: name longer than %d bytes", ErrInvalidName, maxGroupNameLength)
	}
	return nil
}

// nameTaken checks whether another group already uses name
func nameTaken(tx *gorm.DB, name string, exceptID uint) (bool, error) {
	var count int64
	q := tx.Model(&models.Group{}).Where("name = ?", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check group name %q: %w", name, err)
	}
	return count > 0, nil
}

// Create creates a new group record in the database
func (r *GroupRepository) Create(name string) (*models.Group, error) {
	if err := validateGroupName(name); err != nil {
		return nil, err
	}

	group := models.Group{Name: name}
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		taken, err := nameTaken(tx, name, 0)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		if err := tx.Create(&group).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrDuplicateName, name)
			}
			return fmt.Errorf("failed to create group %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetByID retrieves a group by its ID
func (r *GroupRepository) GetByID(id uint) (*models.Group, error) {
	var group models.Group
	err := r.DB.First(&group, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("group %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get group by ID %d: %w", id, err)
	}
	return &group, nil
}

// GetByName retrieves a group by its unique name
func (r *GroupRepository) GetByName(name string) (*models.Group, error) {
	var group models.Group
	err := r.DB.Where("name = ?", name).First(&group).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("group %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get group by name %s: %w", name, err)
	}
	return &group, nil
}

// Ensure returns the group called name, creating it if it doesn't exist.
// created reports whether a new record was inserted.
func (r *GroupRepository) Ensure(name string) (*models.Group, bool, error) {
	if err := validateGroupName(name); err != nil {
		return nil, false, err
	}

	group := models.Group{Name: name}
	result := r.DB.Where(models.Group{Name: name}).FirstOrCreate(&group)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to ensure group %s: %w", name, result.Error)
	}
	return &group, result.RowsAffected > 0, nil
}

// Rename changes a group's name, keeping names unique
func (r *GroupRepository) Rename(id uint, newName string) (*models.Group, error) {
	if err := validateGroupName(newName); err != nil {
		return nil, err
	}

	var group models.Group
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&group, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("group %d: %w", id, ErrNotFound)
			}
			return fmt.Errorf("failed to load group %d for rename: %w", id, err)
		}
		if group.Name == newName {
			return nil
		}

		taken, err := nameTaken(tx, newName, id)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %s", ErrDuplicateName, newName)
		}

		if err := tx.Model(&group).Update("name", newName).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", ErrDuplicateName, newName)
			}
			return fmt.Errorf("failed to rename group %d: %w", id, err)
		}
		group.Name = newName
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// Delete removes a group and every image that belongs to it in one transaction
func (r *GroupRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.First(&group, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("group %d: %w", id, ErrNotFound)
			}
			return fmt.Errorf("failed to load group %d for delete: %w", id, err)
		}

		// ON DELETE CASCADE only fires when the connection enforces foreign keys
		owned := tx.Model(&models.Image{}).Select("id").Where("group_id = ?", id)
		if err := tx.Where("image_id IN (?)", owned).Delete(&models.ImageTag{}).Error; err != nil {
			return fmt.Errorf("failed to delete tag index of group %d: %w", id, err)
		}
		if err := tx.Where("group_id = ?", id).Delete(&models.Image{}).Error; err != nil {
			return fmt.Errorf("failed to delete images of group %d: %w", id, err)
		}
		if err := tx.Delete(&group).Error; err != nil {
			return fmt.Errorf("failed to delete group %d: %w", id, err)
		}
		return nil
	})
}

// ListAll retrieves all groups, ordered by name
func (r *GroupRepository) ListAll() ([]models.Group, error) {
	var groups []models.Group
	err := r.DB.Order("name ASC").Find(&groups).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}
