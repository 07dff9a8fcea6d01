package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrDuplicateName         = errors.New("group name already exists")
	ErrInvalidName           = errors.New("invalid group name")
	ErrInvalidGroupReference = errors.New("referenced group does not exist")
	ErrTagNotPresent         = errors.New("tag not present")
	ErrInvalidPage           = errors.New("page and per_page must be at least 1")
	ErrImageTooLarge         = errors.New("image data too large")
)

// isUniqueViolation reports whether err came from a UNIQUE constraint,
// whether or not the driver error was translated by gorm
func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation reports whether err came from a FOREIGN KEY constraint
func isForeignKeyViolation(err error) bool {
	return errors.Is(err, gorm.ErrForeignKeyViolated) || strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
