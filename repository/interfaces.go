package repository

import (
	"github.com/camden-git/mememanager/models"
)

// GroupRepositoryInterface defines the methods for group data operations
type GroupRepositoryInterface interface {
	Create(name string) (*models.Group, error)
	GetByID(id uint) (*models.Group, error)
	GetByName(name string) (*models.Group, error)
	Ensure(name string) (*models.Group, bool, error)
	Rename(id uint, newName string) (*models.Group, error)
	Delete(id uint) error
	ListAll() ([]models.Group, error)
}

// ImageRepositoryInterface defines the methods for image data operations
type ImageRepositoryInterface interface {
	Create(data []byte, imgType string, tagSeq []string, groupID *uint) (*models.Image, error)
	GetByID(id uint) (*models.Image, error)
	ReassignGroup(imageID uint, groupID *uint) (*models.Image, error)
	AddTags(imageID uint, tagSeq []string) (*models.Image, error)
	RemoveTag(imageID uint, tag string) (*models.Image, error)
	Delete(id uint) error
	Search(filter SearchFilter) (*SearchResult, error)
	EachInGroup(groupID *uint, fn func(img *models.Image) error) error
}
