package storage

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/saraphi-hospital/infocms/storage/model"
)

// ResourcesStorage provides CRUD access to downloadable resources
type ResourcesStorage struct {
	db *gorm.DB
}

// List returns resources newest first, optionally restricted to a category
func (s *ResourcesStorage) List(category string) ([]model.Resource, error) {
	var items []model.Resource
	tx := s.db.Order("created_at desc")
	if category != "" {
		tx = tx.Where("category = ?", category)
	}
	if err := tx.Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "resources: list failed")
	}
	return items, nil
}

// Get returns a resource by id
func (s *ResourcesStorage) Get(id string) (*model.Resource, error) {
	var item model.Resource
	if err := s.db.Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.NotFoundError("resource not found")
		}
		return nil, errors.Wrap(err, "resources: get failed")
	}
	return &item, nil
}

// Create stores a new resource
func (s *ResourcesStorage) Create(in model.ResourceInput) (*model.Resource, error) {
	if in.Title == "" || in.Category == "" || in.FileURL == "" {
		return nil, model.ValidationError("title, category and fileUrl are required")
	}
	item := &model.Resource{
		Title:       in.Title,
		Category:    in.Category,
		Subcategory: in.Subcategory,
		FileURL:     in.FileURL,
		FileType:    in.FileType,
	}
	if err := s.db.Create(item).Error; err != nil {
		return nil, errors.Wrap(err, "resources: create failed")
	}
	return item, nil
}

// Update changes the metadata; file fields are only replaced when in.FileURL is set
func (s *ResourcesStorage) Update(id string, in model.ResourceInput) (*model.Resource, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if in.Title != "" {
		item.Title = in.Title
	}
	if in.Category != "" {
		item.Category = in.Category
	}
	item.Subcategory = in.Subcategory
	if in.FileURL != "" {
		item.FileURL = in.FileURL
		item.FileType = in.FileType
	}
	if err = s.db.Save(item).Error; err != nil {
		return nil, errors.Wrap(err, "resources: update failed")
	}
	return item, nil
}

// Delete removes a resource and returns it
func (s *ResourcesStorage) Delete(id string) (*model.Resource, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err = s.db.Delete(item).Error; err != nil {
		return nil, errors.Wrap(err, "resources: delete failed")
	}
	return item, nil
}
