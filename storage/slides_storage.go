package storage

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/saraphi-hospital/infocms/storage/model"
)

// SlidesStorage provides CRUD access to hero slides
type SlidesStorage struct {
	db *gorm.DB
}

// List returns slides in display order
func (s *SlidesStorage) List(activeOnly bool) ([]model.Slide, error) {
	var items []model.Slide
	tx := s.db.Order("sort_order asc")
	if activeOnly {
		tx = tx.Where("is_active = ?", true)
	}
	if err := tx.Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "slides: list failed")
	}
	return items, nil
}

// Create adds an active slide
func (s *SlidesStorage) Create(imageURL string, order int) (*model.Slide, error) {
	if imageURL == "" {
		return nil, model.ValidationError("imageUrl is required")
	}
	item := &model.Slide{
		ImageURL:  imageURL,
		SortOrder: order,
		IsActive:  true,
	}
	if err := s.db.Create(item).Error; err != nil {
		return nil, errors.Wrap(err, "slides: create failed")
	}
	return item, nil
}

func (s *SlidesStorage) get(id string) (*model.Slide, error) {
	var item model.Slide
	if err := s.db.Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.NotFoundError("slide not found")
		}
		return nil, errors.Wrap(err, "slides: get failed")
	}
	return &item, nil
}

// Update changes order and/or active state
func (s *SlidesStorage) Update(id string, order *int, isActive *bool) (*model.Slide, error) {
	item, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if order != nil {
		item.SortOrder = *order
	}
	if isActive != nil {
		item.IsActive = *isActive
	}
	if err = s.db.Save(item).Error; err != nil {
		return nil, errors.Wrap(err, "slides: update failed")
	}
	return item, nil
}

// Delete removes a slide and returns it
func (s *SlidesStorage) Delete(id string) (*model.Slide, error) {
	item, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if err = s.db.Delete(item).Error; err != nil {
		return nil, errors.Wrap(err, "slides: delete failed")
	}
	return item, nil
}
