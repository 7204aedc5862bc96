package storage

import (
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"tideland.dev/go/slices"

	"github.com/saraphi-hospital/infocms/storage/model"
)

// NewsStorage provides CRUD access to NewsArticle records.
type NewsStorage struct {
	db *gorm.DB
}

func newsImages(urls []string) []model.NewsImage {
	images := make([]model.NewsImage, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		images = append(images, model.NewsImage{URL: u})
	}
	return images
}

// List returns all articles, manual order first, then newest date
func (s *NewsStorage) List() ([]model.NewsArticle, error) {
	var items []model.NewsArticle
	if err := s.db.Preload("Images").Order("sort_order asc").Order("date desc").Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "news: list failed")
	}
	return items, nil
}

// Get returns a single article with its images
func (s *NewsStorage) Get(id string) (*model.NewsArticle, error) {
	var item model.NewsArticle
	if err := s.db.Preload("Images").Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.NotFoundError("news not found")
		}
		return nil, errors.Wrap(err, "news: get failed")
	}
	return &item, nil
}

// Create stores a new article
func (s *NewsStorage) Create(in model.NewsInput) (*model.NewsArticle, error) {
	if in.Title == "" {
		return nil, model.ValidationError("title is required")
	}
	item := &model.NewsArticle{
		Title:        in.Title,
		Excerpt:      in.Excerpt,
		Content:      in.Content,
		ImageURL:     in.ImageURL,
		Date:         in.Date,
		ExternalLink: in.ExternalLink,
		Images:       newsImages(in.Images),
	}
	if err := s.db.Create(item).Error; err != nil {
		return nil, errors.Wrap(err, "news: create failed")
	}
	return item, nil
}

// Update replaces the article fields; the image gallery is replaced when
// in.Images is non-nil
func (s *NewsStorage) Update(id string, in model.NewsInput) (*model.NewsArticle, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, model.ValidationError("title is required")
	}
	err = s.db.Transaction(
		func(tx *gorm.DB) error {
			item.Title = in.Title
			item.Excerpt = in.Excerpt
			item.Content = in.Content
			item.ImageURL = in.ImageURL
			item.Date = in.Date
			item.ExternalLink = in.ExternalLink
			if in.Images != nil {
				if err := tx.Where("news_id = ?", id).Delete(&model.NewsImage{}).Error; err != nil {
					return err
				}
				item.Images = newsImages(in.Images)
			}
			return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(item).Error
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "news: update failed")
	}
	return s.Get(id)
}

// Delete removes an article and its images and returns what was removed
func (s *NewsStorage) Delete(id string) (*model.NewsArticle, error) {
	item, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	err = s.db.Transaction(
		func(tx *gorm.DB) error {
			if err := tx.Where("news_id = ?", id).Delete(&model.NewsImage{}).Error; err != nil {
				return err
			}
			return tx.Delete(&model.NewsArticle{}, "id = ?", id).Error
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "news: delete failed")
	}
	return item, nil
}

// Reorder assigns SortOrder by position in ids. Unknown ids are rejected.
func (s *NewsStorage) Reorder(ids []string) error {
	return reorder(s.db, &model.NewsArticle{}, ids, "news")
}

func reorder(db *gorm.DB, m any, ids []string, what string) error {
	err := db.Transaction(
		func(tx *gorm.DB) error {
			var existing []string
			if err := tx.Model(m).Where("id IN ?", ids).Pluck("id", &existing).Error; err != nil {
				return err
			}
			if unknown := slices.Subtract(ids, existing); len(unknown) > 0 {
				return model.NotFoundErrorFmt("%s not found: %s", what, strings.Join(unknown, ", "))
			}
			for i, id := range ids {
				if err := tx.Model(m).Where("id = ?", id).Update("sort_order", i).Error; err != nil {
					return err
				}
			}
			return nil
		},
	)
	var notFound model.NotFoundError
	if errors.As(err, &notFound) {
		return notFound
	}
	return errors.Wrapf(err, "%s: reorder failed", what)
}
