package storage

import (
	"encoding/json"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/saraphi-hospital/infocms/storage/model"
)

// NavLinksStorage stores the navigation menu. Each top-level entry is one row;
// its complete subtree lives in the JSON data column.
type NavLinksStorage struct {
	db *gorm.DB
}

// List returns the menu in display order
func (s *NavLinksStorage) List() ([]model.NavLinkInput, error) {
	var rows []model.NavLink
	if err := s.db.Order("sort_order asc").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "navlinks: list failed")
	}
	links := make([]model.NavLinkInput, 0, len(rows))
	for _, row := range rows {
		var link model.NavLinkInput
		if len(row.Data) > 0 {
			if err := json.Unmarshal(row.Data, &link); err != nil {
				return nil, errors.Wrapf(err, "navlinks: corrupt data for '%s'", row.Name)
			}
		} else {
			link = model.NavLinkInput{
				Name: row.Name,
				Href: row.Href,
			}
		}
		link.ID = row.ID
		links = append(links, link)
	}
	return links, nil
}

// Replace swaps the whole menu for links in a single transaction
func (s *NavLinksStorage) Replace(links []model.NavLinkInput) error {
	for _, l := range links {
		if l.Name == "" {
			return model.ValidationError("every menu entry needs a name")
		}
	}
	err := s.db.Transaction(
		func(tx *gorm.DB) error {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.NavLink{}).Error; err != nil {
				return err
			}
			for i, l := range links {
				l.ID = ""
				data, err := json.Marshal(l)
				if err != nil {
					return err
				}
				row := model.NavLink{
					Name:      l.Name,
					Href:      l.Href,
					SortOrder: i,
					Data:      datatypes.JSON(data),
				}
				if err = tx.Create(&row).Error; err != nil {
					return err
				}
			}
			return nil
		},
	)
	return errors.Wrap(err, "navlinks: replace failed")
}

// GridItemsStorage stores the services grid
type GridItemsStorage struct {
	db *gorm.DB
}

// List returns the grid in display order
func (s *GridItemsStorage) List() ([]model.GridItem, error) {
	var items []model.GridItem
	if err := s.db.Order("sort_order asc").Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "griditems: list failed")
	}
	return items, nil
}

// Replace swaps all grid items; order follows the slice
func (s *GridItemsStorage) Replace(items []model.GridItem) error {
	for _, it := range items {
		if it.Label == "" {
			return model.ValidationError("every service needs a label")
		}
	}
	err := s.db.Transaction(
		func(tx *gorm.DB) error {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.GridItem{}).Error; err != nil {
				return err
			}
			for i, it := range items {
				row := model.GridItem{
					IconName:    it.IconName,
					Label:       it.Label,
					Description: it.Description,
					Href:        it.Href,
					SortOrder:   i,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
			return nil
		},
	)
	return errors.Wrap(err, "griditems: replace failed")
}
